package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"

	"commandrelay/inbox"
	"commandrelay/outbox"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	published []published
	err       error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPublisher(t *testing.T, ch *fakeChannel) *Publisher {
	t.Helper()
	p, err := NewPublisher(ch, "commands", outbox.NewMapper(), discardLogger())
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	return p
}

func testCommand(payload string) *inbox.Command {
	return &inbox.Command{
		ID:             "0191b9f2-0000-7000-8000-000000000001",
		IdempotencyKey: "idem-1",
		Source:         "dispatch-center",
		Type:           "occurrence.create",
		ScopeKey:       "tenant-a",
		Payload:        json.RawMessage(payload),
		Status:         inbox.StatusReceived,
	}
}

func TestPublish_CreateOccurrence(t *testing.T) {
	ch := &fakeChannel{}
	p := newTestPublisher(t, ch)

	event := outbox.Event{
		ID:          "evt-1",
		AggregateID: "0191b9f2-0000-7000-8000-000000000001",
		EventType:   "OccurrenceCreateRequested",
	}
	command := testCommand(`{"externalId":"E1","type":"fire","description":"d","reportedAt":"2024-01-01T00:00:00Z"}`)

	if err := p.Publish(context.Background(), event, command); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(ch.published) != 1 {
		t.Fatalf("expected exactly one submission, got %d", len(ch.published))
	}
	got := ch.published[0]
	if got.exchange != "commands" || got.key != "create_occurrence" {
		t.Errorf("published to %s/%s, want commands/create_occurrence", got.exchange, got.key)
	}
	if got.msg.DeliveryMode != amqp.Persistent {
		t.Errorf("expected persistent delivery mode")
	}
	if got.msg.MessageId != command.ID {
		t.Errorf("message id = %q, want command id", got.msg.MessageId)
	}

	var task struct {
		IdempotencyKey string          `json:"idempotencyKey"`
		Source         string          `json:"source"`
		ScopeKey       string          `json:"scopeKey"`
		CommandID      string          `json:"commandId"`
		CommandType    string          `json:"commandType"`
		Payload        json.RawMessage `json:"payload"`
		Params         struct {
			ExternalID string `json:"externalId"`
			ReportedAt string `json:"reportedAt"`
		} `json:"params"`
	}
	if err := json.Unmarshal(got.msg.Body, &task); err != nil {
		t.Fatalf("decode task body: %v", err)
	}
	if task.IdempotencyKey != "idem-1" || task.Source != "dispatch-center" || task.ScopeKey != "tenant-a" {
		t.Errorf("task envelope fields wrong: %+v", task)
	}
	if task.CommandID != command.ID || task.CommandType != "create_occurrence" {
		t.Errorf("task command fields wrong: %+v", task)
	}
	if task.Params.ExternalID != "E1" {
		t.Errorf("params.externalId = %q, want E1", task.Params.ExternalID)
	}
	if task.Params.ReportedAt != "2024-01-01T00:00:00Z" {
		t.Errorf("params.reportedAt = %q, want stored value", task.Params.ReportedAt)
	}
	if string(task.Payload) != string(command.Payload) {
		t.Errorf("raw payload must be carried through unchanged")
	}
}

func TestPublish_StringEncodedPayload(t *testing.T) {
	ch := &fakeChannel{}
	p := newTestPublisher(t, ch)

	event := outbox.Event{ID: "evt-2", EventType: "DispatchCloseRequested"}
	command := testCommand(`"{\"dispatchId\":\"D1\"}"`)

	if err := p.Publish(context.Background(), event, command); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	var task struct {
		Params struct {
			DispatchID string `json:"dispatchId"`
		} `json:"params"`
	}
	if err := json.Unmarshal(ch.published[0].msg.Body, &task); err != nil {
		t.Fatalf("decode task body: %v", err)
	}
	if task.Params.DispatchID != "D1" {
		t.Errorf("params.dispatchId = %q, want D1", task.Params.DispatchID)
	}
}

func TestPublish_UnsupportedEventType(t *testing.T) {
	ch := &fakeChannel{}
	p := newTestPublisher(t, ch)

	event := outbox.Event{ID: "evt-3", EventType: "NotARealEvent"}

	err := p.Publish(context.Background(), event, testCommand(`{}`))
	if !errors.Is(err, outbox.ErrUnsupportedEventType) {
		t.Fatalf("expected ErrUnsupportedEventType, got %v", err)
	}
	if len(ch.published) != 0 {
		t.Errorf("no task must be submitted for an unsupported event type")
	}
}

func TestPublish_ChannelErrorPropagates(t *testing.T) {
	wantErr := errors.New("connection refused")
	p := newTestPublisher(t, &fakeChannel{err: wantErr})

	event := outbox.Event{ID: "evt-4", EventType: "OccurrenceStartRequested"}

	err := p.Publish(context.Background(), event, testCommand(`{"occurrenceId":"O1"}`))
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected channel error to propagate, got %v", err)
	}
}

func TestPublish_MalformedPayload(t *testing.T) {
	ch := &fakeChannel{}
	p := newTestPublisher(t, ch)

	event := outbox.Event{ID: "evt-5", EventType: "OccurrenceStartRequested"}

	if err := p.Publish(context.Background(), event, testCommand(`[1,2,3]`)); err == nil {
		t.Fatalf("expected error for non-object payload")
	}
	if len(ch.published) != 0 {
		t.Errorf("no task must be submitted for a malformed payload")
	}
}
