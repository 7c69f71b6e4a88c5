package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"commandrelay/inbox"
	"commandrelay/outbox"
)

// Channel is the subset of *amqp091.Channel the publisher needs. Tests
// substitute a recording fake.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher turns a claimed outbox event and its resolved command into exactly
// one task submission on the downstream queue. It performs no retries of its
// own; retry is driven by the caller's failure classification.
type Publisher struct {
	ch       Channel
	exchange string
	mapper   *outbox.Mapper
	log      *slog.Logger
	now      func() time.Time
}

// NewPublisher wires the publisher and verifies that every command type the
// mapper can produce has a parameter decoder. A divergence between the two
// tables is a configuration error surfaced here once, not per event.
func NewPublisher(ch Channel, exchange string, mapper *outbox.Mapper, log *slog.Logger) (*Publisher, error) {
	p := &Publisher{
		ch:       ch,
		exchange: exchange,
		mapper:   mapper,
		log:      log,
		now:      time.Now,
	}

	for _, commandType := range mapper.CommandTypes() {
		if _, err := decodeParams(commandType, map[string]any{}, p.now); err != nil {
			return nil, fmt.Errorf("queue: no route for command type %q: %w", commandType, err)
		}
	}

	return p, nil
}

// Publish resolves the command type for event, extracts the typed parameters
// from the command's stored payload and submits one persistent message with
// routing key equal to the command type.
func (p *Publisher) Publish(ctx context.Context, event outbox.Event, command *inbox.Command) error {
	commandType, err := p.mapper.Resolve(event.EventType)
	if err != nil {
		return fmt.Errorf("queue: resolve event %s: %w", event.ID, err)
	}

	payload, err := decodePayloadObject(command.Payload)
	if err != nil {
		return fmt.Errorf("queue: payload of command %s: %w", command.ID, err)
	}

	params, err := decodeParams(commandType, payload, p.now)
	if err != nil {
		return err
	}

	task := Task{
		IdempotencyKey: command.IdempotencyKey,
		Source:         command.Source,
		Type:           command.Type,
		ScopeKey:       command.ScopeKey,
		Payload:        command.Payload,
		CommandID:      command.ID,
		CommandType:    commandType,
		Params:         params,
	}

	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("queue: encode task for event %s: %w", event.ID, err)
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, string(commandType), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    command.ID,
		Timestamp:    p.now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("queue: publish event %s: %w", event.ID, err)
	}

	p.log.Info("task published",
		slog.String("outbox_id", event.ID),
		slog.String("event_type", event.EventType),
		slog.String("command_type", string(commandType)),
		slog.String("command_id", command.ID),
	)

	return nil
}

// decodePayloadObject accepts either a JSON object or a JSON string containing
// a serialized object, since acceptance paths store the body both ways. An
// empty payload decodes to an empty object.
func decodePayloadObject(raw json.RawMessage) (map[string]any, error) {
	payload := map[string]any{}
	if len(raw) == 0 {
		return payload, nil
	}

	if err := json.Unmarshal(raw, &payload); err == nil {
		return payload, nil
	}

	var nested string
	if err := json.Unmarshal(raw, &nested); err == nil {
		if err := json.Unmarshal([]byte(nested), &payload); err == nil {
			return payload, nil
		}
	}

	return nil, fmt.Errorf("queue: payload is not a JSON object")
}
