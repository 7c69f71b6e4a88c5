package queue

import (
	"errors"
	"testing"
	"time"

	"commandrelay/outbox"
)

func fixedNow() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestDecodeParams_CreateOccurrence(t *testing.T) {
	payload := map[string]any{
		"externalId":  "E1",
		"type":        "fire",
		"description": "warehouse fire",
		"reportedAt":  "2024-01-01T00:00:00Z",
	}

	params, err := decodeParams(outbox.CommandCreateOccurrence, payload, fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := params.(CreateOccurrenceParams)
	if !ok {
		t.Fatalf("expected CreateOccurrenceParams, got %T", params)
	}
	if got.ExternalID != "E1" || got.OccurrenceType != "fire" || got.Description != "warehouse fire" {
		t.Errorf("unexpected params: %+v", got)
	}
	if got.ReportedAt != "2024-01-01T00:00:00Z" {
		t.Errorf("reportedAt = %q, want the stored value", got.ReportedAt)
	}
}

func TestDecodeParams_AbsentFieldsDefaultToEmpty(t *testing.T) {
	params, err := decodeParams(outbox.CommandCreateDispatch, map[string]any{}, fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := params.(CreateDispatchParams)
	if got.OccurrenceID != "" || got.ResourceCode != "" {
		t.Errorf("absent fields must default to empty strings, got %+v", got)
	}
}

func TestDecodeParams_ReportedAtDefaultsToNow(t *testing.T) {
	params, err := decodeParams(outbox.CommandCreateOccurrence, map[string]any{"externalId": "E2"}, fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := params.(CreateOccurrenceParams)
	if got.ReportedAt != "2024-06-01T12:00:00Z" {
		t.Errorf("reportedAt = %q, want the current time in RFC3339", got.ReportedAt)
	}
}

func TestDecodeParams_NonStringValuesDefaultToEmpty(t *testing.T) {
	payload := map[string]any{"occurrenceId": 42}

	params, err := decodeParams(outbox.CommandStartOccurrence, payload, fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := params.(StartOccurrenceParams); got.OccurrenceID != "" {
		t.Errorf("non-string value must decode to empty string, got %q", got.OccurrenceID)
	}
}

func TestDecodeParams_EveryMapperCommandTypeHasRoute(t *testing.T) {
	for _, commandType := range outbox.NewMapper().CommandTypes() {
		if _, err := decodeParams(commandType, map[string]any{}, fixedNow); err != nil {
			t.Errorf("no decoder for command type %s: %v", commandType, err)
		}
	}
}

func TestDecodeParams_UnknownCommandType(t *testing.T) {
	_, err := decodeParams(outbox.CommandType("ship_pizza"), map[string]any{}, fixedNow)
	if !errors.Is(err, ErrUnsupportedCommandType) {
		t.Fatalf("expected ErrUnsupportedCommandType, got %v", err)
	}
}
