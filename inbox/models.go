package inbox

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a command inbox row. The relay only ever
// observes RECEIVED and writes ENQUEUED; later states belong to the
// downstream worker that executes the command.
type Status string

const (
	StatusReceived Status = "RECEIVED"
	StatusEnqueued Status = "ENQUEUED"
)

// Command is the idempotency record for one deduplicated inbound command.
// Result, ErrorMessage, ProcessedAt and ExpiresAt are owned by the downstream
// worker; the relay reads them but never writes them.
type Command struct {
	ID             string
	IdempotencyKey string
	Source         string
	Type           string
	ScopeKey       string
	PayloadHash    string
	Payload        json.RawMessage
	Status         Status
	Result         *string
	ErrorMessage   *string
	ProcessedAt    *time.Time
	ExpiresAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AddParams enumerates the fields the command-acceptance path records before
// the matching outbox event exists.
type AddParams struct {
	ID             string
	IdempotencyKey string
	Source         string
	Type           string
	ScopeKey       string
	Payload        json.RawMessage
}
