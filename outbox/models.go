package outbox

import "time"

// Event is a single outbox row awaiting relay to the task queue. It carries
// no payload of its own; the command payload lives in the idempotency inbox
// row keyed by AggregateID.
type Event struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Status        Status
	ErrorMessage  *string
	CreatedAt     time.Time
	SentAt        *time.Time
}

// AddParams enumerates the fields required to append a pending event inside
// a business transaction.
type AddParams struct {
	AggregateType string
	AggregateID   string
	EventType     string
}
