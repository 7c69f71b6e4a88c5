package outbox

// Status is the lifecycle state of an outbox event.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusSent       Status = "SENT"
	StatusFailed     Status = "FAILED"
)

// Valid reports whether s names a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSent, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the relay will never touch the row again.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}

// CanTransitionTo reports whether the relay may move a row from s to next.
// The only legal moves are PENDING→PROCESSING and PROCESSING→{SENT, FAILED,
// PENDING}; the last one is the transient-failure retry reset.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusSent || next == StatusFailed || next == StatusPending
	}
	return false
}
