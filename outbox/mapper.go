package outbox

import (
	"errors"
	"fmt"
	"sort"
)

// CommandType names a downstream command derived from a domain event type.
type CommandType string

const (
	CommandCreateOccurrence     CommandType = "create_occurrence"
	CommandStartOccurrence      CommandType = "start_occurrence"
	CommandResolveOccurrence    CommandType = "resolve_occurrence"
	CommandCancelOccurrence     CommandType = "cancel_occurrence"
	CommandCreateDispatch       CommandType = "create_dispatch"
	CommandCloseDispatch        CommandType = "close_dispatch"
	CommandUpdateDispatchStatus CommandType = "update_dispatch_status"
)

// ErrUnsupportedEventType signals an event type outside the relay allow-list.
var ErrUnsupportedEventType = errors.New("outbox: unsupported event type")

// Mapper translates domain event types into downstream command types over a
// fixed allow-list. Keeping the table static makes an unknown event type a
// deterministic permanent failure instead of a downstream crash; new event
// types require an explicit entry here.
type Mapper struct {
	eventMap map[string]CommandType
}

// NewMapper builds the mapper with every supported event type.
func NewMapper() *Mapper {
	return &Mapper{eventMap: map[string]CommandType{
		"OccurrenceCreateRequested":     CommandCreateOccurrence,
		"OccurrenceStartRequested":      CommandStartOccurrence,
		"OccurrenceResolvedRequested":   CommandResolveOccurrence,
		"OccurrenceCancelledRequested":  CommandCancelOccurrence,
		"DispatchCreateRequested":       CommandCreateDispatch,
		"DispatchCloseRequested":        CommandCloseDispatch,
		"DispatchStatusUpdateRequested": CommandUpdateDispatchStatus,
	}}
}

// Resolve maps eventType to its downstream command type.
func (m *Mapper) Resolve(eventType string) (CommandType, error) {
	commandType, ok := m.eventMap[eventType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedEventType, eventType)
	}
	return commandType, nil
}

// IsSupported reports whether eventType is in the allow-list.
func (m *Mapper) IsSupported(eventType string) bool {
	_, ok := m.eventMap[eventType]
	return ok
}

// CommandTypes returns every command type the mapper can produce, sorted for
// stable iteration. The publisher validates its routing table against this
// set at startup.
func (m *Mapper) CommandTypes() []CommandType {
	out := make([]CommandType, 0, len(m.eventMap))
	for _, commandType := range m.eventMap {
		out = append(out, commandType)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
