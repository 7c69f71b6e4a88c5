package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"commandrelay/outbox"
)

// ErrUnsupportedCommandType signals a command type with no parameter decoder.
// NewPublisher verifies the routing table against the mapper at startup, so
// seeing this during processing means the two tables diverged.
var ErrUnsupportedCommandType = errors.New("queue: unsupported command type")

// Task is the message submitted to the downstream queue for one command. It
// carries both the raw payload and the decoded, command-specific parameters so
// workers can rely on typed fields without re-parsing.
type Task struct {
	IdempotencyKey string             `json:"idempotencyKey"`
	Source         string             `json:"source"`
	Type           string             `json:"type"`
	ScopeKey       string             `json:"scopeKey"`
	Payload        json.RawMessage    `json:"payload"`
	CommandID      string             `json:"commandId"`
	CommandType    outbox.CommandType `json:"commandType"`
	Params         Params             `json:"params"`
}

// Params is the command-specific parameter variant carried by a task. Exactly
// one concrete type exists per supported command type.
type Params interface {
	isParams()
}

// CreateOccurrenceParams carries the fields of a create_occurrence command.
type CreateOccurrenceParams struct {
	ExternalID     string `json:"externalId"`
	OccurrenceType string `json:"type"`
	Description    string `json:"description"`
	ReportedAt     string `json:"reportedAt"`
}

// StartOccurrenceParams carries the fields of a start_occurrence command.
type StartOccurrenceParams struct {
	OccurrenceID string `json:"occurrenceId"`
}

// ResolveOccurrenceParams carries the fields of a resolve_occurrence command.
type ResolveOccurrenceParams struct {
	OccurrenceID string `json:"occurrenceId"`
}

// CancelOccurrenceParams carries the fields of a cancel_occurrence command.
type CancelOccurrenceParams struct {
	OccurrenceID string `json:"occurrenceId"`
}

// CreateDispatchParams carries the fields of a create_dispatch command.
type CreateDispatchParams struct {
	OccurrenceID string `json:"occurrenceId"`
	ResourceCode string `json:"resourceCode"`
}

// CloseDispatchParams carries the fields of a close_dispatch command.
type CloseDispatchParams struct {
	DispatchID string `json:"dispatchId"`
}

// UpdateDispatchStatusParams carries the fields of an update_dispatch_status command.
type UpdateDispatchStatusParams struct {
	DispatchID string `json:"dispatchId"`
	StatusCode string `json:"statusCode"`
}

func (CreateOccurrenceParams) isParams()     {}
func (StartOccurrenceParams) isParams()      {}
func (ResolveOccurrenceParams) isParams()    {}
func (CancelOccurrenceParams) isParams()     {}
func (CreateDispatchParams) isParams()       {}
func (CloseDispatchParams) isParams()        {}
func (UpdateDispatchStatusParams) isParams() {}

// decodeParams builds the typed variant for commandType from a loosely typed
// payload. A key that is absent or not a string decodes to the empty string;
// field absence is never an error here. ReportedAt is the one exception with a
// non-empty default: the current time in RFC3339.
func decodeParams(commandType outbox.CommandType, payload map[string]any, now func() time.Time) (Params, error) {
	str := func(key string) string {
		value, _ := payload[key].(string)
		return value
	}

	switch commandType {
	case outbox.CommandCreateOccurrence:
		params := CreateOccurrenceParams{
			ExternalID:     str("externalId"),
			OccurrenceType: str("type"),
			Description:    str("description"),
			ReportedAt:     str("reportedAt"),
		}
		if params.ReportedAt == "" {
			params.ReportedAt = now().Format(time.RFC3339)
		}
		return params, nil
	case outbox.CommandStartOccurrence:
		return StartOccurrenceParams{OccurrenceID: str("occurrenceId")}, nil
	case outbox.CommandResolveOccurrence:
		return ResolveOccurrenceParams{OccurrenceID: str("occurrenceId")}, nil
	case outbox.CommandCancelOccurrence:
		return CancelOccurrenceParams{OccurrenceID: str("occurrenceId")}, nil
	case outbox.CommandCreateDispatch:
		return CreateDispatchParams{
			OccurrenceID: str("occurrenceId"),
			ResourceCode: str("resourceCode"),
		}, nil
	case outbox.CommandCloseDispatch:
		return CloseDispatchParams{DispatchID: str("dispatchId")}, nil
	case outbox.CommandUpdateDispatchStatus:
		return UpdateDispatchStatusParams{
			DispatchID: str("dispatchId"),
			StatusCode: str("statusCode"),
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedCommandType, commandType)
}
