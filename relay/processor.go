package relay

import (
	"context"
	"fmt"
	"log/slog"

	"commandrelay/inbox"
	"commandrelay/outbox"
)

// OutboxStore is the outbox surface the processor drives.
type OutboxStore interface {
	FindPendingBatch(ctx context.Context, limit int) ([]outbox.Event, error)
	Claim(ctx context.Context, id string) (bool, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, reason string) error
	ResetToPending(ctx context.Context, id string) error
}

// InboxStore is the idempotency surface the processor drives.
type InboxStore interface {
	FindByID(ctx context.Context, id string) (*inbox.Command, error)
	MarkEnqueued(ctx context.Context, id string) (bool, error)
}

// TaskPublisher submits exactly one queue task per successful call.
type TaskPublisher interface {
	Publish(ctx context.Context, event outbox.Event, command *inbox.Command) error
}

// Summary reports the outcome counts of one batch cycle. Processed counts
// every event the cycle touched; Skipped covers both contention no-ops and
// transient failures left PENDING for the next cycle.
type Summary struct {
	Processed int
	Sent      int
	Failed    int
	Skipped   int
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSent
	outcomeFailed
)

// Processor orchestrates one batch cycle: fetch candidates, claim each row,
// resolve its command, publish, finalize status and classify failures.
type Processor struct {
	events    OutboxStore
	commands  InboxStore
	publisher TaskPublisher
	mapper    *outbox.Mapper
	log       *slog.Logger
}

// NewProcessor wires the processor; every collaborator is injected explicitly.
func NewProcessor(events OutboxStore, commands InboxStore, publisher TaskPublisher, mapper *outbox.Mapper, log *slog.Logger) *Processor {
	return &Processor{
		events:    events,
		commands:  commands,
		publisher: publisher,
		mapper:    mapper,
		log:       log,
	}
}

// ProcessBatch claims and relays up to batchSize pending events. Events fail
// independently: one event's failure never aborts the rest of the batch. Only
// a failure to fetch the batch itself is fatal for the cycle and returned.
func (p *Processor) ProcessBatch(ctx context.Context, batchSize int) (Summary, error) {
	events, err := p.events.FindPendingBatch(ctx, batchSize)
	if err != nil {
		return Summary{}, fmt.Errorf("relay: fetch pending batch: %w", err)
	}

	var summary Summary
	if len(events) == 0 {
		p.log.Debug("no pending events")
		return summary, nil
	}

	p.log.Info("processing pending events", slog.Int("count", len(events)))

	for _, event := range events {
		switch p.processEvent(ctx, event) {
		case outcomeSent:
			summary.Sent++
		case outcomeFailed:
			summary.Failed++
		case outcomeSkipped:
			summary.Skipped++
		}
		summary.Processed++
	}

	return summary, nil
}

func (p *Processor) processEvent(ctx context.Context, event outbox.Event) outcome {
	claimed, err := p.events.Claim(ctx, event.ID)
	if err != nil {
		p.log.Error("claim errored",
			slog.String("outbox_id", event.ID),
			slog.String("error", err.Error()))
		return outcomeFailed
	}
	if !claimed {
		p.log.Info("event already claimed, skipping", slog.String("outbox_id", event.ID))
		return outcomeSkipped
	}

	command, err := p.commands.FindByID(ctx, event.AggregateID)
	if err != nil {
		return p.settleFailure(ctx, event, err)
	}
	if command == nil {
		p.log.Warn("command not found in inbox",
			slog.String("outbox_id", event.ID),
			slog.String("aggregate_id", event.AggregateID))
		return p.fail(ctx, event, fmt.Sprintf("command not found: %s", event.AggregateID))
	}

	if !p.mapper.IsSupported(event.EventType) {
		p.log.Warn("unsupported event type",
			slog.String("outbox_id", event.ID),
			slog.String("event_type", event.EventType))
		return p.fail(ctx, event, fmt.Sprintf("unsupported event type: %s", event.EventType))
	}

	if err := p.publisher.Publish(ctx, event, command); err != nil {
		return p.settleFailure(ctx, event, err)
	}

	// False means a previous cycle already flipped the inbox row after a
	// partial failure; the command is enqueued either way.
	if _, err := p.commands.MarkEnqueued(ctx, command.ID); err != nil {
		return p.settleFailure(ctx, event, err)
	}

	if err := p.events.MarkSent(ctx, event.ID); err != nil {
		return p.settleFailure(ctx, event, err)
	}

	p.log.Info("event relayed",
		slog.String("outbox_id", event.ID),
		slog.String("event_type", event.EventType),
		slog.String("command_id", command.ID))

	return outcomeSent
}

// settleFailure routes a post-claim failure: transient errors put the event
// back in line for the next cycle, anything else is terminal.
func (p *Processor) settleFailure(ctx context.Context, event outbox.Event, cause error) outcome {
	if isTransient(cause) {
		if err := p.events.ResetToPending(ctx, event.ID); err != nil {
			p.log.Error("reset to pending errored",
				slog.String("outbox_id", event.ID),
				slog.String("error", err.Error()))
			return outcomeFailed
		}
		p.log.Warn("transient failure, will retry",
			slog.String("outbox_id", event.ID),
			slog.String("error", cause.Error()))
		return outcomeSkipped
	}

	p.log.Error("permanent failure",
		slog.String("outbox_id", event.ID),
		slog.String("error", cause.Error()))
	return p.fail(ctx, event, cause.Error())
}

func (p *Processor) fail(ctx context.Context, event outbox.Event, reason string) outcome {
	if err := p.events.MarkFailed(ctx, event.ID, reason); err != nil {
		p.log.Error("mark failed errored",
			slog.String("outbox_id", event.ID),
			slog.String("error", err.Error()))
	}
	return outcomeFailed
}
