package relay

import (
	"context"
	"log/slog"
	"time"
)

// BatchProcessor is the one-shot operation the runner repeats.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, batchSize int) (Summary, error)
}

// Runner drives a processor at a fixed poll interval until the context is
// cancelled. A failing cycle is logged and the loop continues; availability
// wins over fast-fail. The sleep between cycles is interruptible so shutdown
// is never delayed by the poll interval.
type Runner struct {
	processor BatchProcessor
	interval  time.Duration
	batchSize int
	log       *slog.Logger
}

// NewRunner wires a runner; a non-positive interval defaults to one minute.
func NewRunner(processor BatchProcessor, interval time.Duration, batchSize int, log *slog.Logger) *Runner {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Runner{
		processor: processor,
		interval:  interval,
		batchSize: batchSize,
		log:       log,
	}
}

// Run blocks until ctx is cancelled, processing one batch per tick. The first
// cycle runs immediately.
func (r *Runner) Run(ctx context.Context) {
	r.log.Info("outbox relay started",
		slog.Duration("poll_interval", r.interval),
		slog.Int("batch_size", r.batchSize))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.cycle(ctx)

		select {
		case <-ctx.Done():
			r.log.Info("outbox relay stopped")
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) cycle(ctx context.Context) {
	summary, err := r.processor.ProcessBatch(ctx, r.batchSize)
	switch {
	case err != nil:
		r.log.Warn("cycle failed", slog.String("error", err.Error()))
	case summary.Processed == 0:
		r.log.Debug("cycle complete, no pending events")
	default:
		r.log.Info("cycle complete",
			slog.Int("processed", summary.Processed),
			slog.Int("sent", summary.Sent),
			slog.Int("failed", summary.Failed),
			slog.Int("skipped", summary.Skipped))
	}
}
