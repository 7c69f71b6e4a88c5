package relay

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeBatchProcessor struct {
	calls  int
	errAt  int
	cancel context.CancelFunc
	stopAt int
}

func (f *fakeBatchProcessor) ProcessBatch(context.Context, int) (Summary, error) {
	f.calls++
	if f.calls >= f.stopAt {
		f.cancel()
	}
	if f.errAt != 0 && f.calls == f.errAt {
		return Summary{}, errors.New("fetch pending batch: connection refused")
	}
	return Summary{Processed: 1, Sent: 1}, nil
}

func TestRunner_RunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	processor := &fakeBatchProcessor{cancel: cancel, stopAt: 3}

	runner := NewRunner(processor, 5*time.Millisecond, 10, discardLogger())

	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("runner did not stop after cancellation")
	}

	if processor.calls < 3 {
		t.Errorf("expected at least 3 cycles, got %d", processor.calls)
	}
}

func TestRunner_ContinuesAfterFailedCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	processor := &fakeBatchProcessor{cancel: cancel, stopAt: 3, errAt: 1}

	runner := NewRunner(processor, 5*time.Millisecond, 10, discardLogger())

	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("runner must survive a failed cycle and keep polling")
	}

	if processor.calls < 3 {
		t.Errorf("expected the loop to continue past the failed cycle, got %d calls", processor.calls)
	}
}

func TestNewRunner_DefaultsInterval(t *testing.T) {
	runner := NewRunner(&fakeBatchProcessor{}, 0, 10, discardLogger())
	if runner.interval != time.Minute {
		t.Errorf("interval = %v, want 1m default", runner.interval)
	}
}
