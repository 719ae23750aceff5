package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jaa/ytmp3/internal/output"
)

type recordingEmitter struct {
	events []output.Event
}

func (r *recordingEmitter) Emit(event output.Event) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEmitter) count(name output.EventName) int {
	n := 0
	for _, event := range r.events {
		if event.Event == name {
			n++
		}
	}
	return n
}

func newTestBatcher(emitter output.EventEmitter) *Batcher {
	b := NewBatcher(emitter)
	b.NewID = func() string { return "batch-1" }
	return b
}

func TestBatcherContinuesOnError(t *testing.T) {
	emitter := &recordingEmitter{}
	b := newTestBatcher(emitter)

	var seen []string
	result, err := b.Run(context.Background(), ItemsFromInputs([]string{"a", "b", "c"}), func(ctx context.Context, item Item) error {
		seen = append(seen, item.Input)
		if item.Input == "b" {
			return errors.New("boom")
		}
		return nil
	}, BatchOptions{ContinueOnError: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != 3 {
		t.Fatalf("expected all items processed, got %v", seen)
	}
	if result.ID != "batch-1" || result.Total != 3 || result.Attempted != 3 || result.Succeeded != 2 || result.Failed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if emitter.count(output.EventItemFailed) != 1 || emitter.count(output.EventBatchFinished) != 1 {
		t.Fatalf("unexpected events: %+v", emitter.events)
	}
	for _, event := range emitter.events {
		if event.BatchID != "batch-1" {
			t.Fatalf("expected batch id on every event, got %+v", event)
		}
	}
}

func TestBatcherStopsOnFirstFailureWithoutContinue(t *testing.T) {
	b := newTestBatcher(nil)

	calls := 0
	result, err := b.Run(context.Background(), ItemsFromInputs([]string{"a", "b", "c"}), func(ctx context.Context, item Item) error {
		calls++
		return fmt.Errorf("failed %s", item.Input)
	}, BatchOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 || result.Attempted != 1 || result.Failed != 1 {
		t.Fatalf("expected stop after first failure, calls=%d result=%+v", calls, result)
	}
}

func TestBatcherTalliesRateLimitedFailures(t *testing.T) {
	b := newTestBatcher(nil)

	result, err := b.Run(context.Background(), ItemsFromInputs([]string{"a", "b"}), func(ctx context.Context, item Item) error {
		if item.Index == 1 {
			return fmt.Errorf("fetch: %w", ErrRateLimited)
		}
		return nil
	}, BatchOptions{ContinueOnError: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RateLimited != 1 || result.Failed != 1 || result.Succeeded != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestBatcherCanceledContextInterrupts(t *testing.T) {
	emitter := &recordingEmitter{}
	b := newTestBatcher(emitter)

	ctx, cancel := context.WithCancel(context.Background())
	result, err := b.Run(ctx, ItemsFromInputs([]string{"a", "b", "c"}), func(ctx context.Context, item Item) error {
		cancel()
		return ctx.Err()
	}, BatchOptions{ContinueOnError: true})
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
	if !result.Interrupted || result.Attempted != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	last := emitter.events[len(emitter.events)-1]
	if last.Event != output.EventBatchFinished || last.Level != output.LevelError {
		t.Fatalf("expected error-level batch_finished, got %+v", last)
	}
}

func TestBatcherDelayPausesAfterEachItem(t *testing.T) {
	emitter := &recordingEmitter{}
	b := newTestBatcher(emitter)

	var starts, ends []time.Time
	delay := 50 * time.Millisecond
	_, err := b.Run(context.Background(), ItemsFromInputs([]string{"a", "b", "c"}), func(ctx context.Context, item Item) error {
		starts = append(starts, time.Now())
		// Slower than the delay, so only a pause after the item can space them out.
		time.Sleep(2 * delay)
		ends = append(ends, time.Now())
		return nil
	}, BatchOptions{Delay: delay, ContinueOnError: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(starts) != 3 {
		t.Fatalf("expected three starts, got %d", len(starts))
	}
	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(ends[i-1]); gap < delay-5*time.Millisecond {
			t.Fatalf("expected a pause of %s after item %d, got %s", delay, i, gap)
		}
	}
	if emitter.count(output.EventItemWaiting) != 2 {
		t.Fatalf("expected two waiting events, got %d", emitter.count(output.EventItemWaiting))
	}
}

func TestBatcherCancelDuringPauseInterrupts(t *testing.T) {
	b := newTestBatcher(nil)

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	result, err := b.Run(ctx, ItemsFromInputs([]string{"a", "b"}), func(ctx context.Context, item Item) error {
		cancel()
		return nil
	}, BatchOptions{Delay: time.Minute, ContinueOnError: true})
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
	if result.Succeeded != 1 || result.Attempted != 1 || !result.Interrupted {
		t.Fatalf("unexpected result: %+v", result)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("cancel should end the pause early")
	}
}

func TestBatcherDryRunSkipsDelay(t *testing.T) {
	b := newTestBatcher(nil)

	start := time.Now()
	result, err := b.Run(context.Background(), ItemsFromInputs([]string{"a", "b", "c"}), func(ctx context.Context, item Item) error {
		return nil
	}, BatchOptions{Delay: time.Second, DryRun: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Succeeded != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("dry run should not wait between items")
	}
}
