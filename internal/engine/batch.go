package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jaa/ytmp3/internal/output"
	"golang.org/x/time/rate"
)

var ErrInterrupted = errors.New("batch interrupted")

// ErrRateLimited marks failures caused by the remote side throttling us.
// Adapters wrap it so the batch can tally them separately.
var ErrRateLimited = errors.New("rate limited by remote")

// Batcher runs items one at a time. Items never overlap; Delay is a full
// pause between the end of one item and the start of the next.
type Batcher struct {
	Emitter output.EventEmitter
	Now     func() time.Time
	NewID   func() string
}

func NewBatcher(emitter output.EventEmitter) *Batcher {
	if emitter == nil {
		emitter = noOpEmitter{}
	}
	return &Batcher{
		Emitter: emitter,
		Now:     time.Now,
		NewID:   func() string { return uuid.NewString() },
	}
}

type noOpEmitter struct{}

func (noOpEmitter) Emit(event output.Event) error {
	return nil
}

func (b *Batcher) Run(ctx context.Context, items []Item, handle ItemHandler, opts BatchOptions) (BatchResult, error) {
	if b.Now == nil {
		b.Now = time.Now
	}
	if b.NewID == nil {
		b.NewID = func() string { return uuid.NewString() }
	}
	if b.Emitter == nil {
		b.Emitter = noOpEmitter{}
	}

	result := BatchResult{ID: b.NewID(), Total: len(items)}
	_ = b.Emitter.Emit(output.Event{
		Timestamp: b.Now(),
		Level:     output.LevelInfo,
		Event:     output.EventBatchStarted,
		BatchID:   result.ID,
		Message:   fmt.Sprintf("batch started (%d item(s))", result.Total),
		Details: map[string]any{
			"total":         result.Total,
			"delay_seconds": opts.Delay.Seconds(),
			"dry_run":       opts.DryRun,
		},
	})

	for i, item := range items {
		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}

		result.Attempted++
		_ = b.Emitter.Emit(output.Event{
			Timestamp: b.Now(),
			Level:     output.LevelInfo,
			Event:     output.EventItemStarted,
			BatchID:   result.ID,
			ItemIndex: item.Index,
			Message:   fmt.Sprintf("[%d/%d] %s", item.Index, result.Total, item.Input),
			Details: map[string]any{
				"input": item.Input,
			},
		})

		start := b.Now()
		err := handle(ctx, item)
		switch {
		case err == nil:
			result.Succeeded++
			_ = b.Emitter.Emit(output.Event{
				Timestamp: b.Now(),
				Level:     output.LevelInfo,
				Event:     output.EventItemFinished,
				BatchID:   result.ID,
				ItemIndex: item.Index,
				Message:   fmt.Sprintf("[%d/%d] done", item.Index, result.Total),
				Details: map[string]any{
					"duration_ms": b.Now().Sub(start).Milliseconds(),
				},
			})
		case errors.Is(err, ErrInterrupted) || errors.Is(err, context.Canceled):
			result.Interrupted = true
			_ = b.Emitter.Emit(output.Event{
				Timestamp: b.Now(),
				Level:     output.LevelError,
				Event:     output.EventItemFailed,
				BatchID:   result.ID,
				ItemIndex: item.Index,
				Message:   fmt.Sprintf("[%d/%d] interrupted", item.Index, result.Total),
			})
		default:
			result.Failed++
			if errors.Is(err, ErrRateLimited) {
				result.RateLimited++
			}
			_ = b.Emitter.Emit(output.Event{
				Timestamp: b.Now(),
				Level:     output.LevelError,
				Event:     output.EventItemFailed,
				BatchID:   result.ID,
				ItemIndex: item.Index,
				Message:   fmt.Sprintf("[%d/%d] failed: %v", item.Index, result.Total, err),
				Details: map[string]any{
					"input":        item.Input,
					"rate_limited": errors.Is(err, ErrRateLimited),
				},
			})
		}
		if result.Interrupted || (err != nil && !opts.ContinueOnError) {
			break
		}

		if i == len(items)-1 || opts.Delay <= 0 || opts.DryRun {
			continue
		}
		_ = b.Emitter.Emit(output.Event{
			Timestamp: b.Now(),
			Level:     output.LevelInfo,
			Event:     output.EventItemWaiting,
			BatchID:   result.ID,
			ItemIndex: items[i+1].Index,
			Message:   fmt.Sprintf("waiting %s before the next item", opts.Delay),
		})
		if err := pause(ctx, opts.Delay); err != nil {
			result.Interrupted = true
			break
		}
	}

	details := map[string]any{
		"total":        result.Total,
		"attempted":    result.Attempted,
		"succeeded":    result.Succeeded,
		"failed":       result.Failed,
		"rate_limited": result.RateLimited,
	}
	if result.Interrupted {
		_ = b.Emitter.Emit(output.Event{
			Timestamp: b.Now(),
			Level:     output.LevelError,
			Event:     output.EventBatchFinished,
			BatchID:   result.ID,
			Message:   "batch interrupted",
			Details:   details,
		})
		return result, ErrInterrupted
	}

	_ = b.Emitter.Emit(output.Event{
		Timestamp: b.Now(),
		Level:     output.LevelInfo,
		Event:     output.EventBatchFinished,
		BatchID:   result.ID,
		Message:   fmt.Sprintf("batch finished: succeeded=%d/%d failed=%d", result.Succeeded, result.Total, result.Failed),
		Details:   details,
	})
	return result, nil
}

// pause blocks for the whole delay or until ctx is done. The limiter's only
// token is spent up front so Wait has to refill it.
func pause(ctx context.Context, delay time.Duration) error {
	limiter := rate.NewLimiter(rate.Every(delay), 1)
	limiter.Allow()
	return limiter.Wait(ctx)
}

// ItemsFromInputs numbers inputs from 1.
func ItemsFromInputs(inputs []string) []Item {
	items := make([]Item, 0, len(inputs))
	for i, input := range inputs {
		items = append(items, Item{Index: i + 1, Input: input})
	}
	return items
}
