package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jaa/ytmp3/internal/output"
	"go.uber.org/zap"
)

// ChooseFunc shows candidates to the user and returns a 1-based pick.
// Zero or an out-of-range index means the user cancelled.
type ChooseFunc func(ctx context.Context, query string, candidates []Candidate) (int, error)

// Result reports what a lookup settled on. Found is false when nothing
// survived filtering or the user cancelled; it is never an error.
type Result struct {
	Query      string
	Candidate  Candidate
	Found      bool
	Cancelled  bool
	UsedPlain  bool
	Considered int
	// Err is the search failure behind an empty result, if any.
	Err error
}

type Ranker struct {
	Searcher   Searcher
	AutoPolicy Policy
	// ManualPolicy is used for interactive selection: a wider window and more
	// results, since the user judges the titles.
	ManualPolicy Policy
	PreferFull   bool
	Emitter      output.EventEmitter
	Logger       *zap.Logger
	Now          func() time.Time
}

func NewRanker(searcher Searcher, auto Policy, manual Policy, emitter output.EventEmitter, logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{
		Searcher:     searcher,
		AutoPolicy:   auto,
		ManualPolicy: manual,
		PreferFull:   true,
		Emitter:      emitter,
		Logger:       logger,
		Now:          time.Now,
	}
}

// Candidates runs the primary (augmented) search and, when it leaves
// nothing, the plain query under the same bounds. The returned slice is
// filtered and ranked.
func (r *Ranker) Candidates(ctx context.Context, query string, p Policy) ([]Candidate, bool, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, false, errors.New("empty search query")
	}

	primary := query
	if r.PreferFull {
		primary = AugmentQuery(query)
	}

	ranked, primaryErr := r.lookup(ctx, primary, p)
	if len(ranked) > 0 {
		return ranked, false, nil
	}
	if primary == query || ctx.Err() != nil {
		return nil, false, primaryErr
	}

	r.logger().Info("no candidates for augmented query, retrying plain",
		zap.String("query", query), zap.String("augmented", primary))
	ranked, plainErr := r.lookup(ctx, query, p)
	if len(ranked) > 0 {
		return ranked, true, nil
	}
	return nil, true, errors.Join(primaryErr, plainErr)
}

func (r *Ranker) lookup(ctx context.Context, query string, p Policy) ([]Candidate, error) {
	raw, err := r.Searcher.Search(ctx, query, p.Limit)
	if err != nil {
		r.logger().Warn("search failed", zap.String("query", query), zap.Error(err))
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	ranked := Rank(Filter(raw, p))
	r.logger().Debug("search finished",
		zap.String("query", query),
		zap.Int("returned", len(raw)),
		zap.Int("kept", len(ranked)))
	r.emit(output.Event{
		Level:   output.LevelInfo,
		Event:   output.EventSearchResults,
		Message: fmt.Sprintf("%d of %d result(s) kept for %q", len(ranked), len(raw), query),
		Details: map[string]any{"query": query, "returned": len(raw), "kept": len(ranked)},
	})
	return ranked, nil
}

// Auto picks the top-ranked candidate without asking.
func (r *Ranker) Auto(ctx context.Context, query string) (Result, error) {
	ranked, plain, err := r.Candidates(ctx, query, r.AutoPolicy)
	result := Result{Query: query, UsedPlain: plain, Considered: len(ranked)}
	if len(ranked) == 0 {
		result.Err = err
		r.notFound(query, err)
		return result, ctx.Err()
	}
	result.Candidate = ranked[0]
	result.Found = true
	r.selected(result)
	return result, nil
}

// Manual lets choose pick from the ranked list.
func (r *Ranker) Manual(ctx context.Context, query string, choose ChooseFunc) (Result, error) {
	ranked, plain, err := r.Candidates(ctx, query, r.ManualPolicy)
	result := Result{Query: query, UsedPlain: plain, Considered: len(ranked)}
	if len(ranked) == 0 {
		result.Err = err
		r.notFound(query, err)
		return result, ctx.Err()
	}

	index, err := choose(ctx, query, ranked)
	if err != nil {
		return result, err
	}
	if index < 1 || index > len(ranked) {
		result.Cancelled = true
		return result, nil
	}
	result.Candidate = ranked[index-1]
	result.Found = true
	r.selected(result)
	return result, nil
}

func (r *Ranker) notFound(query string, cause error) {
	fields := []zap.Field{zap.String("query", query)}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	r.logger().Info("no candidate found", fields...)
	r.emit(output.Event{
		Level:   output.LevelWarn,
		Event:   output.EventSearchNotFound,
		Message: fmt.Sprintf("no suitable video found for %q", query),
		Details: map[string]any{"query": query},
	})
}

func (r *Ranker) selected(result Result) {
	r.logger().Info("candidate selected",
		zap.String("query", result.Query),
		zap.String("title", result.Candidate.Title),
		zap.String("url", result.Candidate.URL),
		zap.Bool("plain_query", result.UsedPlain))
	r.emit(output.Event{
		Level:   output.LevelInfo,
		Event:   output.EventSearchSelected,
		Message: fmt.Sprintf("selected: %s", result.Candidate.Title),
		Details: map[string]any{
			"query":      result.Query,
			"title":      result.Candidate.Title,
			"url":        result.Candidate.URL,
			"channel":    result.Candidate.Channel,
			"view_count": result.Candidate.ViewCount,
			"duration":   result.Candidate.DurationSeconds,
		},
	})
}

func (r *Ranker) emit(event output.Event) {
	if r.Emitter == nil {
		return
	}
	if r.Now == nil {
		r.Now = time.Now
	}
	event.Timestamp = r.Now()
	_ = r.Emitter.Emit(event)
}

func (r *Ranker) logger() *zap.Logger {
	if r.Logger == nil {
		r.Logger = zap.NewNop()
	}
	return r.Logger
}
