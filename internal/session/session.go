package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jaa/ytmp3/internal/adapters/ytdlp"
	"github.com/jaa/ytmp3/internal/config"
	"github.com/jaa/ytmp3/internal/engine"
	"github.com/jaa/ytmp3/internal/output"
	"github.com/jaa/ytmp3/internal/search"
	"go.uber.org/zap"
)

// Session holds what stays fixed across one run of the menu or a command:
// the config, the output directory and the services built from them.
type Session struct {
	Config    config.Config
	OutputDir string
	Pipeline  *Pipeline
	Ranker    *search.Ranker
	Batcher   *engine.Batcher
	Emitter   output.EventEmitter
	Logger    *zap.Logger
	// Throttle, when set, is told how many items a batch holds and whether
	// the rate-limit preset applies before the batch starts.
	Throttle func(items int, enabled bool)
}

// Options apply to one download batch.
type Options struct {
	// Category is a configured category id; empty means uncategorized.
	Category string
	// Name overrides the file name of a single download.
	Name  string
	Delay time.Duration
	// RateLimit turns on the downloader's throttling preset for batches.
	RateLimit       bool
	ContinueOnError bool
	DryRun          bool
}

// OptionsFromConfig seeds batch options from the batch section.
func OptionsFromConfig(cfg config.Config) Options {
	delay := time.Duration(0)
	if cfg.Batch.RateLimit {
		delay = time.Duration(cfg.Batch.DelaySeconds) * time.Second
	}
	return Options{
		Delay:           delay,
		RateLimit:       cfg.Batch.RateLimit,
		ContinueOnError: cfg.Batch.ContinueOnError,
	}
}

// SetOutputDir changes where later downloads land.
func (s *Session) SetOutputDir(dir string) error {
	expanded, err := config.ExpandPath(strings.TrimSpace(dir))
	if err != nil {
		return err
	}
	if expanded == "" {
		return errors.New("output directory is empty")
	}
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	s.OutputDir = expanded
	s.Config.OutputDir = expanded
	s.logger().Info("output directory changed", zap.String("dir", expanded))
	return nil
}

func (s *Session) target(categoryID string) (string, string, error) {
	cfg := s.Config
	if s.OutputDir != "" {
		cfg.OutputDir = s.OutputDir
	}
	dir, err := cfg.CategoryDir(categoryID)
	if err != nil {
		return "", "", err
	}
	label := ""
	if categoryID != "" {
		category, _ := cfg.CategoryByID(categoryID)
		label = category.Label
	}
	return dir, label, nil
}

// DownloadURLs fetches every URL in order. Inputs that are not YouTube
// video URLs are skipped with a warning before the batch starts.
func (s *Session) DownloadURLs(ctx context.Context, inputs []string, opts Options) (engine.BatchResult, error) {
	targetDir, label, err := s.target(opts.Category)
	if err != nil {
		return engine.BatchResult{}, err
	}
	valid, skipped := FilterVideoURLs(inputs)
	for _, input := range skipped {
		s.emit(output.LevelWarn, output.EventItemFailed, fmt.Sprintf("skipping %q: not a YouTube video URL", input))
	}
	if len(valid) == 0 {
		return engine.BatchResult{}, errors.New("no valid YouTube URLs given")
	}
	name := ""
	if len(valid) == 1 {
		name = opts.Name
	}

	pipeline := s.pipeline(opts)
	handler := func(ctx context.Context, item engine.Item) error {
		_, err := pipeline.Process(ctx, Request{URL: item.Input, Name: name, Category: label, TargetDir: targetDir})
		return err
	}
	s.throttle(len(valid), opts)
	return s.batcher().Run(ctx, engine.ItemsFromInputs(valid), handler, batchOptions(opts))
}

// SearchMode picks how a song query turns into a URL.
type SearchMode int

const (
	SearchAuto SearchMode = iota
	SearchManual
)

// DownloadSongs searches each query, then downloads the chosen candidate
// under the query's own name. choose is consulted only in SearchManual.
func (s *Session) DownloadSongs(ctx context.Context, queries []string, mode SearchMode, choose search.ChooseFunc, opts Options) (engine.BatchResult, error) {
	if s.Ranker == nil {
		return engine.BatchResult{}, errors.New("search is not configured")
	}
	targetDir, label, err := s.target(opts.Category)
	if err != nil {
		return engine.BatchResult{}, err
	}
	clean := make([]string, 0, len(queries))
	for _, q := range queries {
		if q = strings.TrimSpace(q); q != "" {
			clean = append(clean, q)
		}
	}
	if len(clean) == 0 {
		return engine.BatchResult{}, errors.New("no song names given")
	}

	pipeline := s.pipeline(opts)
	handler := func(ctx context.Context, item engine.Item) error {
		var (
			result search.Result
			err    error
		)
		if mode == SearchManual {
			result, err = s.Ranker.Manual(ctx, item.Input, choose)
		} else {
			result, err = s.Ranker.Auto(ctx, item.Input)
		}
		if err != nil {
			return err
		}
		if result.Cancelled {
			return nil
		}
		if !result.Found {
			if errors.Is(result.Err, engine.ErrRateLimited) {
				s.emitDetails(output.LevelWarn, output.EventRateLimited, rateLimitAdvice, map[string]any{"query": item.Input})
				return fmt.Errorf("search %q: %w", item.Input, result.Err)
			}
			return fmt.Errorf("no suitable video found for %q", item.Input)
		}
		name := item.Input
		if len(clean) == 1 && strings.TrimSpace(opts.Name) != "" {
			name = opts.Name
		}
		_, err = pipeline.Process(ctx, Request{URL: result.Candidate.URL, Name: name, Category: label, TargetDir: targetDir})
		return err
	}
	s.throttle(len(clean), opts)
	return s.batcher().Run(ctx, engine.ItemsFromInputs(clean), handler, batchOptions(opts))
}

// ImportFile downloads the URLs listed in path.
func (s *Session) ImportFile(ctx context.Context, path string, opts Options) (engine.BatchResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return engine.BatchResult{}, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()
	urls, err := ReadURLList(f)
	if err != nil {
		return engine.BatchResult{}, fmt.Errorf("read import file %s: %w", path, err)
	}
	if len(urls) == 0 {
		return engine.BatchResult{}, fmt.Errorf("import file %s lists no URLs", path)
	}
	return s.DownloadURLs(ctx, urls, opts)
}

// ReadURLList reads one entry per line, skipping blanks and # comments.
func ReadURLList(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	out := []string{}
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}

// FilterVideoURLs splits inputs into accepted YouTube URLs and the rest.
func FilterVideoURLs(inputs []string) (valid []string, skipped []string) {
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if ytdlp.IsVideoURL(input) {
			valid = append(valid, input)
		} else {
			skipped = append(skipped, input)
		}
	}
	return valid, skipped
}

func (s *Session) pipeline(opts Options) *Pipeline {
	p := *s.Pipeline
	p.DryRun = p.DryRun || opts.DryRun
	if p.Emitter == nil {
		p.Emitter = s.Emitter
	}
	if p.Logger == nil {
		p.Logger = s.logger()
	}
	return &p
}

func (s *Session) throttle(items int, opts Options) {
	if s.Throttle != nil {
		s.Throttle(items, opts.RateLimit)
	}
}

func (s *Session) batcher() *engine.Batcher {
	if s.Batcher == nil {
		s.Batcher = engine.NewBatcher(s.Emitter)
	}
	return s.Batcher
}

func batchOptions(opts Options) engine.BatchOptions {
	return engine.BatchOptions{
		Delay:           opts.Delay,
		ContinueOnError: opts.ContinueOnError,
		DryRun:          opts.DryRun,
	}
}

func (s *Session) emit(level output.Level, name output.EventName, message string) {
	s.emitDetails(level, name, message, nil)
}

func (s *Session) emitDetails(level output.Level, name output.EventName, message string, details map[string]any) {
	if s.Emitter == nil {
		return
	}
	_ = s.Emitter.Emit(output.Event{Timestamp: time.Now(), Level: level, Event: name, Message: message, Details: details})
}

func (s *Session) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
