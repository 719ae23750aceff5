// Package session runs downloads end to end: one item goes through fetch,
// rename, metadata, similar-file scan, duplicate resolution, placement and
// recording, in that order.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jaa/ytmp3/internal/adapters/ytdlp"
	"github.com/jaa/ytmp3/internal/dedupe"
	"github.com/jaa/ytmp3/internal/engine"
	"github.com/jaa/ytmp3/internal/fileops"
	"github.com/jaa/ytmp3/internal/media"
	"github.com/jaa/ytmp3/internal/output"
	"github.com/jaa/ytmp3/internal/store"
	"go.uber.org/zap"
)

// StagingDirName is created under every target directory while a fetch is
// in flight.
const StagingDirName = ".ytmp3-staging"

const rateLimitAdvice = "YouTube is rate limiting requests: wait a while, use a cookies file, or switch network"

// ErrCancelled means the user backed out of a prompt mid-item.
var ErrCancelled = errors.New("cancelled by user")

// Fetcher is the download half of the yt-dlp client.
type Fetcher interface {
	BuildFetchSpec(req ytdlp.FetchRequest) (engine.ExecSpec, error)
	FetchAsAudio(ctx context.Context, req ytdlp.FetchRequest) (string, error)
}

type SimilarChoice int

const (
	// SimilarKeepAll keeps the new file next to the similar ones.
	SimilarKeepAll SimilarChoice = iota
	// SimilarKeepNew keeps the new file and deletes the similar ones.
	SimilarKeepNew
	// SimilarDeleteNew drops the new download.
	SimilarDeleteNew
)

// Prompter answers the questions a download can raise.
type Prompter interface {
	ConfirmOverwrite(ctx context.Context, path string) (bool, error)
	// RenameTo asks for another file name. An empty answer cancels.
	RenameTo(ctx context.Context, taken string) (string, error)
	ResolveSimilar(ctx context.Context, filename string, similar []media.SimilarFile) (SimilarChoice, error)
}

type Request struct {
	URL       string
	Name      string
	Category  string
	TargetDir string
}

type Outcome struct {
	Path      string
	Filename  string
	Metadata  media.TrackMetadata
	Decision  dedupe.Decision
	Record    store.Row
	Persisted bool
	Discarded bool
	Planned   string
}

type Pipeline struct {
	Fetcher  Fetcher
	Metadata media.MetadataSource
	Resolver *dedupe.Resolver
	Recorder *store.Recorder
	Prompter Prompter
	Emitter  output.EventEmitter
	Logger   *zap.Logger
	DryRun   bool
	Now      func() time.Time
	NewID    func() string
}

func (p *Pipeline) defaults() {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.NewID == nil {
		p.NewID = uuid.NewString
	}
}

// Process takes one URL all the way to a recorded file.
func (p *Pipeline) Process(ctx context.Context, req Request) (Outcome, error) {
	p.defaults()
	if strings.TrimSpace(req.TargetDir) == "" {
		return Outcome{}, errors.New("target directory is not set")
	}
	name := ""
	if strings.TrimSpace(req.Name) != "" {
		name = media.Stem(media.MP3Name(req.Name))
	}

	if p.DryRun {
		spec, err := p.Fetcher.BuildFetchSpec(ytdlp.FetchRequest{URL: req.URL, Dir: req.TargetDir, Name: name})
		if err != nil {
			return Outcome{}, err
		}
		p.emit(output.LevelInfo, output.EventDownloadPlanned, spec.DisplayCommand, map[string]any{"url": req.URL, "target_dir": req.TargetDir})
		return Outcome{Planned: spec.DisplayCommand}, nil
	}

	if err := os.MkdirAll(req.TargetDir, 0o755); err != nil {
		return Outcome{}, fmt.Errorf("create target directory: %w", err)
	}
	stagingRoot := filepath.Join(req.TargetDir, StagingDirName)
	staging := filepath.Join(stagingRoot, p.NewID())
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return Outcome{}, fmt.Errorf("create staging directory: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(staging)
		_ = os.Remove(stagingRoot)
	}()

	fetched, err := p.Fetcher.FetchAsAudio(ctx, ytdlp.FetchRequest{URL: req.URL, Dir: staging, Name: name})
	if err != nil {
		if errors.Is(err, ytdlp.ErrRateLimited) {
			p.emit(output.LevelWarn, output.EventRateLimited, rateLimitAdvice, map[string]any{"url": req.URL})
		}
		return Outcome{}, err
	}
	p.emit(output.LevelInfo, output.EventDownloadDone, fmt.Sprintf("downloaded %s", filepath.Base(fetched)), map[string]any{"url": req.URL})

	filename := filepath.Base(fetched)
	if name != "" {
		filename, err = p.chooseFilename(ctx, req.TargetDir, media.MP3Name(name))
		if err != nil {
			return Outcome{}, err
		}
	}
	outcome := Outcome{Filename: filename}

	meta, metaErr := p.Metadata.Read(ctx, fetched)
	if metaErr != nil {
		p.Logger.Warn("metadata read failed, using defaults", zap.String("path", fetched), zap.Error(metaErr))
		p.emit(output.LevelWarn, output.EventMetadata, fmt.Sprintf("could not read tags of %s; using defaults", filename), nil)
	}
	outcome.Metadata = meta

	discard, err := p.handleSimilar(ctx, req.TargetDir, filename, meta)
	if err != nil {
		return outcome, err
	}
	if discard {
		outcome.Discarded = true
		return outcome, nil
	}

	size, _ := fileSize(fetched)
	rows, err := p.Recorder.MasterRows(ctx)
	if err != nil {
		placed, placeErr := p.place(fetched, req.TargetDir, fileops.FreeName(req.TargetDir, filename))
		outcome.Path = placed
		p.recordFailed(filename, err)
		return outcome, errors.Join(err, placeErr)
	}

	decision, err := p.Resolver.Resolve(ctx, rows, dedupe.NewFile{
		Path:      fetched,
		Filename:  filename,
		TargetDir: req.TargetDir,
		Metadata:  meta,
		SizeBytes: size,
	})
	if err != nil {
		return outcome, err
	}
	outcome.Decision = decision
	if !decision.ShouldPersist {
		outcome.Discarded = true
		return outcome, nil
	}

	recordName := filename
	switch decision.Disposition {
	case dedupe.KeepBothVersioned:
		if decision.VersionPath == "" {
			return outcome, decision.CleanupErr
		}
		outcome.Path = decision.VersionPath
		if rel, relErr := filepath.Rel(req.TargetDir, decision.VersionPath); relErr == nil {
			recordName = filepath.ToSlash(rel)
		}
	default:
		outcome.Path, err = p.place(fetched, req.TargetDir, filename)
		if err != nil {
			return outcome, err
		}
	}

	rec := store.Record{
		Filename:  recordName,
		SourceURL: req.URL,
		Title:     meta.Title,
		Artist:    meta.Artist,
		Album:     meta.Album,
		Duration:  meta.Duration,
		FileSize:  media.FileSize(outcome.Path),
		Category:  req.Category,
	}
	if decision.Disposition == dedupe.KeepNewAndUpdate {
		err = p.Recorder.Replace(ctx, decision.RowsToUpdate, rec)
	} else {
		outcome.Record, err = p.Recorder.Add(ctx, rec)
	}
	if err != nil {
		p.recordFailed(recordName, err)
		return outcome, err
	}

	outcome.Persisted = true
	p.emit(output.LevelInfo, output.EventRecordSaved,
		fmt.Sprintf("saved %s (%s, %s)", recordName, rec.Duration, rec.FileSize),
		map[string]any{"filename": recordName, "path": outcome.Path, "disposition": decision.Disposition})
	return outcome, nil
}

// chooseFilename returns want unless it is taken and the user refuses to
// overwrite; then it asks for names until one is free.
func (p *Pipeline) chooseFilename(ctx context.Context, dir string, want string) (string, error) {
	if !exists(filepath.Join(dir, want)) {
		return want, nil
	}
	if p.Prompter != nil {
		ok, err := p.Prompter.ConfirmOverwrite(ctx, filepath.Join(dir, want))
		if err != nil {
			return "", err
		}
		if ok {
			return want, nil
		}
	}
	taken := want
	for {
		if p.Prompter == nil {
			return fileops.FreeName(dir, want), nil
		}
		answer, err := p.Prompter.RenameTo(ctx, taken)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(answer) == "" {
			return "", ErrCancelled
		}
		candidate := media.MP3Name(answer)
		if !exists(filepath.Join(dir, candidate)) {
			return candidate, nil
		}
		taken = candidate
	}
}

// handleSimilar reports whether the new download should be dropped.
func (p *Pipeline) handleSimilar(ctx context.Context, dir string, filename string, meta media.TrackMetadata) (bool, error) {
	similar, err := media.FindSimilar(ctx, p.Metadata, dir, meta, filepath.Join(dir, filename))
	if err != nil {
		p.Logger.Warn("similar-file scan failed", zap.String("dir", dir), zap.Error(err))
		return false, nil
	}
	if len(similar) == 0 || p.Prompter == nil {
		return false, nil
	}

	names := make([]string, 0, len(similar))
	for _, s := range similar {
		names = append(names, filepath.Base(s.Path))
	}
	p.emit(output.LevelWarn, output.EventSimilarFound,
		fmt.Sprintf("%d similar file(s) already in %s: %s", len(similar), dir, strings.Join(names, ", ")),
		map[string]any{"files": names})

	choice, err := p.Prompter.ResolveSimilar(ctx, filename, similar)
	if err != nil {
		return false, err
	}
	switch choice {
	case SimilarDeleteNew:
		return true, nil
	case SimilarKeepNew:
		for _, s := range similar {
			if err := os.Remove(s.Path); err != nil {
				p.emit(output.LevelWarn, output.EventSimilarFound, fmt.Sprintf("could not delete %s: %v", s.Path, err), nil)
			}
		}
	}
	return false, nil
}

func (p *Pipeline) place(src string, dir string, filename string) (string, error) {
	target := filepath.Join(dir, filename)
	if err := fileops.MoveFile(src, target); err != nil {
		return "", fmt.Errorf("place %s: %w", filename, err)
	}
	return target, nil
}

func (p *Pipeline) recordFailed(filename string, err error) {
	p.Logger.Error("record store failure", zap.String("filename", filename), zap.Error(err))
	p.emit(output.LevelError, output.EventRecordFailed,
		fmt.Sprintf("%s kept on disk but not logged: %v", filename, err),
		map[string]any{"filename": filename})
}

func (p *Pipeline) emit(level output.Level, name output.EventName, message string, details map[string]any) {
	if p.Emitter == nil {
		return
	}
	_ = p.Emitter.Emit(output.Event{
		Timestamp: p.Now(),
		Level:     level,
		Event:     name,
		Message:   message,
		Details:   details,
	})
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
