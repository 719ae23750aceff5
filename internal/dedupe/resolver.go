// Package dedupe decides what happens to a fresh download whose file name
// is already in the log.
package dedupe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jaa/ytmp3/internal/fileops"
	"github.com/jaa/ytmp3/internal/media"
	"github.com/jaa/ytmp3/internal/output"
	"github.com/jaa/ytmp3/internal/store"
	"go.uber.org/zap"
)

type Disposition string

const (
	KeepNew           Disposition = "KEEP_NEW"
	KeepNewAndUpdate  Disposition = "KEEP_NEW_AND_UPDATE"
	DiscardNew        Disposition = "DISCARD_NEW"
	KeepBothVersioned Disposition = "KEEP_BOTH_VERSIONED"
)

type PromptKind string

const (
	// PromptOverwriteNotLarger: same song, but the new file is not bigger.
	PromptOverwriteNotLarger PromptKind = "overwrite_not_larger"
	// PromptOverwriteDifferent: same file name, different title or duration.
	PromptOverwriteDifferent PromptKind = "overwrite_different"
)

type PromptContext struct {
	Filename    string
	NewTitle    string
	NewDuration string
	NewSize     string
	Existing    store.Row
}

// ConfirmFunc answers an overwrite question. Tests script it.
type ConfirmFunc func(kind PromptKind, pc PromptContext) bool

// NewFile describes the download under consideration. Path is where the
// file sits now; TargetDir is the folder it is headed for.
type NewFile struct {
	Path      string
	Filename  string
	TargetDir string
	Metadata  media.TrackMetadata
	SizeBytes int64
}

type Decision struct {
	Disposition   Disposition
	ShouldPersist bool
	// RowsToUpdate holds every exact and name-only match when the new file
	// replaces them; nil otherwise.
	RowsToUpdate []int64
	Exact        []store.Row
	NameOnly     []store.Row
	// VersionPath is where the new file's copy landed for KEEP_BOTH_VERSIONED.
	VersionPath string
	// CleanupErr reports a failed delete or copy. It never changes the
	// disposition.
	CleanupErr error
}

type Resolver struct {
	Confirm ConfirmFunc
	Emitter output.EventEmitter
	Logger  *zap.Logger
	Now     func() time.Time

	copyFile   func(src, dst string) error
	removeFile func(path string) error
}

func NewResolver(confirm ConfirmFunc, emitter output.EventEmitter, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		Confirm:    confirm,
		Emitter:    emitter,
		Logger:     logger,
		Now:        time.Now,
		copyFile:   fileops.CopyFile,
		removeFile: os.Remove,
	}
}

// Partition splits the rows sharing file.Filename into exact matches (same
// title and duration text) and name-only matches.
func Partition(rows []store.Row, file NewFile) (exact []store.Row, nameOnly []store.Row) {
	for _, row := range rows {
		if row.Filename != file.Filename {
			continue
		}
		if row.Title == file.Metadata.Title && row.Duration == file.Metadata.Duration {
			exact = append(exact, row)
		} else {
			nameOnly = append(nameOnly, row)
		}
	}
	return exact, nameOnly
}

// Resolve returns the disposition for file against rows and performs its
// file side effects: deleting the new file on DISCARD_NEW, copying both
// versions on KEEP_BOTH_VERSIONED.
func (r *Resolver) Resolve(ctx context.Context, rows []store.Row, file NewFile) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	r.defaults()

	exact, nameOnly := Partition(rows, file)
	decision := Decision{Exact: exact, NameOnly: nameOnly}
	matches := append(append([]store.Row{}, exact...), nameOnly...)

	switch {
	case len(exact) > 0:
		existingBytes := media.ParseSize(exact[0].FileSize)
		if file.SizeBytes > existingBytes || r.ask(PromptOverwriteNotLarger, file, exact[0]) {
			decision.Disposition = KeepNewAndUpdate
			decision.ShouldPersist = true
			decision.RowsToUpdate = rowIDs(matches)
			break
		}
		decision.Disposition = DiscardNew
		if err := r.removeFile(file.Path); err != nil {
			decision.CleanupErr = fmt.Errorf("delete discarded download %q: %w", file.Path, err)
		}

	case len(nameOnly) > 0:
		if r.ask(PromptOverwriteDifferent, file, nameOnly[0]) {
			decision.Disposition = KeepNewAndUpdate
			decision.ShouldPersist = true
			decision.RowsToUpdate = rowIDs(matches)
			break
		}
		decision.Disposition = KeepBothVersioned
		decision.ShouldPersist = true
		decision.VersionPath, decision.CleanupErr = r.version(file)

	default:
		decision.Disposition = KeepNew
		decision.ShouldPersist = true
	}

	r.report(file, decision)
	return decision, nil
}

func (r *Resolver) ask(kind PromptKind, file NewFile, existing store.Row) bool {
	if r.Confirm == nil {
		return false
	}
	return r.Confirm(kind, PromptContext{
		Filename:    file.Filename,
		NewTitle:    file.Metadata.Title,
		NewDuration: file.Metadata.Duration,
		NewSize:     media.FormatSize(file.SizeBytes),
		Existing:    existing,
	})
}

// VersionDir is <target>/<stem>_versions.
func VersionDir(targetDir string, filename string) string {
	return filepath.Join(targetDir, media.Stem(filename)+"_versions")
}

// version copies the library's current file and the new download side by
// side. A missing original is skipped; the new copy is what matters. Copies
// from earlier versioning of the same name are never overwritten.
func (r *Resolver) version(file NewFile) (string, error) {
	dir := VersionDir(file.TargetDir, file.Filename)
	var problems []error

	original := filepath.Join(file.TargetDir, file.Filename)
	if _, err := os.Stat(original); err == nil {
		if err := r.copyFile(original, filepath.Join(dir, fileops.FreeName(dir, "original_"+file.Filename))); err != nil {
			problems = append(problems, err)
		}
	} else {
		r.Logger.Warn("original file missing, versioning new file only", zap.String("path", original))
	}

	newPath := filepath.Join(dir, fileops.FreeName(dir, "new_"+file.Filename))
	if err := r.copyFile(file.Path, newPath); err != nil {
		problems = append(problems, err)
		newPath = ""
	}
	if len(problems) > 0 {
		return newPath, fmt.Errorf("version %s: %v", file.Filename, problems)
	}
	return newPath, nil
}

func (r *Resolver) report(file NewFile, decision Decision) {
	fields := []zap.Field{
		zap.String("filename", file.Filename),
		zap.String("disposition", string(decision.Disposition)),
		zap.Int("exact", len(decision.Exact)),
		zap.Int("name_only", len(decision.NameOnly)),
		zap.Int64s("rows_to_update", decision.RowsToUpdate),
	}
	if decision.CleanupErr != nil {
		r.Logger.Warn("duplicate resolved with cleanup error", append(fields, zap.Error(decision.CleanupErr))...)
	} else {
		r.Logger.Info("duplicate resolved", fields...)
	}

	if r.Emitter == nil || decision.Disposition == KeepNew {
		return
	}
	level := output.LevelInfo
	if decision.CleanupErr != nil {
		level = output.LevelWarn
	}
	_ = r.Emitter.Emit(output.Event{
		Timestamp: r.Now(),
		Level:     level,
		Event:     output.EventDuplicate,
		Message:   dispositionMessage(file, decision),
		Details: map[string]any{
			"filename":       file.Filename,
			"disposition":    decision.Disposition,
			"rows_to_update": decision.RowsToUpdate,
			"version_path":   decision.VersionPath,
		},
	})
}

func dispositionMessage(file NewFile, decision Decision) string {
	switch decision.Disposition {
	case KeepNewAndUpdate:
		return fmt.Sprintf("%s replaces %d existing record(s)", file.Filename, len(decision.RowsToUpdate))
	case DiscardNew:
		if decision.CleanupErr != nil {
			return fmt.Sprintf("kept existing %s; could not delete new download: %v", file.Filename, decision.CleanupErr)
		}
		return fmt.Sprintf("kept existing %s; new download deleted", file.Filename)
	case KeepBothVersioned:
		return fmt.Sprintf("kept both versions of %s in %s", file.Filename, VersionDir(file.TargetDir, file.Filename))
	default:
		return file.Filename
	}
}

func (r *Resolver) defaults() {
	if r.Logger == nil {
		r.Logger = zap.NewNop()
	}
	if r.Now == nil {
		r.Now = time.Now
	}
	if r.copyFile == nil {
		r.copyFile = fileops.CopyFile
	}
	if r.removeFile == nil {
		r.removeFile = os.Remove
	}
}

func rowIDs(rows []store.Row) []int64 {
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids
}
