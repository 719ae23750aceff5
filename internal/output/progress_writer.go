package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jaa/ytmp3/internal/output/compact"
)

type ProgressOptions struct {
	Interactive bool
}

// ProgressWriter condenses yt-dlp output for one download into a single
// in-place status line plus a persistent result line. Warnings and errors
// are passed through unchanged.
type ProgressWriter struct {
	dst         io.Writer
	interactive bool

	mu         sync.Mutex
	buf        []byte
	activeLine string
	track      trackState
}

type trackState struct {
	Name          string
	Stage         string
	Percent       float64
	ProgressKnown bool
	HasThumbnail  bool
	HasMetadata   bool
	AudioPath     string
	Already       bool
}

func NewProgressWriter(dst io.Writer) *ProgressWriter {
	return NewProgressWriterWithOptions(dst, ProgressOptions{
		Interactive: SupportsInPlaceUpdates(dst),
	})
}

func NewProgressWriterWithOptions(dst io.Writer, opts ProgressOptions) *ProgressWriter {
	return &ProgressWriter{
		dst:         dst,
		interactive: opts.Interactive,
		buf:         make([]byte, 0, 256),
	}
}

func SupportsInPlaceUpdates(dst io.Writer) bool {
	file, ok := dst.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func (w *ProgressWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, b := range p {
		switch b {
		case '\n', '\r':
			if err := w.flushLineLocked(); err != nil {
				return 0, err
			}
		default:
			w.buf = append(w.buf, b)
		}
	}
	return len(p), nil
}

// Flush is called by the runner after the process exits.
func (w *ProgressWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.flushLineLocked(); err != nil {
		return err
	}
	if err := w.finalizeTrackLocked(); err != nil {
		return err
	}
	return w.clearActiveLineLocked()
}

func (w *ProgressWriter) flushLineLocked() error {
	if len(w.buf) == 0 {
		return nil
	}

	line := strings.TrimSpace(string(w.buf))
	w.buf = w.buf[:0]
	if line == "" {
		return nil
	}
	return w.handleLineLocked(line)
}

func (w *ProgressWriter) handleLineLocked(line string) error {
	event, ok := compact.ParseLine(line)
	if ok {
		switch event.Kind {
		case compact.LineEventDownloadDestination:
			w.track.Name = trackNameFromPath(event.Text)
			return w.renderStatusLocked("downloading")
		case compact.LineEventProgress:
			w.track.Percent = event.Percent
			w.track.ProgressKnown = true
			return w.renderStatusLocked("downloading")
		case compact.LineEventAlreadyDownloaded:
			if w.track.Name == "" {
				w.track.Name = trackNameFromPath(event.Text)
			}
			w.track.Already = true
			return w.renderStatusLocked("already present")
		case compact.LineEventAudioDestination:
			w.track.AudioPath = event.Text
			if w.track.Name == "" {
				w.track.Name = trackNameFromPath(event.Text)
			}
			w.track.ProgressKnown = false
			return w.renderStatusLocked("converting to mp3")
		case compact.LineEventThumbnail:
			w.track.HasThumbnail = true
			return w.renderStatusLocked("thumbnail")
		case compact.LineEventMetadata:
			w.track.HasMetadata = true
			return w.renderStatusLocked("metadata")
		case compact.LineEventRateLimited:
			return w.printPersistentLocked(line)
		}
	}

	if shouldSuppressNoise(line) {
		return nil
	}
	return w.printPersistentLocked(line)
}

func (w *ProgressWriter) renderStatusLocked(stage string) error {
	w.track.Stage = stage
	if w.track.Name == "" || !w.interactive {
		return nil
	}

	status := compact.TrackStatus{
		Name:      w.track.Name,
		Stage:     stage,
		Thumbnail: w.track.HasThumbnail,
		Tagged:    w.track.HasMetadata,
		Percent:   w.track.Percent,
		Known:     w.track.ProgressKnown,
	}.Render()
	if status == w.activeLine {
		return nil
	}
	w.activeLine = status
	_, err := fmt.Fprintf(w.dst, "\r\033[2K%s", status)
	return err
}

func (w *ProgressWriter) finalizeTrackLocked() error {
	if strings.TrimSpace(w.track.Name) == "" || (w.track.AudioPath == "" && !w.track.Already) {
		w.track = trackState{}
		return nil
	}

	result := "[done]"
	if w.track.Already {
		result = "[skip]"
	}
	line := fmt.Sprintf("%s %s", result, w.track.Name)
	flags := []string{}
	if w.track.HasThumbnail {
		flags = append(flags, "cover")
	}
	if w.track.HasMetadata {
		flags = append(flags, "tags")
	}
	if w.track.Already {
		flags = append(flags, "already-present")
	}
	if len(flags) > 0 {
		line += " (" + strings.Join(flags, ", ") + ")"
	}

	w.track = trackState{}
	return w.printPersistentLocked(line)
}

func (w *ProgressWriter) printPersistentLocked(line string) error {
	if err := w.clearActiveLineLocked(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w.dst, line)
	return err
}

func (w *ProgressWriter) clearActiveLineLocked() error {
	if !w.interactive || w.activeLine == "" {
		return nil
	}
	w.activeLine = ""
	_, err := fmt.Fprint(w.dst, "\r\033[2K")
	return err
}

func shouldSuppressNoise(line string) bool {
	return strings.HasPrefix(line, "[youtube] ") ||
		strings.HasPrefix(line, "[youtube:tab] ") ||
		strings.HasPrefix(line, "[info] ") ||
		strings.HasPrefix(line, "[hlsnative] ") ||
		strings.HasPrefix(line, "[download] ") ||
		strings.HasPrefix(line, "Deleting original file ")
}

func trackNameFromPath(pathLike string) string {
	trimmed := strings.Trim(strings.TrimSpace(pathLike), "\"")
	base := filepath.Base(trimmed)
	ext := filepath.Ext(base)
	if ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
