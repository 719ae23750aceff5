package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"
	"github.com/jaa/ytmp3/internal/engine"
	"go.uber.org/zap"
)

const (
	UnknownTitle    = "unknown title"
	UnknownArtist   = "unknown artist"
	UnknownAlbum    = "unknown album"
	UnknownDuration = "unknown duration"
)

// TrackMetadata is the tag view of one local audio file. Duration is
// FormatDuration text, or UnknownDuration.
type TrackMetadata struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	Duration string `json:"duration"`
}

func DefaultMetadata() TrackMetadata {
	return TrackMetadata{
		Title:    UnknownTitle,
		Artist:   UnknownArtist,
		Album:    UnknownAlbum,
		Duration: UnknownDuration,
	}
}

// DurationSeconds reports the parsed duration, false when it is unknown.
func (m TrackMetadata) DurationSeconds() (int, bool) {
	seconds, err := ParseDurationToSeconds(m.Duration)
	if err != nil {
		return 0, false
	}
	return seconds, true
}

type tagSet struct {
	Title        string
	Artist       string
	Album        string
	LengthMillis int
}

// Reader extracts TrackMetadata from MP3 files. Tags come from the ID3v2
// header; duration comes from ffprobe when FFprobe is set, else from the
// TLEN frame.
type Reader struct {
	Runner  engine.ExecRunner
	FFprobe string
	Timeout time.Duration
	Logger  *zap.Logger

	openTags func(path string) (tagSet, error)
}

func NewReader(runner engine.ExecRunner, ffprobe string, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		Runner:   runner,
		FFprobe:  strings.TrimSpace(ffprobe),
		Timeout:  30 * time.Second,
		Logger:   logger,
		openTags: readID3Tags,
	}
}

// Read never fails past its boundary: missing tags and probe errors leave
// the matching default in place and are reported through the returned error.
func (r *Reader) Read(ctx context.Context, path string) (TrackMetadata, error) {
	meta := DefaultMetadata()
	logger := r.logger()

	if _, err := os.Stat(path); err != nil {
		return meta, fmt.Errorf("read metadata %s: %w", path, err)
	}

	var problems []error
	openTags := r.openTags
	if openTags == nil {
		openTags = readID3Tags
	}
	tags, err := openTags(path)
	if err != nil {
		problems = append(problems, fmt.Errorf("read tags: %w", err))
	}
	if value := strings.TrimSpace(tags.Title); value != "" {
		meta.Title = value
	}
	if value := strings.TrimSpace(tags.Artist); value != "" {
		meta.Artist = value
	}
	if value := strings.TrimSpace(tags.Album); value != "" {
		meta.Album = value
	}

	seconds, probeErr := r.probeSeconds(ctx, path)
	switch {
	case probeErr == nil:
		meta.Duration = FormatDuration(seconds)
	case tags.LengthMillis > 0:
		meta.Duration = FormatDuration(tags.LengthMillis / 1000)
	default:
		problems = append(problems, probeErr)
	}

	if len(problems) > 0 {
		err := fmt.Errorf("read metadata %s: %w", path, errors.Join(problems...))
		logger.Warn("metadata incomplete", zap.String("path", path), zap.Error(err))
		return meta, err
	}
	return meta, nil
}

var errNoProbe = errors.New("duration unavailable: no ffprobe configured and no TLEN frame")

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (r *Reader) probeSeconds(ctx context.Context, path string) (int, error) {
	if r.FFprobe == "" || r.Runner == nil {
		return 0, errNoProbe
	}
	spec := engine.ExecSpec{
		Bin:            r.FFprobe,
		Args:           []string{"-v", "error", "-show_entries", "format=duration", "-of", "json", path},
		Timeout:        r.Timeout,
		Quiet:          true,
		DisplayCommand: fmt.Sprintf("%s -show_entries format=duration %q", r.FFprobe, path),
	}
	result := r.Runner.Run(ctx, spec)
	if result.ExitCode != 0 {
		return 0, fmt.Errorf("ffprobe exited with code %d: %s", result.ExitCode, strings.TrimSpace(result.StderrTail))
	}
	return parseProbeDuration(result.StdoutTail)
}

func parseProbeDuration(payload string) (int, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal([]byte(payload), &probe); err != nil {
		return 0, fmt.Errorf("decode ffprobe output: %w", err)
	}
	raw := strings.TrimSpace(probe.Format.Duration)
	if raw == "" {
		return 0, fmt.Errorf("ffprobe reported no duration")
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 || math.IsNaN(value) {
		return 0, fmt.Errorf("ffprobe duration %q is invalid", raw)
	}
	return int(value), nil
}

func readID3Tags(path string) (tagSet, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return tagSet{}, err
	}
	defer tag.Close()

	set := tagSet{
		Title:  tag.Title(),
		Artist: tag.Artist(),
		Album:  tag.Album(),
	}
	if length := strings.TrimSpace(tag.GetTextFrame(tag.CommonID("Length")).Text); length != "" {
		if millis, convErr := strconv.Atoi(length); convErr == nil {
			set.LengthMillis = millis
		}
	}
	return set, nil
}

func (r *Reader) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
