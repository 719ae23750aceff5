package compact

import (
	"regexp"
	"strconv"
	"strings"
)

var downloadProgressPattern = regexp.MustCompile(`^\[download\]\s+([0-9]+(?:\.[0-9]+)?)% of`)
var downloadDestinationPattern = regexp.MustCompile(`^\[download\] Destination: (.+)$`)
var alreadyDownloadedPattern = regexp.MustCompile(`^\[download\] (.+) has already been downloaded$`)
var extractAudioDestinationPattern = regexp.MustCompile(`^\[ExtractAudio\] Destination: (.+)$`)
var extractAudioSkippedPattern = regexp.MustCompile(`^\[ExtractAudio\] Not converting audio (.+); file is already in target format`)
var rateLimitPattern = regexp.MustCompile(`(?i)HTTP Error 429|Too Many Requests`)

type LineEventKind string

const (
	LineEventDownloadDestination LineEventKind = "download_destination"
	LineEventAlreadyDownloaded   LineEventKind = "already_downloaded"
	LineEventProgress            LineEventKind = "progress"
	LineEventAudioDestination    LineEventKind = "audio_destination"
	LineEventThumbnail           LineEventKind = "thumbnail"
	LineEventMetadata            LineEventKind = "metadata"
	LineEventRateLimited         LineEventKind = "rate_limited"
)

type LineEvent struct {
	Kind    LineEventKind
	Percent float64
	Text    string
}

// ParseLine classifies one line of yt-dlp output.
func ParseLine(line string) (LineEvent, bool) {
	line = strings.TrimSpace(line)
	if match := extractAudioDestinationPattern.FindStringSubmatch(line); len(match) == 2 {
		return LineEvent{Kind: LineEventAudioDestination, Text: unquote(match[1])}, true
	}
	if match := extractAudioSkippedPattern.FindStringSubmatch(line); len(match) == 2 {
		return LineEvent{Kind: LineEventAudioDestination, Text: unquote(match[1])}, true
	}
	if match := downloadDestinationPattern.FindStringSubmatch(line); len(match) == 2 {
		return LineEvent{Kind: LineEventDownloadDestination, Text: unquote(match[1])}, true
	}
	if match := alreadyDownloadedPattern.FindStringSubmatch(line); len(match) == 2 {
		return LineEvent{Kind: LineEventAlreadyDownloaded, Text: unquote(match[1])}, true
	}
	if match := downloadProgressPattern.FindStringSubmatch(line); len(match) == 2 {
		percent, _ := strconv.ParseFloat(match[1], 64)
		return LineEvent{Kind: LineEventProgress, Percent: percent}, true
	}
	if strings.HasPrefix(line, "[info] Writing video thumbnail") || strings.HasPrefix(line, "[EmbedThumbnail] ") {
		return LineEvent{Kind: LineEventThumbnail}, true
	}
	if strings.HasPrefix(line, "[Metadata] ") {
		return LineEvent{Kind: LineEventMetadata}, true
	}
	if rateLimitPattern.MatchString(line) {
		return LineEvent{Kind: LineEventRateLimited, Text: line}, true
	}
	return LineEvent{}, false
}

// FinalAudioPath scans captured output for the last file the audio
// extraction step produced (or kept).
func FinalAudioPath(output string) string {
	path := ""
	for _, line := range strings.Split(output, "\n") {
		if event, ok := ParseLine(line); ok && event.Kind == LineEventAudioDestination {
			path = event.Text
		}
	}
	return path
}

// MentionsRateLimit reports whether any line carries a 429 marker.
func MentionsRateLimit(output string) bool {
	return rateLimitPattern.MatchString(output)
}

func unquote(raw string) string {
	return strings.Trim(strings.TrimSpace(raw), "\"")
}
