package compact

import (
	"fmt"
	"strings"
)

// TrackStatus is what the in-place status line shows for the download in
// flight.
type TrackStatus struct {
	Name      string
	Stage     string
	Thumbnail bool
	Tagged    bool
	// Percent is ignored unless Known is set; yt-dlp reports no progress
	// while it converts to mp3.
	Percent float64
	Known   bool
}

const barWidth = 16

// Render formats s as one terminal line.
func (s TrackStatus) Render() string {
	var b strings.Builder
	b.WriteString("[mp3] ")
	b.WriteString(s.Name)

	notes := make([]string, 0, 3)
	if stage := strings.TrimSpace(s.Stage); stage != "" {
		notes = append(notes, stage)
	}
	if s.Thumbnail {
		notes = append(notes, "cover")
	}
	if s.Tagged {
		notes = append(notes, "tags")
	}
	if len(notes) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(notes, ", "))
	}
	if s.Known {
		b.WriteString(" ")
		b.WriteString(ProgressBar(s.Percent, barWidth))
	}
	return b.String()
}

// ProgressBar draws percent as a fixed-width bar followed by the number.
func ProgressBar(percent float64, width int) string {
	if width <= 0 {
		width = barWidth
	}
	percent = min(max(percent, 0), 100)
	filled := min(int(percent/100*float64(width)), width)
	return fmt.Sprintf("[%s%s] %5.1f%%", strings.Repeat("#", filled), strings.Repeat("-", width-filled), percent)
}
