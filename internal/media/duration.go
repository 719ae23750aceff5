package media

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatDuration renders seconds as "M:SS", or "H:MM:SS" from one hour up.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

// ParseDurationToSeconds accepts exactly two ("M:SS") or three ("H:MM:SS")
// colon separated unsigned integer components. Every component after the
// first must be below 60.
func ParseDurationToSeconds(text string) (int, error) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("duration %q: expected M:SS or H:MM:SS", text)
	}

	total := 0
	for i, part := range parts {
		if part == "" || strings.TrimLeft(part, "0123456789") != "" {
			return 0, fmt.Errorf("duration %q: component %q is not an unsigned integer", text, part)
		}
		value, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("duration %q: component %q: %w", text, part, err)
		}
		if i > 0 && value >= 60 {
			return 0, fmt.Errorf("duration %q: component %q is out of range", text, part)
		}
		total = total*60 + value
	}
	return total, nil
}

// FormatViewCount abbreviates a view count: 1.2K, 3.4M, 1.0B.
func FormatViewCount(views int64) string {
	switch {
	case views >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(views)/1_000_000_000)
	case views >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(views)/1_000_000)
	case views >= 1_000:
		return fmt.Sprintf("%.1fK", float64(views)/1_000)
	default:
		return strconv.FormatInt(views, 10)
	}
}
