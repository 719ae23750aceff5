package media

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// UnknownSize is recorded when a file cannot be stat'ed.
const UnknownSize = "unknown size"

const (
	kib = 1024
	mib = kib * 1024
	gib = mib * 1024
)

var sizeUnits = map[string]float64{
	"B":  1,
	"KB": kib,
	"MB": mib,
	"GB": gib,
}

// FormatSize renders a byte count with the largest unit that keeps the value
// at or above one: integer bytes, two decimals for KB and above.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	switch {
	case bytes < kib:
		return fmt.Sprintf("%d B", bytes)
	case bytes < mib:
		return fmt.Sprintf("%.2f KB", float64(bytes)/kib)
	case bytes < gib:
		return fmt.Sprintf("%.2f MB", float64(bytes)/mib)
	default:
		return fmt.Sprintf("%.2f GB", float64(bytes)/gib)
	}
}

// ParseSize inverts FormatSize. Anything it does not recognize parses to 0.
func ParseSize(text string) int64 {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) != 2 {
		return 0
	}
	multiplier, ok := sizeUnits[strings.ToUpper(fields[1])]
	if !ok {
		return 0
	}
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || value < 0 {
		return 0
	}
	return int64(value * multiplier)
}

// FileSize returns the formatted size of path, or UnknownSize.
func FileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return UnknownSize
	}
	return FormatSize(info.Size())
}
