package media

import (
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeFilenameChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// SanitizeFilename replaces characters that are invalid in file names on
// common filesystems with underscores.
func SanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(name), "_")
}

// MP3Name returns the sanitized base name with a single .mp3 extension.
func MP3Name(base string) string {
	clean := SanitizeFilename(base)
	if strings.EqualFold(filepath.Ext(clean), ".mp3") {
		clean = strings.TrimSuffix(clean, filepath.Ext(clean))
	}
	return clean + ".mp3"
}

// Stem strips the directory and extension from a path.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
