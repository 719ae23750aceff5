package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FreeName returns filename, or "stem (n).ext" for the first n from 2 that
// nothing in dir uses yet.
func FreeName(dir string, filename string) string {
	if !taken(filepath.Join(dir, filename)) {
		return filename
	}
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if !taken(filepath.Join(dir, candidate)) {
			return candidate
		}
	}
}

func taken(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
