package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

const appName = "ytmp3"

func UserConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); strings.TrimSpace(dir) != "" {
		return filepath.Join(dir, appName, "config.yaml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName, "config.yaml"), nil
}

func ProjectConfigPath(cwd string) string {
	return filepath.Join(cwd, appName+".yaml")
}

func defaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); strings.TrimSpace(dir) != "" {
		return filepath.Join(dir, appName)
	}
	if strings.TrimSpace(xdg.StateHome) != "" {
		return filepath.Join(xdg.StateHome, appName)
	}
	return "./.ytmp3-state"
}

// defaultOutputDir prefers the platform music folder and falls back to
// ~/Music when it cannot be resolved.
func defaultOutputDir() string {
	if music := strings.TrimSpace(xdg.UserDirs.Music); music != "" {
		return filepath.Join(music, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./music"
	}
	return filepath.Join(home, "Music", appName)
}

func ExpandPath(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}

	expanded := os.ExpandEnv(strings.TrimSpace(raw))
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		expanded = filepath.Join(home, strings.TrimPrefix(expanded, "~/"))
	}

	return filepath.Clean(expanded), nil
}

// resolveUnder expands name and joins it onto base unless it is already
// absolute.
func resolveUnder(base string, name string) (string, error) {
	expanded, err := ExpandPath(name)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(expanded) {
		return expanded, nil
	}

	expandedBase, err := ExpandPath(base)
	if err != nil {
		return "", err
	}
	return filepath.Clean(filepath.Join(expandedBase, expanded)), nil
}

// CategoryDir is the folder downloads of category land in. An empty
// category id resolves to the output root.
func (c Config) CategoryDir(categoryID string) (string, error) {
	if strings.TrimSpace(categoryID) == "" {
		return ExpandPath(c.OutputDir)
	}
	category, ok := c.CategoryByID(categoryID)
	if !ok {
		return "", fmt.Errorf("unknown category %q", categoryID)
	}
	dir := category.Dir
	if dir == "" {
		dir = category.Label
	}
	return resolveUnder(c.OutputDir, dir)
}

// ResolveStorePath picks the record store location: a database file for
// sqlite, a directory of per-sheet files for csv. Relative paths live under
// the state directory.
func (c Config) ResolveStorePath() (string, error) {
	name := strings.TrimSpace(c.Store.Path)
	if name == "" {
		switch c.Store.Driver {
		case StoreDriverCSV:
			name = "logs"
		default:
			name = "library.db"
		}
	}
	return resolveUnder(c.StateDir, name)
}

// ResolveLogFile returns "" when file logging is off.
func (c Config) ResolveLogFile() (string, error) {
	if strings.TrimSpace(c.Log.File) == "" {
		return "", nil
	}
	return resolveUnder(c.StateDir, c.Log.File)
}
