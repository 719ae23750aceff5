package config

import (
	"path/filepath"
	"testing"
)

func TestCategoryDirUsesLabelUnderOutputDir(t *testing.T) {
	cfg := Config{
		OutputDir:  "/music",
		Categories: []Category{{ID: "chinese", Label: "中文歌"}, {ID: "custom", Label: "X", Dir: "/elsewhere/x"}},
	}

	got, err := cfg.CategoryDir("chinese")
	if err != nil {
		t.Fatalf("category dir: %v", err)
	}
	if want := filepath.Clean("/music/中文歌"); got != want {
		t.Fatalf("unexpected dir. got=%q want=%q", got, want)
	}

	got, err = cfg.CategoryDir("custom")
	if err != nil || got != "/elsewhere/x" {
		t.Fatalf("expected absolute dir kept, got %q (%v)", got, err)
	}

	got, err = cfg.CategoryDir("")
	if err != nil || got != "/music" {
		t.Fatalf("expected output root for empty category, got %q (%v)", got, err)
	}

	if _, err := cfg.CategoryDir("missing"); err == nil {
		t.Fatalf("expected error for unknown category")
	}
}

func TestResolveStorePathDefaultsByDriver(t *testing.T) {
	cfg := Config{StateDir: "/state", Store: Store{Driver: StoreDriverCSV}}
	got, err := cfg.ResolveStorePath()
	if err != nil || got != filepath.Clean("/state/logs") {
		t.Fatalf("unexpected csv path %q (%v)", got, err)
	}

	cfg.Store = Store{Driver: StoreDriverSQLite, Path: "/data/log.db"}
	got, err = cfg.ResolveStorePath()
	if err != nil || got != "/data/log.db" {
		t.Fatalf("unexpected sqlite path %q (%v)", got, err)
	}
}

func TestResolveLogFile(t *testing.T) {
	cfg := Config{StateDir: "/state", Log: Log{File: " "}}
	if got, err := cfg.ResolveLogFile(); err != nil || got != "" {
		t.Fatalf("expected no log file, got %q (%v)", got, err)
	}
	cfg.Log.File = "ytmp3.log"
	if got, err := cfg.ResolveLogFile(); err != nil || got != filepath.Clean("/state/ytmp3.log") {
		t.Fatalf("unexpected log file %q (%v)", got, err)
	}
}
