package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jaa/ytmp3/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.OutputDir = filepath.Join(root, "music")
	cfg.StateDir = filepath.Join(root, "state")
	for _, dir := range []string{cfg.OutputDir, cfg.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	return cfg
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// pathOnly finds only the names listed.
func pathOnly(found ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, candidate := range found {
			if candidate == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", fmt.Errorf("%s not found", name)
	}
}

func healthyChecker(look func(string) (string, error)) *Checker {
	return &Checker{
		LookPath:             look,
		ReadVersion:          func(ctx context.Context, binary string) (string, error) { return "2025.09.26\n", nil },
		CheckWritable:        func(path string) error { return nil },
		Stat:                 os.Stat,
		GOOS:                 "linux",
		WellKnownDirs:        []string{},
		MinDownloaderVersion: "2024.1.0",
	}
}

func messages(report Report) string {
	lines := []string{}
	for _, check := range report.Checks {
		lines = append(lines, fmt.Sprintf("[%s] %s", check.Severity, check.Message))
	}
	return strings.Join(lines, "\n")
}

func TestDoctorHealthySetup(t *testing.T) {
	cfg := testConfig(t)
	report := healthyChecker(pathOnly("yt-dlp", "ffmpeg", "ffprobe")).Check(context.Background(), cfg)
	if report.HasErrors() {
		t.Fatalf("expected no errors, got:\n%s", messages(report))
	}
	if report.Transcoder.Dir != "/usr/bin" || report.Transcoder.FFprobe != "/usr/bin/ffprobe" {
		t.Fatalf("unexpected transcoder %+v", report.Transcoder)
	}
}

func TestDoctorMissingDownloader(t *testing.T) {
	report := healthyChecker(pathOnly("ffmpeg")).Check(context.Background(), testConfig(t))
	if !report.HasErrors() || !strings.Contains(messages(report), "yt-dlp not found") {
		t.Fatalf("expected missing yt-dlp error, got:\n%s", messages(report))
	}
}

func TestDoctorOldDownloaderWarns(t *testing.T) {
	checker := healthyChecker(pathOnly("yt-dlp", "ffmpeg", "ffprobe"))
	checker.ReadVersion = func(context.Context, string) (string, error) { return "2023.03.04", nil }
	report := checker.Check(context.Background(), testConfig(t))
	if report.HasErrors() || !strings.Contains(messages(report), "older than 2024.1.0") {
		t.Fatalf("expected an upgrade warning only, got:\n%s", messages(report))
	}
}

func TestDoctorKnownBadDownloader(t *testing.T) {
	checker := healthyChecker(pathOnly("yt-dlp", "ffmpeg"))
	checker.KnownBad = map[string]string{"2025.09.26": "breaks audio extraction"}
	report := checker.Check(context.Background(), testConfig(t))
	if !report.HasErrors() {
		t.Fatalf("expected known-bad version error, got:\n%s", messages(report))
	}
}

func TestDoctorUnwritableDirectory(t *testing.T) {
	checker := healthyChecker(pathOnly("yt-dlp", "ffmpeg", "ffprobe"))
	checker.CheckWritable = func(path string) error { return fmt.Errorf("permission denied") }
	report := checker.Check(context.Background(), testConfig(t))
	if !report.HasErrors() {
		t.Fatalf("expected filesystem error for unwritable path")
	}
}

func TestDoctorMissingOutputDirOnlyWarns(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutputDir = filepath.Join(cfg.OutputDir, "later")
	report := healthyChecker(pathOnly("yt-dlp", "ffmpeg", "ffprobe")).Check(context.Background(), cfg)
	if report.HasErrors() || !strings.Contains(messages(report), "will be created") {
		t.Fatalf("expected warning for missing output dir, got:\n%s", messages(report))
	}
}

func TestDoctorMissingCookiesFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Network.CookiesFile = filepath.Join(cfg.StateDir, "cookies.txt")
	report := healthyChecker(pathOnly("yt-dlp", "ffmpeg", "ffprobe")).Check(context.Background(), cfg)
	if !report.HasErrors() {
		t.Fatalf("expected cookies error, got:\n%s", messages(report))
	}
}

func TestLocateTranscoderPrefersConfiguredLocation(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Join(t.TempDir(), "ffmpeg-build")
	touch(t, filepath.Join(dir, "ffmpeg"))
	cfg.Downloader.FFmpegLocation = filepath.Join(dir, "ffmpeg")

	transcoder := healthyChecker(pathOnly("ffmpeg", "ffprobe")).LocateTranscoder(cfg)
	if transcoder.Dir != dir || transcoder.Source != "config" || transcoder.FFprobe != "" {
		t.Fatalf("expected configured directory without ffprobe, got %+v", transcoder)
	}
}

func TestLocateTranscoderFallsBackToAppLocalDir(t *testing.T) {
	cfg := testConfig(t)
	local := filepath.Join(cfg.StateDir, "ffmpeg", "bin")
	touch(t, filepath.Join(local, "ffmpeg"))
	touch(t, filepath.Join(local, "ffprobe"))

	transcoder := healthyChecker(pathOnly()).LocateTranscoder(cfg)
	if transcoder.Dir != local || transcoder.Source != "app-local" || transcoder.FFprobe == "" {
		t.Fatalf("expected app-local transcoder, got %+v", transcoder)
	}
}

func TestPreflight(t *testing.T) {
	cfg := testConfig(t)

	if _, err := healthyChecker(pathOnly("ffmpeg")).Preflight(cfg); !errors.Is(err, ErrSetup) {
		t.Fatalf("expected setup failure for missing downloader, got %v", err)
	}
	if _, err := healthyChecker(pathOnly("yt-dlp")).Preflight(cfg); !errors.Is(err, ErrSetup) {
		t.Fatalf("expected setup failure for missing ffmpeg, got %v", err)
	}
	transcoder, err := healthyChecker(pathOnly("yt-dlp", "ffmpeg")).Preflight(cfg)
	if err != nil || transcoder.FFmpeg != "/usr/bin/ffmpeg" {
		t.Fatalf("expected ready transcoder, got %+v (%v)", transcoder, err)
	}
}

func TestExtractAndCompareVersions(t *testing.T) {
	version, err := extractVersion("2024.08.06\n")
	if err != nil || version != "2024.08.06" {
		t.Fatalf("unexpected version %q (%v)", version, err)
	}
	if compareVersions(version, "2024.1.0") <= 0 {
		t.Fatalf("expected %s newer than 2024.1.0", version)
	}
	if _, err := extractVersion("nightly"); err == nil {
		t.Fatalf("expected error for unversioned output")
	}
}
