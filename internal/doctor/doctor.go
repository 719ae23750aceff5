package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/jaa/ytmp3/internal/config"
)

// ErrSetup marks a missing downloader or transcoder. Nothing can be
// downloaded until it is fixed.
var ErrSetup = errors.New("setup failure")

type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

type Check struct {
	Severity Severity `json:"severity"`
	Name     string   `json:"name"`
	Message  string   `json:"message"`
}

type Report struct {
	Checks     []Check    `json:"checks"`
	Transcoder Transcoder `json:"transcoder"`
}

func (r Report) HasErrors() bool {
	return r.ErrorCount() > 0
}

func (r Report) ErrorCount() int {
	count := 0
	for _, check := range r.Checks {
		if check.Severity == SeverityError {
			count++
		}
	}
	return count
}

func (r *Report) add(severity Severity, name string, format string, args ...any) {
	r.Checks = append(r.Checks, Check{Severity: severity, Name: name, Message: fmt.Sprintf(format, args...)})
}

// Transcoder is where ffmpeg (and ffprobe, when present) were found. Dir
// is what the downloader gets as --ffmpeg-location.
type Transcoder struct {
	FFmpeg  string `json:"ffmpeg,omitempty"`
	FFprobe string `json:"ffprobe,omitempty"`
	Dir     string `json:"dir,omitempty"`
	Source  string `json:"source,omitempty"`
}

func (t Transcoder) Found() bool {
	return t.FFmpeg != ""
}

type Checker struct {
	LookPath      func(string) (string, error)
	ReadVersion   func(context.Context, string) (string, error)
	CheckWritable func(string) error
	Stat          func(string) (os.FileInfo, error)
	GOOS          string
	// WellKnownDirs overrides the platform's usual ffmpeg install locations.
	WellKnownDirs []string
	// MinDownloaderVersion is compared against `<bin> --version`.
	MinDownloaderVersion string
	KnownBad             map[string]string
}

func NewChecker() *Checker {
	return &Checker{
		LookPath:    exec.LookPath,
		ReadVersion: defaultReadVersion,
		CheckWritable: func(path string) error {
			return checkDirWritable(path)
		},
		Stat:                 os.Stat,
		GOOS:                 runtime.GOOS,
		MinDownloaderVersion: "2024.1.0",
		KnownBad:             map[string]string{},
	}
}

func (c *Checker) Check(ctx context.Context, cfg config.Config) Report {
	c.defaults()
	report := Report{Checks: []Check{}}

	c.checkDownloader(ctx, cfg, &report)

	transcoder := c.LocateTranscoder(cfg)
	report.Transcoder = transcoder
	if !transcoder.Found() {
		report.add(SeverityError, "dependency", "ffmpeg not found in PATH, %s or the well-known install locations; install ffmpeg or set downloader.ffmpeg_location", appLocalTranscoderDir(cfg))
	} else {
		report.add(SeverityInfo, "dependency", "ffmpeg found at %s (%s)", transcoder.FFmpeg, transcoder.Source)
		if transcoder.FFprobe == "" {
			report.add(SeverityWarn, "dependency", "ffprobe not found; durations fall back to the TLEN tag")
		} else {
			report.add(SeverityInfo, "dependency", "ffprobe found at %s", transcoder.FFprobe)
		}
	}

	c.checkDir(&report, "output_dir", cfg.OutputDir)
	c.checkDir(&report, "state_dir", cfg.StateDir)
	if storePath, err := cfg.ResolveStorePath(); err != nil {
		report.add(SeverityError, "filesystem", "store path is invalid: %v", err)
	} else {
		dir := storePath
		if cfg.Store.Driver != config.StoreDriverCSV {
			dir = filepath.Dir(storePath)
		}
		c.checkDir(&report, "store", dir)
	}

	if cookies := strings.TrimSpace(cfg.Network.CookiesFile); cookies != "" {
		path, err := config.ExpandPath(cookies)
		if err == nil {
			_, err = c.Stat(path)
		}
		if err != nil {
			report.add(SeverityError, "network", "cookies file %s is not readable: %v", cookies, err)
		} else {
			report.add(SeverityInfo, "network", "cookies file %s is present", path)
		}
	}

	return report
}

// Preflight is the startup gate: it fails with ErrSetup when the
// downloader or ffmpeg is missing and otherwise returns the transcoder.
func (c *Checker) Preflight(cfg config.Config) (Transcoder, error) {
	c.defaults()
	bin := downloaderBin(cfg)
	if _, err := c.LookPath(bin); err != nil {
		return Transcoder{}, fmt.Errorf("%w: %s not found in PATH; install it with `python3 -m pip install -U yt-dlp` or set downloader.bin", ErrSetup, bin)
	}
	transcoder := c.LocateTranscoder(cfg)
	if !transcoder.Found() {
		return transcoder, fmt.Errorf("%w: ffmpeg not found; install it or place it under %s", ErrSetup, appLocalTranscoderDir(cfg))
	}
	return transcoder, nil
}

func (c *Checker) checkDownloader(ctx context.Context, cfg config.Config, report *Report) {
	bin := downloaderBin(cfg)
	location, err := c.LookPath(bin)
	if err != nil {
		report.add(SeverityError, "dependency", "%s not found in PATH; install it with `python3 -m pip install -U yt-dlp`", bin)
		return
	}
	report.add(SeverityInfo, "dependency", "%s found at %s", bin, location)

	output, err := c.ReadVersion(ctx, location)
	if err != nil {
		report.add(SeverityWarn, "dependency", "%s version could not be read: %v", bin, err)
		return
	}
	version, err := extractVersion(output)
	if err != nil {
		report.add(SeverityWarn, "dependency", "%s version output is unrecognized: %q", bin, strings.TrimSpace(output))
		return
	}
	if reason, bad := c.KnownBad[version]; bad {
		report.add(SeverityError, "dependency", "%s version %s is known to be broken: %s", bin, version, reason)
		return
	}
	if min := strings.TrimSpace(c.MinDownloaderVersion); min != "" && compareVersions(version, min) < 0 {
		report.add(SeverityWarn, "dependency", "%s version %s is older than %s; YouTube changes often, run `%s -U`", bin, version, min, bin)
		return
	}
	report.add(SeverityInfo, "dependency", "%s version %s is compatible", bin, version)
}

func (c *Checker) checkDir(report *Report, label string, dir string) {
	if strings.TrimSpace(dir) == "" {
		report.add(SeverityError, "filesystem", "%s is not set", label)
		return
	}
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		report.add(SeverityError, "filesystem", "%s is invalid: %v", label, err)
		return
	}
	if _, err := c.Stat(expanded); errors.Is(err, os.ErrNotExist) {
		report.add(SeverityWarn, "filesystem", "%s %s does not exist yet; it will be created on first use", label, expanded)
		return
	}
	if err := c.CheckWritable(expanded); err != nil {
		report.add(SeverityError, "filesystem", "%s %s is not writable: %v", label, expanded, err)
		return
	}
	report.add(SeverityInfo, "filesystem", "%s %s is writable", label, expanded)
}

// LocateTranscoder looks for ffmpeg in the configured location, then PATH,
// then the platform's usual install directories, then <state_dir>/ffmpeg/bin.
func (c *Checker) LocateTranscoder(cfg config.Config) Transcoder {
	c.defaults()
	ffmpegName, ffprobeName := "ffmpeg", "ffprobe"
	if c.GOOS == "windows" {
		ffmpegName, ffprobeName = "ffmpeg.exe", "ffprobe.exe"
	}

	if configured := strings.TrimSpace(cfg.Downloader.FFmpegLocation); configured != "" {
		if expanded, err := config.ExpandPath(configured); err == nil {
			dir := expanded
			if info, err := c.Stat(expanded); err == nil && !info.IsDir() {
				dir = filepath.Dir(expanded)
			}
			if t, ok := c.inDir(dir, ffmpegName, ffprobeName, "config"); ok {
				return t
			}
		}
	}

	if path, err := c.LookPath(ffmpegName); err == nil {
		t := Transcoder{FFmpeg: path, Dir: filepath.Dir(path), Source: "PATH"}
		if probe, err := c.LookPath(ffprobeName); err == nil {
			t.FFprobe = probe
		}
		return t
	}

	dirs := c.WellKnownDirs
	if dirs == nil {
		dirs = wellKnownDirs(c.GOOS)
	}
	for _, dir := range dirs {
		if t, ok := c.inDir(dir, ffmpegName, ffprobeName, "well-known location"); ok {
			return t
		}
	}
	if t, ok := c.inDir(appLocalTranscoderDir(cfg), ffmpegName, ffprobeName, "app-local"); ok {
		return t
	}
	return Transcoder{}
}

func (c *Checker) inDir(dir string, ffmpegName string, ffprobeName string, source string) (Transcoder, bool) {
	if strings.TrimSpace(dir) == "" {
		return Transcoder{}, false
	}
	ffmpeg := filepath.Join(dir, ffmpegName)
	if info, err := c.Stat(ffmpeg); err != nil || info.IsDir() {
		return Transcoder{}, false
	}
	t := Transcoder{FFmpeg: ffmpeg, Dir: dir, Source: source}
	probe := filepath.Join(dir, ffprobeName)
	if info, err := c.Stat(probe); err == nil && !info.IsDir() {
		t.FFprobe = probe
	}
	return t, true
}

func wellKnownDirs(goos string) []string {
	switch goos {
	case "windows":
		return []string{`C:\ffmpeg\bin`, `C:\Program Files\ffmpeg\bin`, `C:\ProgramData\chocolatey\bin`}
	case "darwin":
		return []string{"/opt/homebrew/bin", "/usr/local/bin", "/opt/local/bin"}
	default:
		return []string{"/usr/bin", "/usr/local/bin", "/snap/bin", "/opt/ffmpeg/bin"}
	}
}

func appLocalTranscoderDir(cfg config.Config) string {
	if strings.TrimSpace(cfg.StateDir) == "" {
		return ""
	}
	return filepath.Join(cfg.StateDir, "ffmpeg", "bin")
}

func downloaderBin(cfg config.Config) string {
	if bin := strings.TrimSpace(cfg.Downloader.Bin); bin != "" {
		return bin
	}
	return "yt-dlp"
}

func (c *Checker) defaults() {
	if c.LookPath == nil {
		c.LookPath = exec.LookPath
	}
	if c.ReadVersion == nil {
		c.ReadVersion = defaultReadVersion
	}
	if c.CheckWritable == nil {
		c.CheckWritable = checkDirWritable
	}
	if c.Stat == nil {
		c.Stat = os.Stat
	}
	if c.GOOS == "" {
		c.GOOS = runtime.GOOS
	}
}

func defaultReadVersion(ctx context.Context, binary string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, "--version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", err
	}
	return string(output), nil
}

func checkDirWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}

	file, err := os.CreateTemp(path, ".ytmp3-write-check-*")
	if err != nil {
		return err
	}
	name := file.Name()
	_ = file.Close()
	_ = os.Remove(name)
	return nil
}

// yt-dlp versions are dates (2024.08.06); ffmpeg-style x.y.z parse too.
var versionPattern = regexp.MustCompile(`(\d+)\.(\d+)\.(\d+)`)

func extractVersion(raw string) (string, error) {
	matches := versionPattern.FindStringSubmatch(raw)
	if len(matches) != 4 {
		return "", fmt.Errorf("no version found")
	}
	return fmt.Sprintf("%s.%s.%s", matches[1], matches[2], matches[3]), nil
}

func compareVersions(lhs string, rhs string) int {
	leftParts := strings.Split(lhs, ".")
	rightParts := strings.Split(rhs, ".")
	for i := 0; i < 3; i++ {
		leftValue := 0
		rightValue := 0
		if i < len(leftParts) {
			leftValue, _ = strconv.Atoi(leftParts[i])
		}
		if i < len(rightParts) {
			rightValue, _ = strconv.Atoi(rightParts[i])
		}
		if leftValue > rightValue {
			return 1
		}
		if leftValue < rightValue {
			return -1
		}
	}
	return 0
}
