// Package ytdlp drives the yt-dlp command line tool for searching and for
// fetching audio. Every invocation goes through an engine.ExecRunner.
package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jaa/ytmp3/internal/engine"
	"github.com/jaa/ytmp3/internal/output/compact"
	"go.uber.org/zap"
)

const DefaultBinary = "yt-dlp"

// ErrRateLimited is returned (wrapped) when yt-dlp reports HTTP 429.
var ErrRateLimited = engine.ErrRateLimited

// utf8Env keeps yt-dlp printing CJK titles intact where the console code
// page is not UTF-8.
var utf8Env = []string{"PYTHONIOENCODING=utf-8"}

// ErrNoOutput means yt-dlp exited cleanly but no MP3 could be found.
var ErrNoOutput = errors.New("downloader produced no output file")

// FetchError carries a failed yt-dlp exit. It unwraps to ErrRateLimited
// when the output mentions a 429.
type FetchError struct {
	ExitCode    int
	Stderr      string
	RateLimited bool
	Err         error
}

func (e *FetchError) Error() string {
	detail := lastLine(e.Stderr)
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if e.RateLimited {
		return fmt.Sprintf("yt-dlp was rate limited (exit %d): %s", e.ExitCode, detail)
	}
	if detail == "" {
		return fmt.Sprintf("yt-dlp exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("yt-dlp exited with code %d: %s", e.ExitCode, detail)
}

func (e *FetchError) Unwrap() error {
	if e.RateLimited {
		return ErrRateLimited
	}
	return e.Err
}

// Network holds the options that change how yt-dlp talks to the site.
type Network struct {
	CookiesFile string
	UserAgent   string
	// Resilient adds longer socket timeouts, sleeps and retries.
	Resilient bool
	// RateLimit throttles bandwidth and sleeps between requests.
	RateLimit bool
	ExtraArgs []string
}

type Client struct {
	Bin            string
	Runner         engine.ExecRunner
	FFmpegDir      string
	EmbedThumbnail bool
	AddMetadata    bool
	Network        Network
	Timeout        time.Duration
	Logger         *zap.Logger
}

func New(bin string, runner engine.ExecRunner, logger *zap.Logger) *Client {
	if strings.TrimSpace(bin) == "" {
		bin = DefaultBinary
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		Bin:            bin,
		Runner:         runner,
		EmbedThumbnail: true,
		AddMetadata:    true,
		Logger:         logger,
	}
}

// FetchRequest names one download. Name, when set, replaces the video title
// as the file stem.
type FetchRequest struct {
	URL  string
	Dir  string
	Name string
}

// BuildFetchSpec assembles the extract-audio invocation for req.
func (c *Client) BuildFetchSpec(req FetchRequest) (engine.ExecSpec, error) {
	if strings.TrimSpace(req.URL) == "" {
		return engine.ExecSpec{}, errors.New("fetch url is empty")
	}
	if strings.TrimSpace(req.Dir) == "" {
		return engine.ExecSpec{}, errors.New("fetch directory is empty")
	}

	stem := "%(title)s"
	if name := strings.TrimSpace(req.Name); name != "" {
		stem = strings.ReplaceAll(name, "%", "%%")
	}
	template := filepath.Join(req.Dir, stem+".%(ext)s")

	args := []string{"--no-playlist", "-x", "--audio-format", "mp3", "--audio-quality", "0"}
	if dir := strings.TrimSpace(c.FFmpegDir); dir != "" {
		args = append(args, "--ffmpeg-location", dir)
	}
	if c.EmbedThumbnail {
		args = append(args, "--embed-thumbnail")
	}
	if c.AddMetadata {
		args = append(args, "--add-metadata")
	}
	args = append(args, "-o", template)
	args = append(args, c.networkArgs()...)
	args = append(args, req.URL)

	return engine.ExecSpec{
		Bin:            c.bin(),
		Args:           args,
		Dir:            req.Dir,
		Env:            utf8Env,
		Timeout:        c.Timeout,
		DisplayCommand: formatCommand(c.bin(), args),
	}, nil
}

// FetchAsAudio downloads req.URL and returns the path of the MP3 it wrote.
func (c *Client) FetchAsAudio(ctx context.Context, req FetchRequest) (string, error) {
	spec, err := c.BuildFetchSpec(req)
	if err != nil {
		return "", err
	}

	c.logger().Info("fetch started", zap.String("url", req.URL), zap.String("command", spec.DisplayCommand))
	result := c.Runner.Run(ctx, spec)
	if result.Interrupted {
		return "", engine.ErrInterrupted
	}
	if result.ExitCode != 0 {
		combined := result.StdoutTail + "\n" + result.StderrTail
		fetchErr := &FetchError{
			ExitCode:    result.ExitCode,
			Stderr:      result.StderrTail,
			RateLimited: compact.MentionsRateLimit(combined),
			Err:         result.Err,
		}
		if result.TimedOut {
			fetchErr.Err = fmt.Errorf("timed out after %s", spec.Timeout)
		}
		c.logger().Warn("fetch failed",
			zap.String("url", req.URL),
			zap.Int("exit_code", result.ExitCode),
			zap.Bool("rate_limited", fetchErr.RateLimited),
			zap.String("stderr", lastLine(result.StderrTail)))
		return "", fetchErr
	}

	path := compact.FinalAudioPath(result.StdoutTail)
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(req.Dir, path)
	}
	if path == "" || !fileExists(path) {
		path = newestMP3(req.Dir)
	}
	if path == "" {
		return "", ErrNoOutput
	}
	c.logger().Info("fetch finished", zap.String("url", req.URL), zap.String("path", path))
	return path, nil
}

func (c *Client) networkArgs() []string {
	args := []string{}
	if cookies := strings.TrimSpace(c.Network.CookiesFile); cookies != "" {
		args = append(args, "--cookies", cookies)
	}
	if ua := strings.TrimSpace(c.Network.UserAgent); ua != "" {
		args = append(args, "--user-agent", ua)
	}
	if c.Network.Resilient {
		args = setFlag(args, "--socket-timeout", "30")
		args = setFlag(args, "--sleep-interval", "5")
		args = setFlag(args, "--max-sleep-interval", "10")
		args = setFlag(args, "--retries", "10")
	}
	if c.Network.RateLimit {
		args = setFlag(args, "--limit-rate", "500K")
		args = setFlag(args, "--sleep-interval", "10")
	}
	args = append(args, c.Network.ExtraArgs...)
	return args
}

// setFlag sets flag to value, replacing an earlier occurrence.
func setFlag(args []string, flag string, value string) []string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			args[i+1] = value
			return args
		}
	}
	return append(args, flag, value)
}

func (c *Client) bin() string {
	if strings.TrimSpace(c.Bin) == "" {
		return DefaultBinary
	}
	return c.Bin
}

func (c *Client) logger() *zap.Logger {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c.Logger
}

// IsVideoURL accepts youtube.com (any subdomain) and youtu.be links only.
func IsVideoURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	return host == "youtu.be" || host == "youtube.com" || strings.HasSuffix(host, ".youtube.com")
}

func formatCommand(bin string, args []string) string {
	parts := []string{bin}
	for _, arg := range args {
		if arg == "" || strings.ContainsAny(arg, " \t\"'") {
			parts = append(parts, strconv.Quote(arg))
			continue
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

func lastLine(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func newestMP3(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	newest := ""
	var newestTime time.Time
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".mp3") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = filepath.Join(dir, entry.Name())
			newestTime = info.ModTime()
		}
	}
	return newest
}
