package ytdlp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/jaa/ytmp3/internal/engine"
	"github.com/jaa/ytmp3/internal/output/compact"
	"github.com/jaa/ytmp3/internal/search"
	"go.uber.org/zap"
)

type searchEntry struct {
	Title      string   `json:"title"`
	WebpageURL string   `json:"webpage_url"`
	Channel    string   `json:"channel"`
	Uploader   string   `json:"uploader"`
	Duration   *float64 `json:"duration"`
	ViewCount  *int64   `json:"view_count"`
}

func (c *Client) BuildSearchSpec(query string, limit int) engine.ExecSpec {
	if limit <= 0 {
		limit = 10
	}
	pseudoURL := fmt.Sprintf("ytsearch%d:%s", limit, strings.TrimSpace(query))
	args := append([]string{}, c.networkArgs()...)
	args = append(args, "--dump-json", "--no-playlist", pseudoURL)
	return engine.ExecSpec{
		Bin:            c.bin(),
		Args:           args,
		Env:            utf8Env,
		Timeout:        c.Timeout,
		DisplayCommand: formatCommand(c.bin(), args),
		Quiet:          true,
	}
}

// Search implements search.Searcher.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]search.Candidate, error) {
	spec := c.BuildSearchSpec(query, limit)
	c.logger().Debug("search started", zap.String("command", spec.DisplayCommand))

	result := c.Runner.Run(ctx, spec)
	if result.Interrupted {
		return nil, engine.ErrInterrupted
	}
	if result.ExitCode != 0 {
		return nil, &FetchError{
			ExitCode:    result.ExitCode,
			Stderr:      result.StderrTail,
			RateLimited: compact.MentionsRateLimit(result.StderrTail),
			Err:         result.Err,
		}
	}
	return ParseSearchOutput(result.StdoutTail), nil
}

// ParseSearchOutput reads one JSON object per line. Lines that do not parse
// are skipped.
func ParseSearchOutput(out string) []search.Candidate {
	candidates := []search.Candidate{}
	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		var entry searchEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}

		candidate := search.Candidate{
			Title:   entry.Title,
			URL:     entry.WebpageURL,
			Channel: entry.Channel,
		}
		if candidate.Channel == "" {
			candidate.Channel = entry.Uploader
		}
		if entry.Duration != nil && *entry.Duration > 0 {
			candidate.DurationSeconds = int(math.Round(*entry.Duration))
		}
		if entry.ViewCount != nil && *entry.ViewCount > 0 {
			candidate.ViewCount = *entry.ViewCount
		}
		if candidate.URL == "" {
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates
}
