package ytdlp

import (
	"context"
	"regexp"
	"strings"

	"github.com/jaa/ytmp3/internal/engine"
	"github.com/jaa/ytmp3/internal/output/compact"
)

type ProbeStatus string

const (
	ProbeOK          ProbeStatus = "ok"
	ProbeRateLimited ProbeStatus = "rate_limited"
	ProbeUnreachable ProbeStatus = "unreachable"
	ProbeMissing     ProbeStatus = "missing"
	ProbeFailed      ProbeStatus = "failed"
)

type ProbeResult struct {
	Status  ProbeStatus
	Detail  string
	Command string
}

// Advice is the remediation text shown next to a probe result.
func (r ProbeResult) Advice() []string {
	switch r.Status {
	case ProbeRateLimited:
		return []string{
			"wait a while before downloading again",
			"pass a browser cookies file (network.cookies_file)",
			"switch network or VPN endpoint",
			"enable network.resilient and keep batch.rate_limit on",
		}
	case ProbeUnreachable:
		return []string{"check the internet connection and any proxy settings"}
	case ProbeMissing:
		return []string{"install yt-dlp and make sure it is on PATH"}
	case ProbeFailed:
		return []string{"update yt-dlp (yt-dlp -U) and retry"}
	default:
		return nil
	}
}

var unreachablePattern = regexp.MustCompile(`(?i)getaddrinfo|name or service not known|network is unreachable|timed out|connection (refused|reset)|unable to download webpage`)

// Probe runs a one-result search to see whether YouTube answers.
func (c *Client) Probe(ctx context.Context) ProbeResult {
	args := append([]string{}, c.networkArgs()...)
	args = append(args, "--dump-json", "ytsearch1:test")
	spec := engine.ExecSpec{
		Bin:            c.bin(),
		Args:           args,
		Timeout:        c.Timeout,
		DisplayCommand: formatCommand(c.bin(), args),
		Quiet:          true,
	}

	result := c.Runner.Run(ctx, spec)
	return classifyProbe(result, spec.DisplayCommand)
}

func classifyProbe(result engine.ExecResult, command string) ProbeResult {
	probe := ProbeResult{Command: command, Detail: lastLine(result.StderrTail)}
	switch {
	case result.ExitCode == 0:
		probe.Status = ProbeOK
		probe.Detail = ""
	case result.ExitCode == 127:
		probe.Status = ProbeMissing
	case compact.MentionsRateLimit(result.StderrTail + "\n" + result.StdoutTail):
		probe.Status = ProbeRateLimited
	case unreachablePattern.MatchString(result.StderrTail) || result.TimedOut:
		probe.Status = ProbeUnreachable
	default:
		probe.Status = ProbeFailed
	}
	if probe.Detail == "" && result.Err != nil && probe.Status != ProbeOK {
		probe.Detail = strings.TrimSpace(result.Err.Error())
	}
	return probe
}
