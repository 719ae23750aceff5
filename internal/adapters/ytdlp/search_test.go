package ytdlp

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/jaa/ytmp3/internal/engine"
)

const sampleDump = `{"title": "晴天 - 周杰倫", "webpage_url": "https://www.youtube.com/watch?v=a", "channel": "JVR", "duration": 269.4, "view_count": 1200000}
WARNING: something noisy
{"title": "no url", "duration": 10}
{"title": "Uploader only", "webpage_url": "https://www.youtube.com/watch?v=b", "uploader": "someone", "duration": null, "view_count": null}
{broken json
`

func TestParseSearchOutput(t *testing.T) {
	got := ParseSearchOutput(sampleDump)
	if len(got) != 2 {
		t.Fatalf("expected two candidates, got %+v", got)
	}
	if got[0].Title != "晴天 - 周杰倫" || got[0].DurationSeconds != 269 || got[0].ViewCount != 1200000 || got[0].Channel != "JVR" {
		t.Fatalf("unexpected first candidate %+v", got[0])
	}
	if got[1].Channel != "someone" || got[1].DurationSeconds != 0 || got[1].ViewCount != 0 {
		t.Fatalf("unexpected second candidate %+v", got[1])
	}
}

func TestBuildSearchSpec(t *testing.T) {
	client := New("yt-dlp", nil, nil)
	client.Network.CookiesFile = "/c.txt"
	spec := client.BuildSearchSpec("晴天 完整版 full song", 15)

	want := []string{"--cookies", "/c.txt", "--dump-json", "--no-playlist", "ytsearch15:晴天 完整版 full song"}
	if !reflect.DeepEqual(spec.Args, want) {
		t.Fatalf("unexpected args %v", spec.Args)
	}
	if !spec.Quiet {
		t.Fatalf("expected search spec to keep json off the live output")
	}
}

func TestSearchUsesRunnerOutput(t *testing.T) {
	runner := &scriptedRunner{result: engine.ExecResult{StdoutTail: sampleDump}}
	client := New("yt-dlp", runner, nil)

	got, err := client.Search(context.Background(), "晴天", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 || len(runner.specs) != 1 {
		t.Fatalf("unexpected search result %+v specs=%d", got, len(runner.specs))
	}
}

func TestSearchFailureIsRateLimitAware(t *testing.T) {
	runner := &scriptedRunner{result: engine.ExecResult{ExitCode: 1, StderrTail: "HTTP Error 429: Too Many Requests"}}
	client := New("yt-dlp", runner, nil)

	_, err := client.Search(context.Background(), "x", 10)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
}

func TestProbeClassification(t *testing.T) {
	cases := []struct {
		name   string
		result engine.ExecResult
		want   ProbeStatus
	}{
		{"ok", engine.ExecResult{ExitCode: 0}, ProbeOK},
		{"missing", engine.ExecResult{ExitCode: 127}, ProbeMissing},
		{"rate limited", engine.ExecResult{ExitCode: 1, StderrTail: "HTTP Error 429: Too Many Requests"}, ProbeRateLimited},
		{"unreachable", engine.ExecResult{ExitCode: 1, StderrTail: "urlopen error [Errno -2] Name or service not known"}, ProbeUnreachable},
		{"other", engine.ExecResult{ExitCode: 2, StderrTail: "ERROR: unsupported"}, ProbeFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := New("yt-dlp", &scriptedRunner{result: tc.result}, nil)
			got := client.Probe(context.Background())
			if got.Status != tc.want {
				t.Fatalf("expected %s, got %s (%s)", tc.want, got.Status, got.Detail)
			}
			if tc.want != ProbeOK && len(got.Advice()) == 0 {
				t.Fatalf("expected advice for %s", tc.want)
			}
		})
	}
}
