package engine

import (
	"bytes"
	"context"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestSubprocessRunnerCapturesTailsAndStreams(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell test is POSIX-specific")
	}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := NewSubprocessRunner(&stdout, &stderr)

	result := runner.Run(context.Background(), ExecSpec{
		Bin:  "sh",
		Args: []string{"-c", "echo out; echo err 1>&2; exit 3"},
	})

	if result.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", result.ExitCode)
	}
	if strings.TrimSpace(result.StdoutTail) != "out" || strings.TrimSpace(result.StderrTail) != "err" {
		t.Fatalf("unexpected tails: stdout=%q stderr=%q", result.StdoutTail, result.StderrTail)
	}
	if strings.TrimSpace(stdout.String()) != "out" {
		t.Fatalf("expected live stdout passthrough, got %q", stdout.String())
	}
}

func TestSubprocessRunnerQuietSpecSkipsLiveWriters(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell test is POSIX-specific")
	}

	var stdout bytes.Buffer
	runner := NewSubprocessRunner(&stdout, nil)
	result := runner.Run(context.Background(), ExecSpec{
		Bin:   "sh",
		Args:  []string{"-c", "echo '{\"title\":\"x\"}'"},
		Quiet: true,
	})

	if result.ExitCode != 0 {
		t.Fatalf("expected success, got %d (%v)", result.ExitCode, result.Err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected no live output for quiet spec, got %q", stdout.String())
	}
	if !strings.Contains(result.StdoutTail, `"title"`) {
		t.Fatalf("expected captured stdout tail, got %q", result.StdoutTail)
	}
}

func TestSubprocessRunnerMissingBinary(t *testing.T) {
	runner := NewSubprocessRunner(nil, nil)
	result := runner.Run(context.Background(), ExecSpec{Bin: "ytmp3-definitely-missing-binary"})
	if result.ExitCode != 127 || result.Err == nil {
		t.Fatalf("expected exit code 127 and an error for missing binary, got %d (%v)", result.ExitCode, result.Err)
	}

	empty := runner.Run(context.Background(), ExecSpec{})
	if empty.ExitCode == 0 || empty.Err == nil {
		t.Fatalf("expected failure for empty binary")
	}
}

func TestSubprocessRunnerTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell test is POSIX-specific")
	}

	runner := NewSubprocessRunner(nil, nil)
	start := time.Now()
	result := runner.Run(context.Background(), ExecSpec{
		Bin:     "sh",
		Args:    []string{"-c", "sleep 5"},
		Timeout: 200 * time.Millisecond,
	})
	if !result.TimedOut {
		t.Fatalf("expected timeout, got %+v", result)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatalf("expected process group to be killed promptly")
	}
}

func TestSubprocessRunnerCanceledContextIsInterrupted(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell test is POSIX-specific")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	runner := NewSubprocessRunner(nil, nil)
	result := runner.Run(ctx, ExecSpec{Bin: "sh", Args: []string{"-c", "sleep 5"}})
	if !result.Interrupted || result.ExitCode != 130 {
		t.Fatalf("expected interrupted result with code 130, got %+v", result)
	}
}

func TestTailBufferKeepsLastBytes(t *testing.T) {
	buf := newTailBuffer(4)
	_, _ = buf.Write([]byte("ab"))
	_, _ = buf.Write([]byte("cdef"))
	if got := buf.String(); got != "cdef" {
		t.Fatalf("expected cdef, got %q", got)
	}
	_, _ = buf.Write([]byte("g"))
	if got := buf.String(); got != "defg" {
		t.Fatalf("expected defg, got %q", got)
	}
}

func TestSubprocessRunnerAppendsEnv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell test is POSIX-specific")
	}

	result := NewSubprocessRunner(nil, nil).Run(context.Background(), ExecSpec{
		Bin:   "sh",
		Args:  []string{"-c", `printf '%s' "$PYTHONIOENCODING"`},
		Env:   []string{"PYTHONIOENCODING=utf-8"},
		Quiet: true,
	})
	if result.ExitCode != 0 || result.StdoutTail != "utf-8" {
		t.Fatalf("expected env to reach the child, got %q (exit %d)", result.StdoutTail, result.ExitCode)
	}
}
