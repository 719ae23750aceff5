package engine

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"
)

// ExecRunner starts yt-dlp and ffprobe. Tests substitute a scripted fake.
type ExecRunner interface {
	Run(ctx context.Context, spec ExecSpec) ExecResult
}

// SubprocessRunner streams command output to Stdout/Stderr and keeps the
// last 64 KiB of each, which is where yt-dlp prints the final file path and
// any HTTP 429 message.
type SubprocessRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

type tailBuffer struct {
	buf []byte
	max int
}

func newTailBuffer(max int) *tailBuffer {
	if max <= 0 {
		max = 64 * 1024
	}
	return &tailBuffer{
		buf: make([]byte, 0, max),
		max: max,
	}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) >= t.max {
		t.buf = append(t.buf[:0], p[len(p)-t.max:]...)
		return len(p), nil
	}
	overflow := len(t.buf) + len(p) - t.max
	if overflow > 0 {
		t.buf = append(t.buf[:0], t.buf[overflow:]...)
	}
	t.buf = append(t.buf, p...)
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}

type flushWriter interface {
	Flush() error
}

func NewSubprocessRunner(stdout, stderr io.Writer) *SubprocessRunner {
	return &SubprocessRunner{Stdout: stdout, Stderr: stderr}
}

func (r *SubprocessRunner) Run(ctx context.Context, spec ExecSpec) ExecResult {
	start := time.Now()
	if spec.Bin == "" {
		return ExecResult{ExitCode: 1, Duration: time.Since(start), Err: errors.New("missing binary")}
	}

	runCtx := ctx
	cancel := func() {}
	if spec.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
	}
	defer cancel()

	cmd := exec.CommandContext(runCtx, spec.Bin, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	configureCommandForTermination(cmd)
	cmd.Cancel = func() error {
		terminateCommand(cmd)
		return nil
	}

	stdoutTail := newTailBuffer(64 * 1024)
	stderrTail := newTailBuffer(64 * 1024)

	liveOut, liveErr := r.Stdout, r.Stderr
	if spec.Quiet {
		liveOut, liveErr = nil, nil
	}
	if liveOut != nil {
		cmd.Stdout = io.MultiWriter(liveOut, stdoutTail)
	} else {
		cmd.Stdout = stdoutTail
	}
	if liveErr != nil {
		cmd.Stderr = io.MultiWriter(liveErr, stderrTail)
	} else {
		cmd.Stderr = stderrTail
	}

	err := cmd.Run()
	flushWriterIfSupported(liveOut)
	flushWriterIfSupported(liveErr)
	result := ExecResult{
		Duration:   time.Since(start),
		StdoutTail: stdoutTail.String(),
		StderrTail: stderrTail.String(),
		Err:        err,
	}
	classifyExit(&result, runCtx.Err())
	return result
}

// classifyExit fills in ExitCode and the timeout/interrupt flags. A
// cancelled context reports 130 like a shell would after SIGINT; a missing
// binary reports 127.
func classifyExit(result *ExecResult, ctxErr error) {
	err := result.Err
	if err == nil {
		return
	}
	switch {
	case errors.Is(ctxErr, context.Canceled):
		result.Interrupted = true
		result.ExitCode = 130
		return
	case errors.Is(ctxErr, context.DeadlineExceeded):
		result.TimedOut = true
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	case errors.Is(err, exec.ErrNotFound):
		result.ExitCode = 127
	default:
		result.ExitCode = 1
	}
}

func flushWriterIfSupported(w io.Writer) {
	if f, ok := w.(flushWriter); ok {
		_ = f.Flush()
	}
}
