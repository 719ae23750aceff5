package engine

import (
	"context"
	"time"
)

type ExecSpec struct {
	Bin  string
	Args []string
	Dir  string
	// Env is appended to the parent environment.
	Env            []string
	Timeout        time.Duration
	DisplayCommand string
	// Quiet keeps the command's output out of the runner's live writers; the
	// tails in ExecResult are still captured.
	Quiet bool
}

type ExecResult struct {
	ExitCode    int
	Duration    time.Duration
	Interrupted bool
	TimedOut    bool
	StdoutTail  string
	StderrTail  string
	Err         error
}

// Item is one unit of batch work: a URL, a song query or an imported line.
type Item struct {
	Index int
	Input string
}

type BatchOptions struct {
	// Delay is the minimum spacing between the start of consecutive items.
	Delay           time.Duration
	ContinueOnError bool
	DryRun          bool
}

type BatchResult struct {
	ID          string
	Total       int
	Attempted   int
	Succeeded   int
	Failed      int
	RateLimited int
	Interrupted bool
}

// ItemHandler processes one item. Returning nil counts as success.
type ItemHandler func(ctx context.Context, item Item) error
