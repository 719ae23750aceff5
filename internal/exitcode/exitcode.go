// Package exitcode holds the process exit code contract of the ytmp3 binary.
package exitcode

const (
	Success        = 0
	RuntimeFailure = 1
	// SetupFailure is reported when the downloader or the transcoder cannot be
	// found before any work starts.
	SetupFailure      = 1
	InvalidUsage      = 2
	InvalidConfig     = 3
	MissingDependency = 4
	// PartialSuccess means a batch finished but at least one item failed.
	PartialSuccess = 5
	Interrupted    = 130
)
