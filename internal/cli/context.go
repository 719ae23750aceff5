package cli

import "io"

type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

type GlobalOptions struct {
	ConfigPath string
	JSON       bool
	Quiet      bool
	Verbose    bool
	NoColor    bool
	NoInput    bool
	// AssumeYes answers every overwrite confirmation with yes.
	AssumeYes bool
	DryRun    bool
}

type AppContext struct {
	Build BuildInfo
	IO    IOStreams
	Opts  GlobalOptions
}

// interactive reports whether prompts may block on the user.
func (app *AppContext) interactive() bool {
	return !app.Opts.NoInput && !app.Opts.JSON && isTTYReader(app.IO.In)
}
