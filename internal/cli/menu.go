package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/jaa/ytmp3/internal/engine"
	"github.com/jaa/ytmp3/internal/exitcode"
	"github.com/jaa/ytmp3/internal/session"
)

var menuItems = []string{
	"Download a YouTube URL",
	"Download several YouTube URLs",
	"Search a song by name",
	"Search several songs by name",
	"Import URLs from a text file",
	"Change the output directory",
	"Browse the download log",
}

// menu is the interactive shell shown when ytmp3 runs without a command.
type menu struct {
	app *AppContext
	rt  *runtime
	ui  UI
}

func runMenu(app *AppContext) error {
	cfg, err := loadValidConfig(app)
	if err != nil {
		return err
	}
	rt, err := newRuntime(app, cfg, runtimeOptions{preflight: true, pipeline: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), interruptSignals()...)
	defer stop()

	m := &menu{app: app, rt: rt, ui: rt.ui}
	m.banner()
	return m.loop(ctx)
}

func (m *menu) banner() {
	title := color.New(color.FgCyan, color.Bold)
	if m.app.Opts.NoColor {
		title.DisableColor()
	}
	title.Fprintln(m.app.IO.Out, "ytmp3: YouTube to MP3")
	fmt.Fprintf(m.app.IO.Out, "Saving to %s\n\n", m.rt.session.OutputDir)
}

func (m *menu) loop(ctx context.Context) error {
	for {
		choice, err := m.ui.Select("What would you like to do?", menuItems)
		switch {
		case errors.Is(err, engine.ErrInterrupted):
			return withExitCode(exitcode.Interrupted, err)
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return withExitCode(exitcode.RuntimeFailure, err)
		}
		if choice < 0 {
			fmt.Fprintln(m.app.IO.Out, "Bye.")
			return nil
		}

		if err := m.run(ctx, choice); err != nil {
			if ctx.Err() != nil || errors.Is(err, engine.ErrInterrupted) {
				return withExitCode(exitcode.Interrupted, engine.ErrInterrupted)
			}
			fmt.Fprintln(m.app.IO.ErrOut, "ERROR:", err)
		}
		fmt.Fprintln(m.app.IO.Out)
	}
}

func (m *menu) run(ctx context.Context, choice int) error {
	switch choice {
	case 0:
		return m.singleURL(ctx)
	case 1:
		return m.batchURLs(ctx)
	case 2:
		return m.songs(ctx, false)
	case 3:
		return m.songs(ctx, true)
	case 4:
		return m.importFile(ctx)
	case 5:
		return m.changeDir()
	case 6:
		return m.browseLog(ctx)
	default:
		return fmt.Errorf("unknown menu choice %d", choice+1)
	}
}

// options asks for a category; ok is false when the user backs out.
func (m *menu) options() (session.Options, bool, error) {
	opts := session.OptionsFromConfig(m.rt.cfg)
	opts.DryRun = m.app.Opts.DryRun
	categories := m.rt.cfg.Categories
	if len(categories) == 0 {
		return opts, true, nil
	}
	labels := []string{"No category"}
	for _, category := range categories {
		labels = append(labels, category.Label)
	}
	index, err := m.ui.Select("Category", labels)
	if err != nil || index < 0 {
		return opts, false, err
	}
	if index > 0 {
		opts.Category = categories[index-1].ID
	}
	return opts, true, nil
}

func (m *menu) finish(result engine.BatchResult, err error) error {
	return batchError(result, err)
}

func (m *menu) singleURL(ctx context.Context) error {
	url, err := m.ui.Input("YouTube URL", "")
	if err != nil || url == "" {
		return err
	}
	name, err := m.ui.Input("File name (empty keeps the video title)", "")
	if err != nil {
		return err
	}
	opts, ok, err := m.options()
	if err != nil || !ok {
		return err
	}
	opts.Name = name
	return m.finish(m.rt.session.DownloadURLs(ctx, []string{url}, opts))
}

func (m *menu) batchURLs(ctx context.Context) error {
	urls, err := m.ui.Lines("YouTube URLs")
	if err != nil || len(urls) == 0 {
		return err
	}
	opts, ok, err := m.options()
	if err != nil || !ok {
		return err
	}
	return m.finish(m.rt.session.DownloadURLs(ctx, urls, opts))
}

func (m *menu) songs(ctx context.Context, many bool) error {
	var queries []string
	if many {
		lines, err := m.ui.Lines("Song names")
		if err != nil {
			return err
		}
		queries = lines
	} else {
		query, err := m.ui.Input("Song name", "")
		if err != nil {
			return err
		}
		if query != "" {
			queries = []string{query}
		}
	}
	if len(queries) == 0 {
		return nil
	}

	modeIndex, err := m.ui.Select("How should the video be picked?", []string{
		"Take the best match automatically",
		"Let me choose from the results",
	})
	if err != nil || modeIndex < 0 {
		return err
	}
	mode := session.SearchAuto
	if modeIndex == 1 {
		mode = session.SearchManual
	}
	opts, ok, err := m.options()
	if err != nil || !ok {
		return err
	}
	return m.finish(m.rt.session.DownloadSongs(ctx, queries, mode, m.rt.prompts.Choose, opts))
}

func (m *menu) importFile(ctx context.Context) error {
	path, err := m.ui.Input("Path to a text file with one URL per line", "")
	if err != nil || path == "" {
		return err
	}
	opts, ok, err := m.options()
	if err != nil || !ok {
		return err
	}
	return m.finish(m.rt.session.ImportFile(ctx, strings.Trim(path, `"'`), opts))
}

func (m *menu) changeDir() error {
	dir, err := m.ui.Input("New output directory", m.rt.session.OutputDir)
	if err != nil {
		return err
	}
	if err := m.rt.session.SetOutputDir(dir); err != nil {
		return err
	}
	fmt.Fprintf(m.app.IO.Out, "Saving to %s\n", m.rt.session.OutputDir)
	return nil
}

func (m *menu) browseLog(ctx context.Context) error {
	sheets, err := m.rt.log.Sheets(ctx)
	if err != nil {
		return err
	}
	if len(sheets) == 0 {
		fmt.Fprintln(m.app.IO.Out, "The log is empty.")
		return nil
	}
	index, err := m.ui.Select("Sheet", sheets)
	if err != nil || index < 0 {
		return err
	}
	return listSheet(ctx, m.app, m.rt.log, sheets[index])
}
