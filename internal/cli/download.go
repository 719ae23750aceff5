package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"

	"github.com/jaa/ytmp3/internal/config"
	"github.com/jaa/ytmp3/internal/engine"
	"github.com/jaa/ytmp3/internal/exitcode"
	"github.com/jaa/ytmp3/internal/session"
	"github.com/spf13/cobra"
)

// batchFlags are shared by every command that downloads.
type batchFlags struct {
	category    string
	name        string
	outputDir   string
	noRateLimit bool
	stopOnError bool
}

func (f *batchFlags) bind(cmd *cobra.Command, withName bool) {
	cmd.Flags().StringVar(&f.category, "category", "", "Category id; files go to its folder and log sheet")
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "Override output_dir for this run")
	cmd.Flags().BoolVar(&f.noRateLimit, "no-rate-limit", false, "Disable the batch delay and throttling preset")
	cmd.Flags().BoolVar(&f.stopOnError, "stop-on-error", false, "Stop the batch at the first failed item")
	if withName {
		cmd.Flags().StringVar(&f.name, "name", "", "File name for a single download (without .mp3)")
	}
}

func (f *batchFlags) options(cfg config.Config, dryRun bool) session.Options {
	opts := session.OptionsFromConfig(cfg)
	opts.Category = strings.TrimSpace(f.category)
	opts.Name = strings.TrimSpace(f.name)
	opts.DryRun = dryRun
	if f.noRateLimit {
		opts.Delay = 0
		opts.RateLimit = false
	}
	if f.stopOnError {
		opts.ContinueOnError = false
	}
	return opts
}

type batchFunc func(ctx context.Context, rt *runtime, opts session.Options) (engine.BatchResult, error)

// runBatch loads config, builds the runtime and runs one download batch
// under an interruptible context.
func runBatch(app *AppContext, flags *batchFlags, run batchFunc) error {
	cfg, err := loadValidConfig(app)
	if err != nil {
		return err
	}
	if id := strings.TrimSpace(flags.category); id != "" {
		if _, ok := cfg.CategoryByID(id); !ok {
			return withExitCode(exitcode.InvalidUsage, fmt.Errorf("unknown category %q", id))
		}
	}

	rt, err := newRuntime(app, cfg, runtimeOptions{preflight: true, pipeline: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	if flags.outputDir != "" {
		if err := rt.session.SetOutputDir(flags.outputDir); err != nil {
			return withExitCode(exitcode.InvalidUsage, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), interruptSignals()...)
	defer stop()

	result, runErr := run(ctx, rt, flags.options(cfg, app.Opts.DryRun))
	return batchError(result, runErr)
}

func newDownloadCommand(app *AppContext) *cobra.Command {
	flags := &batchFlags{}
	cmd := &cobra.Command{
		Use:   "download URL...",
		Short: "Download YouTube videos as MP3",
		Long:  "Download one or more YouTube video URLs, convert them to MP3 and log them. Links that are not YouTube videos are skipped.",
		Example: strings.Join([]string{
			"  ytmp3 download https://youtu.be/dQw4w9WgXcQ",
			"  ytmp3 download --category english --name \"Never Gonna\" https://youtu.be/dQw4w9WgXcQ",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return withExitCode(exitcode.InvalidUsage, errors.New("download needs at least one URL"))
			}
			return runBatch(app, flags, func(ctx context.Context, rt *runtime, opts session.Options) (engine.BatchResult, error) {
				return rt.session.DownloadURLs(ctx, args, opts)
			})
		},
	}
	flags.bind(cmd, true)
	return cmd
}

func newSearchCommand(app *AppContext) *cobra.Command {
	flags := &batchFlags{}
	manual := false
	cmd := &cobra.Command{
		Use:   "search SONG...",
		Short: "Search YouTube by song name and download the best match",
		Long:  "Search YouTube for each song name, filter out trailers and clips, then download the top-ranked video. With --manual you pick from the list.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return withExitCode(exitcode.InvalidUsage, errors.New("search needs at least one song name"))
			}
			if manual && !app.interactive() {
				return withExitCode(exitcode.InvalidUsage, errors.New("--manual needs an interactive terminal"))
			}
			mode := session.SearchAuto
			if manual {
				mode = session.SearchManual
			}
			return runBatch(app, flags, func(ctx context.Context, rt *runtime, opts session.Options) (engine.BatchResult, error) {
				return rt.session.DownloadSongs(ctx, args, mode, rt.prompts.Choose, opts)
			})
		},
	}
	cmd.Flags().BoolVarP(&manual, "manual", "m", false, "Pick the video from the search results yourself")
	flags.bind(cmd, true)
	return cmd
}

func newImportCommand(app *AppContext) *cobra.Command {
	flags := &batchFlags{}
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Download every URL listed in a text file",
		Long:  "Read one URL per line from FILE. Blank lines and lines starting with # are ignored.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return withExitCode(exitcode.InvalidUsage, errors.New("import takes exactly one file"))
			}
			return runBatch(app, flags, func(ctx context.Context, rt *runtime, opts session.Options) (engine.BatchResult, error) {
				return rt.session.ImportFile(ctx, args[0], opts)
			})
		},
	}
	flags.bind(cmd, false)
	return cmd
}
