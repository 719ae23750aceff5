package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jaa/ytmp3/internal/adapters/ytdlp"
	"github.com/jaa/ytmp3/internal/config"
	"github.com/jaa/ytmp3/internal/dedupe"
	"github.com/jaa/ytmp3/internal/doctor"
	"github.com/jaa/ytmp3/internal/engine"
	"github.com/jaa/ytmp3/internal/exitcode"
	"github.com/jaa/ytmp3/internal/logging"
	"github.com/jaa/ytmp3/internal/media"
	"github.com/jaa/ytmp3/internal/output"
	"github.com/jaa/ytmp3/internal/search"
	"github.com/jaa/ytmp3/internal/session"
	"github.com/jaa/ytmp3/internal/store"
	"go.uber.org/zap"
)

// runtime is everything one command needs, built once from the config
// and torn down by Close.
type runtime struct {
	cfg      config.Config
	logger   *zap.Logger
	emitter  output.EventEmitter
	client   *ytdlp.Client
	log      store.Log
	ui       UI
	prompts  *prompts
	session  *session.Session
	progress *output.ProgressWriter
}

type runtimeOptions struct {
	// preflight fails fast when yt-dlp or ffmpeg is missing.
	preflight bool
	// pipeline opens the record store and builds the download session.
	pipeline bool
}

func newLogger(app *AppContext, cfg config.Config) (*zap.Logger, error) {
	file, err := cfg.ResolveLogFile()
	if err != nil {
		return nil, err
	}
	var console io.Writer
	if app.Opts.Verbose && !app.Opts.JSON {
		console = app.IO.ErrOut
	}
	return logging.New(logging.Config{
		Level:      cfg.Log.Level,
		File:       file,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}, console)
}

func newEmitter(app *AppContext, logger *zap.Logger) output.EventEmitter {
	var primary output.EventEmitter
	if app.Opts.JSON {
		primary = output.NewJSONEmitter(app.IO.Out)
	} else {
		human := output.NewHumanEmitter(app.IO.Out, app.IO.ErrOut, app.Opts.Quiet, app.Opts.Verbose)
		file, isFile := app.IO.Out.(*os.File)
		human.SetColor(!app.Opts.NoColor && isFile && isTTY(file))
		primary = human
	}
	return output.NewMultiEmitter(primary, logging.NewEventSink(logger))
}

func newRuntime(app *AppContext, cfg config.Config, opts runtimeOptions) (*runtime, error) {
	logger, err := newLogger(app, cfg)
	if err != nil {
		return nil, withExitCode(exitcode.InvalidConfig, err)
	}
	rt := &runtime{cfg: cfg, logger: logger, emitter: newEmitter(app, logger)}

	runnerStdout := app.IO.Out
	runnerStderr := app.IO.ErrOut
	switch {
	case app.Opts.JSON:
		runnerStdout = app.IO.ErrOut
	case app.Opts.Quiet:
		runnerStdout = io.Discard
		runnerStderr = io.Discard
	case !app.Opts.Verbose:
		rt.progress = output.NewProgressWriter(app.IO.Out)
		runnerStdout = rt.progress
		runnerStderr = rt.progress
	}
	runner := engine.NewSubprocessRunner(runnerStdout, runnerStderr)

	checker := doctor.NewChecker()
	transcoder := checker.LocateTranscoder(cfg)
	if opts.preflight && !app.Opts.DryRun {
		if transcoder, err = checker.Preflight(cfg); err != nil {
			logger.Error("preflight failed", zap.Error(err))
			_ = logger.Sync()
			return nil, withExitCode(exitcode.SetupFailure, err)
		}
	}

	client := ytdlp.New(cfg.Downloader.Bin, runner, logger)
	client.FFmpegDir = transcoder.Dir
	client.EmbedThumbnail = cfg.Downloader.EmbedThumbnail
	client.AddMetadata = cfg.Downloader.AddMetadata
	client.Timeout = time.Duration(cfg.Downloader.CommandTimeoutSeconds) * time.Second
	client.Network = ytdlp.Network{
		CookiesFile: cfg.Network.CookiesFile,
		UserAgent:   cfg.Network.UserAgent,
		Resilient:   cfg.Network.Resilient,
		ExtraArgs:   cfg.Network.ExtraArgs,
	}
	rt.client = client

	if !opts.pipeline {
		return rt, nil
	}

	if rt.log, err = openStore(cfg); err != nil {
		_ = logger.Sync()
		return nil, withExitCode(exitcode.RuntimeFailure, err)
	}
	rt.ui = newUI(app)
	rt.prompts = newPrompts(app, rt.ui)

	reader := media.NewReader(runner, transcoder.FFprobe, logger)
	pipeline := &session.Pipeline{
		Fetcher:  client,
		Metadata: reader,
		Resolver: dedupe.NewResolver(rt.prompts.ConfirmDuplicate, rt.emitter, logger),
		Recorder: store.NewRecorder(rt.log, cfg.Store.MasterSheet, logger),
		Prompter: rt.prompts,
		Emitter:  rt.emitter,
		Logger:   logger,
		DryRun:   app.Opts.DryRun,
	}
	rt.session = &session.Session{
		Config:    cfg,
		OutputDir: cfg.OutputDir,
		Pipeline:  pipeline,
		Ranker:    search.NewRanker(client, autoPolicy(cfg), manualPolicy(cfg), rt.emitter, logger),
		Batcher:   engine.NewBatcher(rt.emitter),
		Emitter:   rt.emitter,
		Logger:    logger,
		Throttle:  rt.throttle,
	}
	return rt, nil
}

func openStore(cfg config.Config) (store.Log, error) {
	path, err := cfg.ResolveStorePath()
	if err != nil {
		return nil, err
	}
	return store.Open(store.Driver(cfg.Store.Driver), path)
}

func autoPolicy(cfg config.Config) search.Policy {
	return search.Policy{
		Limit:      cfg.Search.AutoResults,
		MinSeconds: cfg.Search.AutoMinSeconds,
		MaxSeconds: cfg.Search.AutoMaxSeconds,
		Denylist:   cfg.Search.Denylist,
		Allowlist:  cfg.Search.Allowlist,
	}
}

func manualPolicy(cfg config.Config) search.Policy {
	return search.Policy{
		Limit:      cfg.Search.ManualResults,
		MinSeconds: cfg.Search.ManualMinSeconds,
		MaxSeconds: cfg.Search.ManualMaxSeconds,
		Denylist:   cfg.Search.Denylist,
		Allowlist:  cfg.Search.Allowlist,
	}
}

// throttle applies the batch rate-limit preset when more than one item
// will run.
func (rt *runtime) throttle(items int, enabled bool) {
	rt.client.Network.RateLimit = enabled && items > 1
}

func (rt *runtime) Close() error {
	var errs []error
	if rt.progress != nil {
		errs = append(errs, rt.progress.Flush())
	}
	if rt.log != nil {
		errs = append(errs, rt.log.Close())
	}
	_ = rt.logger.Sync()
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close runtime: %w", err)
	}
	return nil
}
