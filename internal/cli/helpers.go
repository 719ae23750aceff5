package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jaa/ytmp3/internal/config"
	"github.com/jaa/ytmp3/internal/engine"
	"github.com/jaa/ytmp3/internal/exitcode"
)

func loadConfig(app *AppContext) (config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return config.Config{}, fmt.Errorf("resolve working directory: %w", err)
	}

	cfg, err := config.Load(config.LoadOptions{
		ExplicitPath: strings.TrimSpace(app.Opts.ConfigPath),
		WorkingDir:   wd,
	})
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// loadValidConfig loads and validates, mapping failures to InvalidConfig.
func loadValidConfig(app *AppContext) (config.Config, error) {
	cfg, err := loadConfig(app)
	if err != nil {
		return config.Config{}, withExitCode(exitcode.InvalidConfig, err)
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, withExitCode(exitcode.InvalidConfig, err)
	}
	return cfg, nil
}

func isTTY(file *os.File) bool {
	stat, err := file.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func isTTYReader(r io.Reader) bool {
	file, ok := r.(*os.File)
	return ok && isTTY(file)
}

// batchError turns a batch outcome into the process exit contract.
func batchError(result engine.BatchResult, err error) error {
	if err != nil {
		if errors.Is(err, engine.ErrInterrupted) {
			return withExitCode(exitcode.Interrupted, err)
		}
		return withExitCode(exitcode.RuntimeFailure, err)
	}
	if result.Failed > 0 {
		message := fmt.Sprintf("%d of %d item(s) failed", result.Failed, result.Total)
		if result.RateLimited > 0 {
			message = fmt.Sprintf("%s (%d rate limited; try again later or run `ytmp3 probe`)", message, result.RateLimited)
		}
		return withExitCode(exitcode.PartialSuccess, errors.New(message))
	}
	return nil
}
