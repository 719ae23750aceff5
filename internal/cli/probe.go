package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"time"

	"github.com/jaa/ytmp3/internal/adapters/ytdlp"
	"github.com/jaa/ytmp3/internal/exitcode"
	"github.com/jaa/ytmp3/internal/output"
	"github.com/spf13/cobra"
)

func newProbeCommand(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check whether YouTube is answering or rate limiting this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadValidConfig(app)
			if err != nil {
				return err
			}
			rt, err := newRuntime(app, cfg, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(context.Background(), interruptSignals()...)
			defer stop()

			result := runProbe(ctx, app, rt)
			if result.Status != ytdlp.ProbeOK {
				return withExitCode(exitcode.RuntimeFailure, fmt.Errorf("probe: %s", result.Status))
			}
			return nil
		},
	}
}

func runProbe(ctx context.Context, app *AppContext, rt *runtime) ytdlp.ProbeResult {
	result := rt.client.Probe(ctx)
	level := output.LevelInfo
	if result.Status != ytdlp.ProbeOK {
		level = output.LevelWarn
	}
	_ = rt.emitter.Emit(output.Event{
		Timestamp: time.Now(),
		Level:     level,
		Event:     output.EventProbe,
		Message:   fmt.Sprintf("probe status: %s", result.Status),
		Details:   map[string]any{"status": result.Status, "detail": result.Detail, "command": result.Command},
	})
	if app.Opts.JSON {
		_ = json.NewEncoder(app.IO.Out).Encode(map[string]any{"status": result.Status, "detail": result.Detail, "advice": result.Advice()})
		return result
	}
	if result.Detail != "" && result.Status != ytdlp.ProbeOK {
		fmt.Fprintf(app.IO.Out, "  %s\n", result.Detail)
	}
	for _, advice := range result.Advice() {
		fmt.Fprintf(app.IO.Out, "  - %s\n", advice)
	}
	return result
}
