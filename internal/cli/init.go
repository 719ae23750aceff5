package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/jaa/ytmp3/internal/config"
	"github.com/jaa/ytmp3/internal/exitcode"
	"github.com/spf13/cobra"
)

func newInitCommand(app *AppContext) *cobra.Command {
	force := false

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config and create the music and state directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(app.Opts.ConfigPath)
			if path == "" {
				userPath, err := config.UserConfigPath()
				if err != nil {
					return withExitCode(exitcode.RuntimeFailure, err)
				}
				path = userPath
			}

			if err := config.EnsureConfigDir(path); err != nil {
				return withExitCode(exitcode.RuntimeFailure, err)
			}

			if _, err := os.Stat(path); err == nil && !force {
				if !app.interactive() {
					return withExitCode(exitcode.RuntimeFailure, fmt.Errorf("config already exists at %s (rerun with --force)", path))
				}
				confirmed, confirmErr := newUI(app).Confirm(fmt.Sprintf("Config already exists at %s. Overwrite?", path), false)
				if confirmErr != nil {
					return withExitCode(exitcode.RuntimeFailure, confirmErr)
				}
				if !confirmed {
					fmt.Fprintln(app.IO.Out, "Initialization canceled.")
					return nil
				}
			}

			if err := os.WriteFile(path, []byte(config.DefaultTemplate()), 0o644); err != nil {
				return withExitCode(exitcode.RuntimeFailure, fmt.Errorf("write config file: %w", err))
			}

			defaults := config.DefaultConfig()
			for _, raw := range []string{defaults.StateDir, defaults.OutputDir} {
				dir, err := config.ExpandPath(raw)
				if err != nil {
					return withExitCode(exitcode.RuntimeFailure, fmt.Errorf("resolve directory %s: %w", raw, err))
				}
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return withExitCode(exitcode.RuntimeFailure, fmt.Errorf("create directory %s: %w", dir, err))
				}
				fmt.Fprintf(app.IO.Out, "Ensured dir: %s\n", dir)
			}

			fmt.Fprintf(app.IO.Out, "Wrote config: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")
	return cmd
}
