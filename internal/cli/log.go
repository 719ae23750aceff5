package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jaa/ytmp3/internal/config"
	"github.com/jaa/ytmp3/internal/exitcode"
	"github.com/jaa/ytmp3/internal/store"
	"github.com/spf13/cobra"
)

func newLogCommand(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect and export the download log",
	}
	cmd.AddCommand(newLogSheetsCommand(app))
	cmd.AddCommand(newLogListCommand(app))
	cmd.AddCommand(newLogExportCommand(app))
	return cmd
}

// withLog opens the configured store for read-only commands.
func withLog(app *AppContext, fn func(ctx context.Context, cfg config.Config, log store.Log) error) error {
	cfg, err := loadValidConfig(app)
	if err != nil {
		return err
	}
	log, err := openStore(cfg)
	if err != nil {
		return withExitCode(exitcode.RuntimeFailure, err)
	}
	defer log.Close()
	if err := fn(context.Background(), cfg, log); err != nil {
		return withExitCode(exitcode.RuntimeFailure, err)
	}
	return nil
}

func sheetOrMaster(cfg config.Config, sheet string) string {
	if sheet = strings.TrimSpace(sheet); sheet != "" {
		return sheet
	}
	return cfg.Store.MasterSheet
}

func newLogSheetsCommand(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sheets",
		Short: "List log sheets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLog(app, func(ctx context.Context, cfg config.Config, log store.Log) error {
				sheets, err := log.Sheets(ctx)
				if err != nil {
					return err
				}
				if app.Opts.JSON {
					return json.NewEncoder(app.IO.Out).Encode(map[string]any{"sheets": sheets})
				}
				for _, sheet := range sheets {
					fmt.Fprintln(app.IO.Out, sheet)
				}
				return nil
			})
		},
	}
}

func newLogListCommand(app *AppContext) *cobra.Command {
	sheet := ""
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the records of one sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLog(app, func(ctx context.Context, cfg config.Config, log store.Log) error {
				return listSheet(ctx, app, log, sheetOrMaster(cfg, sheet))
			})
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet to show (defaults to the master sheet)")
	return cmd
}

func listSheet(ctx context.Context, app *AppContext, log store.Log, sheet string) error {
	rows, err := log.Rows(ctx, sheet)
	if err != nil {
		return err
	}
	if app.Opts.JSON {
		return json.NewEncoder(app.IO.Out).Encode(map[string]any{"sheet": sheet, "rows": rows})
	}
	if len(rows) == 0 {
		fmt.Fprintf(app.IO.Out, "No records in %q.\n", sheet)
		return nil
	}
	renderRows(app.IO.Out, rows)
	return nil
}

func newLogExportCommand(app *AppContext) *cobra.Command {
	sheet := ""
	out := ""
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write one sheet as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLog(app, func(ctx context.Context, cfg config.Config, log store.Log) error {
				var w io.Writer = app.IO.Out
				if out != "" {
					path, err := config.ExpandPath(out)
					if err != nil {
						return err
					}
					f, err := os.Create(path)
					if err != nil {
						return fmt.Errorf("create export file: %w", err)
					}
					defer f.Close()
					w = f
				}
				name := sheetOrMaster(cfg, sheet)
				n, err := store.ExportCSV(ctx, log, name, w)
				if err != nil {
					return err
				}
				if out != "" {
					fmt.Fprintf(app.IO.ErrOut, "Exported %d record(s) from %q to %s\n", n, name, out)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet to export (defaults to the master sheet)")
	cmd.Flags().StringVar(&out, "out", "", "Write to this file instead of stdout")
	return cmd
}
