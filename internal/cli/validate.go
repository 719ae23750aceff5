package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCommand(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the config file and category definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadValidConfig(app)
			if err != nil {
				return err
			}

			if app.Opts.JSON {
				payload := map[string]any{"valid": true, "categories": len(cfg.Categories), "store": cfg.Store.Driver}
				encoded, _ := json.Marshal(payload)
				fmt.Fprintln(app.IO.Out, string(encoded))
			} else {
				fmt.Fprintf(app.IO.Out, "Config is valid (%d categories, %s store).\n", len(cfg.Categories), cfg.Store.Driver)
			}
			return nil
		},
	}
}
