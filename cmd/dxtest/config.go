// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"maps"
	"slices"

	"dxtest-cli/internal/config"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

// newConfigCommand creates the `dxtest config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect dxtest configuration",
		Long: `Inspect dxtest configuration.

Values come from, in order of precedence: DX_* environment variables, the
CUE file (dxtest.cue in the project root or --config), and built-in defaults.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as TOML (password masked)",
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config()
			if err != nil {
				return err
			}
			data, err := toml.Marshal(cfg.Redacted())
			if err != nil {
				return fmt.Errorf("encode configuration: %w", err)
			}
			fmt.Fprintln(app.stdout, SubtitleStyle.Render("# effective configuration"))
			fmt.Fprint(app.stdout, string(data))
			return nil
		}),
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "env",
		Short: "List the environment variables dxtest reads",
		RunE: func(cmd *cobra.Command, args []string) error {
			vars := config.EnvVars()
			for _, key := range slices.Sorted(maps.Keys(vars)) {
				fmt.Fprintf(app.stdout, "%-32s %s\n", vars[key], key)
			}
			return nil
		},
	})

	return cfgCmd
}
