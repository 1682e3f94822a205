// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"dxtest-cli/internal/provision"
	"dxtest-cli/internal/report"
	"dxtest-cli/internal/runner"

	"github.com/spf13/cobra"
)

func newImageCommand(app *App) *cobra.Command {
	imageCmd := &cobra.Command{
		Use:   "image",
		Short: "Inspect and build local-install test images",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	imageCmd.AddCommand(&cobra.Command{
		Use:   "exists <component> <os> <version>",
		Short: "Report whether the image exists (exit status 1 when absent)",
		Args:  cobra.ExactArgs(3),
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			id, _, err := parseIdentity(args)
			if err != nil {
				return err
			}
			s, err := app.newSession(true)
			if err != nil {
				return err
			}
			if !s.env.Provisioner.ImageExists(cmd.Context(), id) {
				fmt.Fprintf(app.stdout, "%s %s\n", CmdStyle.Render(id.ImageName()), WarningStyle.Render("absent"))
				return &ExitError{Code: 1}
			}
			fmt.Fprintf(app.stdout, "%s %s\n", CmdStyle.Render(id.ImageName()), SuccessStyle.Render("present"))
			return nil
		}),
	})

	var noCache bool
	ensureCmd := &cobra.Command{
		Use:   "ensure <component> <os> <version>",
		Short: "Build the image unless it already exists",
		Args:  cobra.ExactArgs(3),
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			id, _, err := parseIdentity(args)
			if err != nil {
				return err
			}
			s, err := app.newSession(true)
			if err != nil {
				return err
			}
			opts := provision.BuildOptionsFromConfig(s.cfg)
			opts.NoCache = opts.NoCache || noCache
			opts.Console = app.stdout

			res, err := s.env.Provisioner.EnsureImage(cmd.Context(), id, opts)
			if err == nil && res.Success() {
				fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(id.ImageName()))
				return nil
			}
			if opts.Mode == runner.OutputCaptured {
				fmt.Fprint(app.stderr, report.FailureFromResult("failed to build docker image for "+id.String(), res, err).Error())
			}
			return resultError(res, err)
		}),
	}
	ensureCmd.Flags().BoolVar(&noCache, "no-cache", false, "build without the layer cache (DX_TEST_NO_CACHE)")
	imageCmd.AddCommand(ensureCmd)

	return imageCmd
}
