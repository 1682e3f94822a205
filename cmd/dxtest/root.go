// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for dxtest.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "dxtest",
		Short: "Build, start and exercise DX SDK test containers",
		Long: TitleStyle.Render("dxtest") + SubtitleStyle.Render(" - DX SDK install test harness") + `

dxtest runs host commands with timeouts, builds the local-install test
images, keeps one long-lived container per component and OS version, and
runs the SDK test catalog against them.

` + SubtitleStyle.Render("Examples:") + `
  dxtest suite run sanity                         Check engine, compose and project layout
  dxtest container ensure dx-runtime ubuntu 24.04 Build the image and start the container
  dxtest container exec dx-runtime ubuntu 24.04 --shell -- 'dxrt-cli -s'
  dxtest config show                              Show the effective configuration`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&app.flags.verbose, "verbose", "v", false, "stream command output live (DX_TEST_VERBOSE)")
	pf.StringVar(&app.flags.configPath, "config", "", "config file (default is <project root>/dxtest.cue)")
	pf.StringVar(&app.flags.projectRoot, "project-root", "", "dx-all-suite checkout (default is discovered from the working directory)")
	pf.StringVar(&app.flags.engine, "engine", "", "container engine: docker or podman (DX_TEST_ENGINE)")

	root.AddCommand(
		newRunCommand(app),
		newImageCommand(app),
		newContainerCommand(app),
		newSuiteCommand(app),
		newConfigCommand(app),
	)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the status of the failed step, if any.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
