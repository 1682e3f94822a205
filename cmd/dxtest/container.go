// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"
	"time"

	"dxtest-cli/internal/provision"
	"dxtest-cli/internal/runner"

	"github.com/spf13/cobra"
)

func newContainerCommand(app *App) *cobra.Command {
	containerCmd := &cobra.Command{
		Use:   "container",
		Short: "Manage the long-lived test containers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	containerCmd.AddCommand(
		newContainerStatusCommand(app),
		newContainerEnsureCommand(app),
		newContainerExecCommand(app),
		newContainerWorkspaceCommand(app),
	)
	return containerCmd
}

func newContainerStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <component> <os> <version>",
		Short: "Report whether the container is running (exit status 1 when not)",
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
			if !s.env.Provisioner.IsContainerRunning(cmd.Context(), id) {
				fmt.Fprintf(app.stdout, "%s %s\n", CmdStyle.Render(id.ContainerName()), WarningStyle.Render("not running"))
				return &ExitError{Code: 1}
			}
			fmt.Fprintf(app.stdout, "%s %s\n", CmdStyle.Render(id.ContainerName()), SuccessStyle.Render("running"))
			return nil
		}),
	}
}

func newContainerEnsureCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure <component> <os> <version>",
		Short: "Build the image if needed and start the container unless it is running",
		Long: `Build the image if needed and start the container unless it is running.

The project root is mounted at DOCKER_VOLUME_PATH and the container is kept
alive with 'tail -f /dev/null'. A stopped container with the same name is
removed and recreated.`,
		Args: cobra.ExactArgs(3),
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			id, _, err := parseIdentity(args)
			if err != nil {
				return err
			}
			s, err := app.newSession(true)
			if err != nil {
				return err
			}
			opts := provision.RunOptionsFromConfig(s.cfg)
			opts.Build.Console = app.stdout
			res, err := s.env.Provisioner.EnsureContainer(cmd.Context(), id, opts)
			if err != nil || !res.Success() {
				if res.Output != "" && opts.Build.Mode == runner.OutputCaptured {
					fmt.Fprint(app.stderr, res.Output)
				}
				return resultError(res, err)
			}
			fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(id.ContainerName()))
			return nil
		}),
	}
}

func newContainerExecCommand(app *App) *cobra.Command {
	var (
		timeout time.Duration
		banner  string
		shell   bool
		tty     bool
		live    bool
	)

	cmd := &cobra.Command{
		Use:   "exec <component> <os> <version> -- <command> [args...]",
		Short: "Run a command inside the running container",
		Long: `Run a command inside the running container.

The container is never started implicitly: when it is not running the
command fails without invoking the engine. With --shell the arguments are
joined and run through 'bash -lc' so the login profile is sourced.`,
		Args: cobra.MinimumNArgs(4),
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			id, command, err := parseIdentity(args)
			if err != nil {
				return err
			}
			if shell {
				command = provision.ShellCommand(strings.Join(command, " "))
			}
			s, err := app.newSession(true)
			if err != nil {
				return err
			}
			opts := provision.ExecOptionsFromConfig(s.cfg)
			if timeout > 0 {
				opts.Timeout = timeout
			}
			if live || tty {
				opts.Mode = runner.OutputLive
			}
			opts.Banner = banner
			opts.TTY = tty
			opts.Console = app.stdout

			res, err := s.env.Provisioner.ExecInContainer(cmd.Context(), id, command, opts)
			if opts.Mode == runner.OutputCaptured && res.ExitCode != provision.ExitCodePrecondition {
				fmt.Fprint(app.stdout, res.Output)
			}
			return resultError(res, err)
		}),
	}

	f := cmd.Flags()
	f.DurationVar(&timeout, "timeout", 0, "kill the command after this long (default timeouts.exec)")
	f.StringVar(&banner, "banner", "", "banner announced before and after a live command")
	f.BoolVar(&shell, "shell", false, "run the joined arguments with bash -lc")
	f.BoolVar(&tty, "tty", false, "allocate a pseudo-terminal (docker exec -t); implies --live")
	f.BoolVar(&live, "live", false, "stream output instead of capturing it")
	return cmd
}

func newContainerWorkspaceCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "workspace <component> <os> <version>",
		Short: "Check that the project checkout is mounted in the container",
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
			dir, err := s.env.Provisioner.WorkspaceMounted(cmd.Context(), id, s.cfg.Volumes.Docker)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "%s %s\n", CmdStyle.Render(id.ContainerName()), dir)
			return nil
		}),
	}
}
