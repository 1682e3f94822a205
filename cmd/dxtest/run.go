// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"time"

	"dxtest-cli/internal/runner"

	"github.com/spf13/cobra"
)

func newRunCommand(app *App) *cobra.Command {
	var (
		timeout time.Duration
		dir     string
		banner  string
		envs    []string
		live    bool
		tty     bool
	)

	cmd := &cobra.Command{
		Use:   "run [flags] -- <command> [args...]",
		Short: "Run a host command with a timeout",
		Long: `Run a host command with a timeout.

In captured mode (the default) stdout and stderr are collected separately
and printed when the command ends. With --live, or when verbose, the merged
output streams to the terminal as it is produced. On timeout the whole
process group is killed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: app.runE(func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(false)
			if err != nil {
				return err
			}
			env, err := parseEnvPairs(envs)
			if err != nil {
				return err
			}
			if timeout == 0 {
				timeout = s.cfg.Timeouts.Command.Duration()
			}

			mode := runner.ModeFor(s.cfg.Verbose || live || tty)
			res, err := s.exec.Execute(cmd.Context(), runner.Request{
				Command: args,
				Dir:     dir,
				Env:     env,
				Timeout: timeout,
				Mode:    mode,
				Banner:  banner,
				TTY:     tty,
			})
			if mode == runner.OutputCaptured {
				fmt.Fprint(app.stdout, res.Output)
			}
			return resultError(res, err)
		}),
	}

	f := cmd.Flags()
	f.DurationVar(&timeout, "timeout", 0, "kill the command after this long (default timeouts.command)")
	f.StringVarP(&dir, "dir", "C", "", "working directory")
	f.StringVar(&banner, "banner", "", "banner announced before and after a live command")
	f.StringArrayVarP(&envs, "env", "e", nil, "KEY=VALUE added to the inherited environment (repeatable)")
	f.BoolVar(&live, "live", false, "stream output instead of capturing it")
	f.BoolVar(&tty, "tty", false, "run the command on a pseudo-terminal; implies --live")
	return cmd
}
