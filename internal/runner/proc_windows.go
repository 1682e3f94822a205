// SPDX-License-Identifier: MPL-2.0

//go:build windows

package runner

import "os/exec"

func setProcessGroup(*exec.Cmd) {}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

func exitStatus(exitErr *exec.ExitError) int {
	return exitErr.ExitCode()
}
