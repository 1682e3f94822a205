// SPDX-License-Identifier: MPL-2.0

//go:build windows

package runner

import (
	"errors"
	"io"
	"os/exec"
	"time"
)

func runTTY(_ *exec.Cmd, _ io.Writer, res *Result, _ time.Duration) error {
	return &StartError{Command: res.Command, Err: errors.New("pseudo-terminals are not supported on windows")}
}
