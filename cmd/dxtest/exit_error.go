// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"dxtest-cli/internal/provision"
	"dxtest-cli/internal/runner"
)

// Exit statuses for runner outcomes that have no process exit code. They
// follow the coreutils timeout(1) and shell conventions.
const (
	exitTimedOut     = 124
	exitNotStarted   = 127
	exitInterrupted  = 130
	exitPrecondition = 1
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCodeFor maps a Result to a process exit status.
func exitCodeFor(res runner.Result) int {
	switch res.ExitCode {
	case runner.ExitCodeTimeout:
		return exitTimedOut
	case runner.ExitCodeStartFailure:
		return exitNotStarted
	case runner.ExitCodeCanceled:
		return exitInterrupted
	case provision.ExitCodePrecondition:
		return exitPrecondition
	}
	if res.ExitCode < 0 || res.ExitCode > 255 {
		return 1
	}
	return res.ExitCode
}

// resultError returns nil for a successful result and an ExitError otherwise.
func resultError(res runner.Result, err error) error {
	if err == nil && res.Success() {
		return nil
	}
	code := exitCodeFor(res)
	if code == 0 {
		code = 1
	}
	return &ExitError{Code: code, Err: err}
}
