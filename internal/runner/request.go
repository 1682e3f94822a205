// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	// OutputCaptured collects stdout and stderr separately and returns them
	// after the process exits.
	OutputCaptured OutputMode = iota
	// OutputLive streams the merged output to the console while collecting it.
	OutputLive
)

const (
	// ExitCodeTimeout is reported when the process was killed after its timeout.
	ExitCodeTimeout = -1
	// ExitCodeStartFailure is reported when the process could not be launched.
	ExitCodeStartFailure = -2
	// ExitCodeCanceled is reported when the caller's context was cancelled.
	ExitCodeCanceled = -3
)

// ErrInvalidRequest is the sentinel wrapped by InvalidRequestError.
var ErrInvalidRequest = errors.New("invalid execution request")

type (
	// OutputMode selects how process output is handled.
	OutputMode int

	// Request describes one process invocation. Build a new Request per call.
	Request struct {
		// Command is the argv; Command[0] is resolved through PATH.
		Command []string
		// Dir is the working directory; empty means the current directory.
		Dir string
		// Env is applied on top of the parent environment. Overrides win.
		Env map[string]string
		// Timeout bounds the run. Zero means no timeout.
		Timeout time.Duration
		// Mode selects captured or live output.
		Mode OutputMode

		// Banner, when set in live mode, is announced on the console before the
		// process starts and summarized after it exits. It never reaches Output.
		Banner string
		// Console overrides the runner's console for live mode. io.Discard
		// suppresses echo while still collecting output.
		Console io.Writer
		// TTY runs the process on a pseudo-terminal (live mode only).
		TTY bool
	}

	// Result is the outcome of one Execute call.
	Result struct {
		// ExitCode is the process exit status, or one of the negative
		// ExitCode* sentinels.
		ExitCode int
		// Output is the combined stdout/stderr text.
		Output string
		// Stdout and Stderr hold the separate streams in captured mode and are
		// empty strings in live mode.
		Stdout string
		Stderr string
		// Command echoes the argv that was run.
		Command []string
		// TimedOut reports that the process was killed by the timeout.
		TimedOut bool
		// Duration is the wall time from start to exit.
		Duration time.Duration
	}

	// Executor runs a Request. *Runner is the production implementation.
	Executor interface {
		Execute(ctx context.Context, req Request) (Result, error)
	}

	// InvalidRequestError is returned when a Request cannot be executed as given.
	InvalidRequestError struct {
		Reason string
	}
)

// String returns the mode name.
func (m OutputMode) String() string {
	switch m {
	case OutputCaptured:
		return "captured"
	case OutputLive:
		return "live"
	default:
		return fmt.Sprintf("OutputMode(%d)", int(m))
	}
}

// ModeFor returns OutputLive when verbose is set, OutputCaptured otherwise.
func ModeFor(verbose bool) OutputMode {
	if verbose {
		return OutputLive
	}
	return OutputCaptured
}

// Error implements the error interface.
func (e *InvalidRequestError) Error() string {
	return "invalid execution request: " + e.Reason
}

// Unwrap returns ErrInvalidRequest.
func (e *InvalidRequestError) Unwrap() error { return ErrInvalidRequest }

// Validate reports whether the request can be executed.
func (r Request) Validate() error {
	switch {
	case len(r.Command) == 0:
		return &InvalidRequestError{Reason: "empty command"}
	case r.Command[0] == "":
		return &InvalidRequestError{Reason: "empty executable name"}
	case r.Timeout < 0:
		return &InvalidRequestError{Reason: fmt.Sprintf("negative timeout %s", r.Timeout)}
	case r.Mode != OutputCaptured && r.Mode != OutputLive:
		return &InvalidRequestError{Reason: fmt.Sprintf("unknown output mode %d", int(r.Mode))}
	case r.TTY && r.Mode != OutputLive:
		return &InvalidRequestError{Reason: "tty requires live output mode"}
	}
	return nil
}

// Success reports a zero exit status from a process that was not killed.
func (r Result) Success() bool {
	return r.ExitCode == 0 && !r.TimedOut
}
