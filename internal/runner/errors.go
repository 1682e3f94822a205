// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrStartFailure is the sentinel wrapped by StartError.
	ErrStartFailure = errors.New("process could not be started")
	// ErrTimeout is the sentinel wrapped by TimeoutError.
	ErrTimeout = errors.New("process timed out")
)

type (
	// StartError is returned when the executable is missing, not permitted,
	// or the working directory does not exist.
	StartError struct {
		Command []string
		Err     error
	}

	// TimeoutError is returned after a process exceeded its timeout and was
	// killed together with its process group.
	TimeoutError struct {
		Command []string
		Timeout time.Duration
	}
)

// Error implements the error interface.
func (e *StartError) Error() string {
	return fmt.Sprintf("start %s: %v", FormatCommand(e.Command), e.Err)
}

// Is matches ErrStartFailure.
func (e *StartError) Is(target error) bool { return target == ErrStartFailure }

// Unwrap returns the underlying launch error.
func (e *StartError) Unwrap() error { return e.Err }

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", FormatCommand(e.Command), e.Timeout)
}

// Unwrap returns ErrTimeout.
func (e *TimeoutError) Unwrap() error { return ErrTimeout }
