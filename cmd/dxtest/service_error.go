// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"dxtest-cli/internal/config"
	"dxtest-cli/internal/container"
	"dxtest-cli/internal/issue"
	"dxtest-cli/internal/provision"
	"dxtest-cli/internal/runner"

	"github.com/charmbracelet/log"
)

// ServiceError is a command failure tagged with its issue catalog entry.
// Always create via newServiceError to enforce the Err-must-be-non-nil invariant.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the optional issue catalog ID for rendering help text.
	IssueID issue.Id
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{Err: err, IssueID: issueID}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// issueFor picks the catalog entry that explains err, or 0.
func issueFor(err error) issue.Id {
	var ae *issue.ActionableError
	switch {
	case errors.Is(err, container.ErrEngineNotAvailable):
		return issue.EngineNotFoundId
	case errors.Is(err, provision.ErrContainerNotRunning):
		return issue.ContainerNotRunningId
	case errors.Is(err, provision.ErrWorkspaceNotMounted):
		return issue.WorkspaceNotMountedId
	case errors.Is(err, provision.ErrImageMissing):
		return issue.ImageBuildFailedId
	case errors.Is(err, runner.ErrTimeout):
		return issue.CommandTimedOutId
	case errors.Is(err, config.ErrInvalidConfig), errors.As(err, &ae) && ae.Operation == config.LoadOperation:
		return issue.ConfigLoadFailedId
	}
	return 0
}

// renderServiceError prints the suggestions of an actionable error and, in
// verbose mode, the issue catalog guidance.
func renderServiceError(stderr io.Writer, svcErr *ServiceError, verbose bool) {
	if svcErr == nil {
		return
	}

	var ae *issue.ActionableError
	if errors.As(svcErr.Err, &ae) && len(ae.Suggestions) > 0 {
		fmt.Fprintln(stderr, ErrorStyle.Render("Error: ")+ae.Format(verbose))
	}

	if !verbose || svcErr.IssueID == 0 {
		return
	}
	if entry := issue.Get(svcErr.IssueID); entry != nil {
		rendered, err := entry.Render("dark")
		if err != nil {
			log.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "err", err)
			return
		}
		fmt.Fprint(stderr, rendered)
	}
}
