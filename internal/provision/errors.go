// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"errors"
	"fmt"
)

// ExitCodePrecondition is reported when an operation was refused because a
// required image, container or workspace is absent. The engine is not invoked.
const ExitCodePrecondition = -4

const (
	// ResourceImage is an image that should exist.
	ResourceImage ResourceKind = "image"
	// ResourceContainer is a container that should be running.
	ResourceContainer ResourceKind = "container"
	// ResourceWorkspace is the project checkout that should be mounted.
	ResourceWorkspace ResourceKind = "workspace"
)

var (
	// ErrImageMissing is wrapped when an image is still absent after a build.
	ErrImageMissing = errors.New("image does not exist")
	// ErrContainerNotRunning is wrapped when a container is not running.
	ErrContainerNotRunning = errors.New("container is not running")
	// ErrWorkspaceNotMounted is wrapped when install.sh is not reachable in the container.
	ErrWorkspaceNotMounted = errors.New("workspace is not mounted in the container")
)

type (
	// ResourceKind names what a ResourceAbsentError is about.
	ResourceKind string

	// ResourceAbsentError reports a missing precondition.
	ResourceAbsentError struct {
		Kind ResourceKind
		Name string
		// Hint tells the caller how to create the resource.
		Hint string
		Err  error
	}
)

// Error implements the error interface.
func (e *ResourceAbsentError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Kind, e.Name, e.Err)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// Unwrap returns the sentinel.
func (e *ResourceAbsentError) Unwrap() error { return e.Err }
