// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"fmt"
	"os/exec"
)

const (
	// EngineTypeDocker selects the docker CLI.
	EngineTypeDocker EngineType = "docker"
	// EngineTypePodman selects the podman CLI.
	EngineTypePodman EngineType = "podman"
)

var (
	// ErrInvalidEngineType is the sentinel wrapped by InvalidEngineTypeError.
	ErrInvalidEngineType = errors.New("invalid container engine type")
	// ErrEngineNotAvailable is the sentinel wrapped by EngineNotAvailableError.
	ErrEngineNotAvailable = errors.New("container engine not available")
)

type (
	// EngineType identifies a container engine CLI.
	EngineType string

	// InvalidEngineTypeError is returned for an unknown EngineType.
	InvalidEngineTypeError struct {
		Value EngineType
	}

	// EngineNotAvailableError is returned when neither the preferred engine
	// nor its fallback can be found in PATH.
	EngineNotAvailableError struct {
		Engine EngineType
		Reason string
	}

	// LookPathFunc resolves a binary name, like exec.LookPath.
	LookPathFunc func(file string) (string, error)

	// CLI builds argument vectors for one engine.
	CLI struct {
		engine EngineType
		path   string
	}
)

// Error implements the error interface.
func (e *InvalidEngineTypeError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: docker, podman)", e.Value)
}

// Unwrap returns ErrInvalidEngineType.
func (e *InvalidEngineTypeError) Unwrap() error { return ErrInvalidEngineType }

// Error implements the error interface.
func (e *EngineNotAvailableError) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// Unwrap returns ErrEngineNotAvailable.
func (e *EngineNotAvailableError) Unwrap() error { return ErrEngineNotAvailable }

// String returns the engine name.
func (t EngineType) String() string { return string(t) }

// Validate reports whether t names a supported engine.
func (t EngineType) Validate() error {
	switch t {
	case EngineTypeDocker, EngineTypePodman:
		return nil
	default:
		return &InvalidEngineTypeError{Value: t}
	}
}

func (t EngineType) fallback() EngineType {
	if t == EngineTypePodman {
		return EngineTypeDocker
	}
	return EngineTypePodman
}

// NewCLI returns a CLI for engine without checking that it is installed.
func NewCLI(engine EngineType) *CLI {
	return &CLI{engine: engine}
}

// Detect returns a CLI for preferred if its binary is in PATH, falling back
// to the other engine. lookPath may be nil to use exec.LookPath.
func Detect(preferred EngineType, lookPath LookPathFunc) (*CLI, error) {
	if err := preferred.Validate(); err != nil {
		return nil, err
	}
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	for _, t := range []EngineType{preferred, preferred.fallback()} {
		if path, err := lookPath(string(t)); err == nil {
			return &CLI{engine: t, path: path}, nil
		}
	}
	return nil, &EngineNotAvailableError{
		Engine: preferred,
		Reason: fmt.Sprintf("%s is not installed or not in PATH, and %s fallback is also not available", preferred, preferred.fallback()),
	}
}

// Engine returns the engine type.
func (c *CLI) Engine() EngineType { return c.engine }

// Name returns the engine binary name.
func (c *CLI) Name() string { return string(c.engine) }

// Path returns the resolved binary path, or "" when the CLI was not detected.
func (c *CLI) Path() string { return c.path }

// Command prefixes args with the engine binary.
func (c *CLI) Command(args []string) []string {
	return append([]string{c.Name()}, args...)
}
