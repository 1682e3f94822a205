// SPDX-License-Identifier: MPL-2.0

// Package container builds argument vectors for the docker and podman CLIs.
//
// Nothing here executes a process. Callers prepend the engine binary with
// CLI.Command and hand the result to a runner, so every engine invocation
// shares the same timeout, logging and output handling.
package container
