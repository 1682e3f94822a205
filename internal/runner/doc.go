// SPDX-License-Identifier: MPL-2.0

// Package runner executes external commands for the harness, on the host or
// through a container engine's exec subcommand, under a timeout.
//
// Two output modes are supported. OutputCaptured buffers stdout and stderr
// separately and joins them once the process exits; OutputLive reads the merged
// stream line by line, echoing each line to a console writer while accumulating
// it. Either way Execute returns one Result whose fields are always populated.
//
// A non-zero exit status is a normal outcome and is reported through
// Result.ExitCode with a nil error. Execute returns an error only when the
// process could not be started (StartError), when the timeout elapsed
// (TimeoutError), or when the caller's context was cancelled. On timeout or
// cancellation the child's whole process group is killed.
package runner
