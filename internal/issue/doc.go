// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and a list
// of remediation hints. The Issue catalog adds longer Markdown guidance for the
// failure categories the harness knows about (missing container engine, failed
// image build, container not running, timeouts, ...), rendered with glamour.
package issue
