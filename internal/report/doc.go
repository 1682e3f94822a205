// SPDX-License-Identifier: MPL-2.0

// Package report turns command results into failure messages and run
// summaries. Failure excerpts keep long build logs readable: ErrorContext
// picks the lines around error indicators and falls back to the tail of the
// output.
package report
