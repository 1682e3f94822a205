// SPDX-License-Identifier: MPL-2.0

// Package suite holds the SDK test catalog and the sequential driver that
// runs it. A Suite is an ordered list of Cases; Run executes the cases that
// pass a Filter one after another and records every outcome, so one broken
// build does not hide the results of the rest of the matrix.
package suite
