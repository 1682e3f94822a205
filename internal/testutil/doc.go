// SPDX-License-Identifier: MPL-2.0

// Package testutil holds helpers shared by the dxtest package tests: a
// controllable clock for suite timing, filesystem helpers that fail the test
// on error, and gates for tests that need a real container engine.
package testutil
