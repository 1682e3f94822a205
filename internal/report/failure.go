// SPDX-License-Identifier: MPL-2.0

package report

import (
	"fmt"
	"strings"

	"dxtest-cli/internal/runner"
)

const (
	ruleWidth = 80
	// ExcerptErrorContext labels an excerpt built by ErrorContext.
	ExcerptErrorContext = "Error Context (key error lines with context):"
	// ExcerptOutput labels an excerpt holding the full output.
	ExcerptOutput = "Output:"
)

// Failure is a failed step rendered as a block for test logs.
type Failure struct {
	// Title is upper-cased in the heading, e.g. "docker build failed: dx-runtime on ubuntu:24.04".
	Title    string
	Command  string
	ExitCode int
	// Container is set for steps that ran inside a container.
	Container    string
	ExcerptLabel string
	Excerpt      []string
	// Err is the runner error, if any.
	Err error
}

// FailureFromResult builds a Failure whose excerpt is the error context of
// the combined output.
func FailureFromResult(title string, res runner.Result, err error) *Failure {
	return &Failure{
		Title:        title,
		Command:      runner.FormatCommand(res.Command),
		ExitCode:     res.ExitCode,
		ExcerptLabel: ExcerptErrorContext,
		Excerpt:      ErrorContext(res.Output),
		Err:          err,
	}
}

// InContainer sets the container name and returns f.
func (f *Failure) InContainer(name string) *Failure {
	f.Container = name
	return f
}

// Error implements the error interface.
func (f *Failure) Error() string {
	heavy := strings.Repeat("=", ruleWidth)
	light := strings.Repeat("-", ruleWidth)

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n%s\n%s\n", heavy, strings.ToUpper(f.Title), heavy)
	fmt.Fprintf(&b, "Exit Code: %d\n", f.ExitCode)
	if f.Command != "" {
		fmt.Fprintf(&b, "Command: %s\n", f.Command)
	}
	if f.Container != "" {
		fmt.Fprintf(&b, "Container: %s\n", f.Container)
	}
	if f.Err != nil {
		fmt.Fprintf(&b, "Cause: %v\n", f.Err)
	}
	label := f.ExcerptLabel
	if label == "" {
		label = ExcerptOutput
	}
	fmt.Fprintf(&b, "\n%s\n%s\n", label, light)
	if len(f.Excerpt) == 0 {
		b.WriteString("(no output)\n")
	}
	for _, line := range f.Excerpt {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString(light)
	b.WriteByte('\n')
	return b.String()
}

// Unwrap returns the runner error.
func (f *Failure) Unwrap() error { return f.Err }
