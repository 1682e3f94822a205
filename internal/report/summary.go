// SPDX-License-Identifier: MPL-2.0

package report

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pelletier/go-toml/v2"
)

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

var (
	passedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	failedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

type (
	// Status is the outcome of one case.
	Status string

	// Outcome records one case of a run.
	Outcome struct {
		Name    string   `toml:"name"`
		Status  Status   `toml:"status"`
		Seconds float64  `toml:"duration_seconds"`
		Message string   `toml:"message,omitempty"`
		Markers []string `toml:"markers,omitempty"`
	}

	// Summary aggregates the outcomes of a suite run. It is written as TOML
	// for CI artifacts.
	Summary struct {
		Suite    string    `toml:"suite"`
		Started  time.Time `toml:"started"`
		Passed   int       `toml:"passed"`
		Failed   int       `toml:"failed"`
		Skipped  int       `toml:"skipped"`
		Outcomes []Outcome `toml:"case"`
	}
)

// Add records o and updates the counters.
func (s *Summary) Add(o Outcome) {
	switch o.Status {
	case StatusPassed:
		s.Passed++
	case StatusFailed:
		s.Failed++
	case StatusSkipped:
		s.Skipped++
	}
	s.Outcomes = append(s.Outcomes, o)
}

// OK reports whether no case failed.
func (s *Summary) OK() bool { return s.Failed == 0 }

// Total returns the number of recorded cases.
func (s *Summary) Total() int { return len(s.Outcomes) }

// MarshalTOML encodes the summary.
func (s *Summary) MarshalTOML() ([]byte, error) {
	return toml.Marshal(s)
}

// MarshalSummaries encodes several summaries as one document with a
// [[suites]] table per summary.
func MarshalSummaries(summaries []*Summary) ([]byte, error) {
	return toml.Marshal(struct {
		Suites []*Summary `toml:"suites"`
	}{summaries})
}

// Render writes one styled line per case followed by the totals.
func (s *Summary) Render(w io.Writer) {
	for _, o := range s.Outcomes {
		var mark string
		switch o.Status {
		case StatusPassed:
			mark = passedStyle.Render("PASS")
		case StatusFailed:
			mark = failedStyle.Render("FAIL")
		default:
			mark = skippedStyle.Render("SKIP")
		}
		fmt.Fprintf(w, "%s %s (%.1fs)\n", mark, o.Name, o.Seconds)
	}
	fmt.Fprintf(w, "\n%s: %d passed, %d failed, %d skipped\n", s.Suite, s.Passed, s.Failed, s.Skipped)
}
