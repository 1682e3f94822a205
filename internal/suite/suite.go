// SPDX-License-Identifier: MPL-2.0

package suite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"dxtest-cli/internal/report"

	"github.com/charmbracelet/log"
)

// ErrSkipped is wrapped by errors that mark a case as skipped rather than failed.
var ErrSkipped = errors.New("skipped")

type (
	// CaseFunc is the body of a case. A nil error passes the case.
	CaseFunc func(ctx context.Context) error

	// Case is one named check.
	Case struct {
		Name    string
		Markers []string
		Run     CaseFunc
	}

	// Suite is an ordered list of cases.
	Suite struct {
		Name  string
		Cases []Case
	}

	// Filter selects cases. Empty fields match everything.
	Filter struct {
		// Markers must all be present on a case.
		Markers []string
		// Name is a substring of the case name.
		Name string
	}

	// RunOption configures Run.
	RunOption func(*runConfig)

	runConfig struct {
		logger *log.Logger
		now    func() time.Time
	}
)

// Skip returns an error that marks the running case as skipped.
func Skip(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSkipped, fmt.Sprintf(format, args...))
}

// WithLogger sets the logger used for per-case progress.
func WithLogger(l *log.Logger) RunOption {
	return func(c *runConfig) { c.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RunOption {
	return func(c *runConfig) { c.now = now }
}

// Match reports whether c is selected.
func (f Filter) Match(c Case) bool {
	if f.Name != "" && !strings.Contains(c.Name, f.Name) {
		return false
	}
	for _, m := range f.Markers {
		if !slices.Contains(c.Markers, m) {
			return false
		}
	}
	return true
}

// Select returns the cases of s that match f, in order.
func (s Suite) Select(f Filter) []Case {
	var out []Case
	for _, c := range s.Cases {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}

// Run executes the selected cases of s in order. A failing or panicking case
// is recorded and the remaining cases still run. Once ctx is done the
// remaining cases are recorded as skipped.
func Run(ctx context.Context, s Suite, f Filter, opts ...RunOption) *report.Summary {
	cfg := runConfig{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "suite", Level: log.WarnLevel})
	}

	sum := &report.Summary{Suite: s.Name, Started: cfg.now()}
	for _, c := range s.Select(f) {
		if err := ctx.Err(); err != nil {
			sum.Add(report.Outcome{Name: c.Name, Status: report.StatusSkipped, Message: err.Error(), Markers: c.Markers})
			continue
		}

		start := cfg.now()
		cfg.logger.Info("running case", "case", c.Name)
		err := runCase(ctx, c)
		o := report.Outcome{
			Name:    c.Name,
			Status:  report.StatusPassed,
			Seconds: cfg.now().Sub(start).Seconds(),
			Markers: c.Markers,
		}
		switch {
		case err == nil:
		case errors.Is(err, ErrSkipped):
			o.Status = report.StatusSkipped
			o.Message = err.Error()
		default:
			o.Status = report.StatusFailed
			o.Message = err.Error()
			cfg.logger.Error("case failed", "case", c.Name, "err", firstLine(err.Error()))
		}
		sum.Add(o)
	}
	return sum
}

func runCase(ctx context.Context, c Case) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	if c.Run == nil {
		return errors.New("case has no body")
	}
	return c.Run(ctx)
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
