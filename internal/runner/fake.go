// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"context"
	"slices"
	"strings"
	"sync"
)

type (
	// FakeResponse is a canned outcome for FakeExecutor.
	FakeResponse struct {
		Result Result
		Err    error
	}

	// FakeExecutor records requests and answers them from canned responses.
	// Responses are matched by the longest prefix of the formatted command
	// line. Handler, when set, is consulted first and may fall through by
	// returning handled=false.
	FakeExecutor struct {
		mu        sync.Mutex
		calls     []Request
		responses map[string]FakeResponse
		fallback  FakeResponse

		Handler func(req Request) (res Result, handled bool, err error)
	}
)

// NewFakeExecutor returns a FakeExecutor that answers unmatched commands with
// exit code 0 and no output.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{responses: make(map[string]FakeResponse)}
}

// SetResponse answers commands whose formatted line starts with prefix.
func (f *FakeExecutor) SetResponse(prefix string, res Result, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = FakeResponse{Result: res, Err: err}
}

// SetFallback answers commands that match no prefix.
func (f *FakeExecutor) SetFallback(res Result, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallback = FakeResponse{Result: res, Err: err}
}

// Execute records req and returns the matching response with Command set.
func (f *FakeExecutor) Execute(_ context.Context, req Request) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	handler := f.Handler
	f.mu.Unlock()

	if handler != nil {
		if res, handled, err := handler(req); handled {
			res.Command = slices.Clone(req.Command)
			return res, err
		}
	}

	line := FormatCommand(req.Command)
	f.mu.Lock()
	defer f.mu.Unlock()
	resp, best := f.fallback, -1
	for prefix, r := range f.responses {
		if strings.HasPrefix(line, prefix) && len(prefix) > best {
			resp, best = r, len(prefix)
		}
	}
	res := resp.Result
	res.Command = slices.Clone(req.Command)
	return res, resp.Err
}

// Calls returns the recorded requests in order.
func (f *FakeExecutor) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// Commands returns the formatted command lines in order.
func (f *FakeExecutor) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, len(f.calls))
	for i, c := range f.calls {
		lines[i] = FormatCommand(c.Command)
	}
	return lines
}

// Count returns how many recorded command lines start with prefix.
func (f *FakeExecutor) Count(prefix string) int {
	n := 0
	for _, line := range f.Commands() {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

var _ Executor = (*FakeExecutor)(nil)
