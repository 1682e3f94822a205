// SPDX-License-Identifier: MPL-2.0

package report

import (
	"strings"
)

// DefaultTailLines is how many trailing lines an excerpt keeps when no error
// indicator is found.
const DefaultTailLines = 50

const (
	contextBefore = 2
	contextAfter  = 2
	gapMarker     = "..."
)

// errorIndicators are case-sensitive substrings marking a line as an error.
var errorIndicators = []string{"ERROR", "FAILED", "Error", "error:", "failed:", "cannot", "Cannot"}

// Lines splits output into lines without the trailing empty line a final
// newline would produce.
func Lines(output string) []string {
	output = strings.TrimSuffix(output, "\n")
	if output == "" {
		return nil
	}
	return strings.Split(output, "\n")
}

// Tail returns the last n lines of output. n <= 0 uses DefaultTailLines.
func Tail(output string, n int) []string {
	if n <= 0 {
		n = DefaultTailLines
	}
	lines := Lines(output)
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// IsErrorLine reports whether line contains an error indicator.
func IsErrorLine(line string) bool {
	for _, ind := range errorIndicators {
		if strings.Contains(line, ind) {
			return true
		}
	}
	return false
}

// ErrorContext returns every error line of output with two lines of context
// on each side. Overlapping windows are merged, non-adjacent windows are
// separated by "...", and repeated lines are kept only once. The result never
// exceeds DefaultTailLines lines: a longer excerpt keeps its last lines behind
// a leading "...". When no line matches it returns Tail(output, DefaultTailLines).
func ErrorContext(output string) []string {
	lines := Lines(output)

	type window struct{ start, end int }
	var windows []window
	for i, line := range lines {
		if !IsErrorLine(line) {
			continue
		}
		w := window{max(0, i-contextBefore), min(len(lines), i+contextAfter+1)}
		if n := len(windows); n > 0 && w.start <= windows[n-1].end {
			windows[n-1].end = max(windows[n-1].end, w.end)
			continue
		}
		windows = append(windows, w)
	}
	if len(windows) == 0 {
		return Tail(output, DefaultTailLines)
	}

	seen := make(map[string]bool)
	var out []string
	for i, w := range windows {
		if i > 0 {
			out = append(out, gapMarker)
		}
		for _, line := range lines[w.start:w.end] {
			if seen[line] {
				continue
			}
			seen[line] = true
			out = append(out, line)
		}
	}
	if windows[len(windows)-1].end < len(lines) {
		out = append(out, gapMarker)
	}
	return capExcerpt(out, DefaultTailLines)
}

// capExcerpt keeps the last n-1 lines of excerpt behind a "..." marker when it
// is longer than n.
func capExcerpt(excerpt []string, n int) []string {
	if len(excerpt) <= n {
		return excerpt
	}
	kept := excerpt[len(excerpt)-(n-1):]
	if kept[0] == gapMarker {
		kept = kept[1:]
	}
	return append([]string{gapMarker}, kept...)
}
