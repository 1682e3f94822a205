// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// FormatCommand renders argv as a line that can be pasted into bash.
func FormatCommand(argv []string) string {
	parts := make([]string, len(argv))
	for i, arg := range argv {
		parts[i] = QuoteArg(arg)
	}
	return strings.Join(parts, " ")
}

// QuoteArg quotes a single word for bash, leaving safe words untouched.
func QuoteArg(arg string) string {
	q, err := syntax.Quote(arg, syntax.LangBash)
	if err != nil {
		// Only strings with NUL bytes are unquotable in bash.
		return strconv.Quote(arg)
	}
	return q
}

// JoinStreams combines separately captured stdout and stderr. When both are
// non-empty they are joined with StreamSeparator on its own line.
func JoinStreams(stdout, stderr string) string {
	switch {
	case stderr == "":
		return stdout
	case stdout == "":
		return stderr
	}
	var b strings.Builder
	b.Grow(len(stdout) + len(StreamSeparator) + len(stderr) + 2)
	b.WriteString(stdout)
	if !strings.HasSuffix(stdout, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(StreamSeparator)
	b.WriteByte('\n')
	b.WriteString(stderr)
	return b.String()
}

// StreamSeparator divides stdout from stderr in captured-mode output.
const StreamSeparator = "----- stderr -----"
