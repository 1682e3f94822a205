// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const bannerWidth = 80

var (
	bannerRule    = strings.Repeat("=", bannerWidth)
	bannerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	passStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	failStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
	timedOutStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F59E0B"))
)

func writeBanner(w io.Writer, msg string) {
	fmt.Fprintf(w, "\n%s\n%s\n%s\n", bannerRule, bannerStyle.Render("🚀 "+msg), bannerRule)
}

func writeSummary(w io.Writer, msg string, res Result) {
	var line string
	switch {
	case res.TimedOut:
		line = timedOutStyle.Render(fmt.Sprintf("⏱  %s timed out after %s", msg, res.Duration.Round(time.Second)))
	case res.ExitCode == 0:
		line = passStyle.Render("✅ " + msg + " succeeded")
	default:
		line = failStyle.Render(fmt.Sprintf("❌ %s failed (exit code: %d)", msg, res.ExitCode))
	}
	fmt.Fprintf(w, "\n%s\n%s\n%s\n", bannerRule, line, bannerRule)
}
