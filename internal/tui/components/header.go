package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jfoltran/dbsync/internal/orchestrator"
)

var (
	headerPhaseStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A78BFA"))
	headerValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
)

// RenderHeader renders the top status bar: run status, elapsed time, and
// the table currently being synchronized.
func RenderHeader(snap orchestrator.ProgressInfo, width int) string {
	status := headerPhaseStyle.Render(strings.ToUpper(snap.Status.String()))
	elapsed := formatElapsed(snap.StartedAt)

	left := fmt.Sprintf("  Status: %s    Elapsed: %s", status, headerValueStyle.Render(elapsed))

	current := snap.CurrentTable
	if current == "" {
		current = "-"
	}
	right := fmt.Sprintf("Current table: %s  ", headerValueStyle.Render(current))

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return left + strings.Repeat(" ", gap) + right
}

func formatElapsed(start time.Time) string {
	if start.IsZero() {
		return "0s"
	}
	d := time.Since(start)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
