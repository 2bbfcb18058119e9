package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jfoltran/dbsync/internal/orchestrator"
)

// RenderProgress renders the overall synchronization progress bar.
func RenderProgress(snap orchestrator.ProgressInfo, width int) string {
	total := snap.Total
	completed := snap.Completed
	if total == 0 {
		return "  No tables to synchronize"
	}

	pct := snap.Percent()

	barWidth := width - 30
	if barWidth < 10 {
		barWidth = 10
	}

	filled := barWidth * pct / 100
	if filled > barWidth {
		filled = barWidth
	}
	empty := barWidth - filled

	coloredFull := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Render(strings.Repeat("█", filled))
	coloredEmpty := lipgloss.NewStyle().Foreground(lipgloss.Color("#374151")).Render(strings.Repeat("░", empty))

	return fmt.Sprintf("  Overall: %s%s %3d%% (%d/%d tables)",
		coloredFull, coloredEmpty, pct, completed, total)
}
