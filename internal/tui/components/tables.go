package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jfoltran/dbsync/internal/orchestrator"
	"github.com/jfoltran/dbsync/internal/restore"
)

var (
	tblHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6"))
	tblOkStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	tblErrStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	tblStagedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
)

// RenderTables renders the most recently completed table results.
func RenderTables(snap orchestrator.ProgressInfo, width, maxRows int) string {
	if len(snap.RecentResults) == 0 {
		return "  No tables completed yet"
	}

	var b strings.Builder
	header := fmt.Sprintf("  %-35s %-10s %-10s %s", "Table", "Outcome", "Duration", "Result")
	b.WriteString(tblHeaderStyle.Render(header))
	b.WriteByte('\n')

	results := snap.RecentResults
	shown := len(results)
	if maxRows > 0 && shown > maxRows {
		results = results[shown-maxRows:]
		shown = maxRows
	}

	for i, r := range results {
		name := r.Table
		if len(name) > 33 {
			name = name[:30] + "..."
		}

		var outcomeStr, resultStr string
		switch {
		case r.Err != nil:
			outcomeStr = r.Outcome.String()
			resultStr = tblErrStyle.Render("FAILED: " + r.Err.Error())
		case r.Outcome == restore.OutcomeStaged:
			outcomeStr = tblStagedStyle.Render(r.Outcome.String())
			resultStr = tblOkStyle.Render("ok")
		default:
			outcomeStr = r.Outcome.String()
			resultStr = tblOkStyle.Render("ok")
		}

		line := fmt.Sprintf("  %-35s %-10s %-10s %s", name, outcomeStr, r.Duration.Round(time.Millisecond), resultStr)
		b.WriteString(line)
		if i < shown-1 {
			b.WriteByte('\n')
		}
	}

	return b.String()
}
