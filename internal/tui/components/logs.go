package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	logTimeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	logINF       = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
	logWRN       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	logERR       = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

// Entry is one line in the TUI's rolling log panel, built from the plain
// strings the engine's push sink produces.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
}

// NewEntry classifies a raw sink message by its conventional WARN/ERROR
// prefix, defaulting to "info" otherwise.
func NewEntry(msg string) Entry {
	switch {
	case strings.HasPrefix(msg, "ERROR "):
		return Entry{Time: time.Now(), Level: "error", Message: strings.TrimPrefix(msg, "ERROR ")}
	case strings.HasPrefix(msg, "WARN "):
		return Entry{Time: time.Now(), Level: "warn", Message: strings.TrimPrefix(msg, "WARN ")}
	default:
		return Entry{Time: time.Now(), Level: "info", Message: msg}
	}
}

// RenderLogs renders the last maxLines log entries.
func RenderLogs(entries []Entry, maxLines int) string {
	if len(entries) == 0 {
		return "  No log entries yet"
	}

	start := 0
	if len(entries) > maxLines {
		start = len(entries) - maxLines
	}

	var b strings.Builder
	for i := start; i < len(entries); i++ {
		e := entries[i]
		ts := logTimeStyle.Render(e.Time.Format("15:04:05"))

		var lvl string
		switch e.Level {
		case "warn":
			lvl = logWRN.Render("WRN")
		case "error":
			lvl = logERR.Render("ERR")
		default:
			lvl = logINF.Render("INF")
		}

		line := fmt.Sprintf("  %s %s %s", ts, lvl, e.Message)
		b.WriteString(line)
		if i < len(entries)-1 {
			b.WriteByte('\n')
		}
	}

	return b.String()
}
