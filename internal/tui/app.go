// Package tui implements the terminal dashboard: a Bubble Tea program
// that polls an orchestrator.Engine's progress snapshot and mirrors its
// log stream into a rolling panel, for an operator watching a run live.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jfoltran/dbsync/internal/orchestrator"
	"github.com/jfoltran/dbsync/internal/tui/components"
)

// pollInterval bounds how often the dashboard re-reads the engine's
// progress snapshot; a sync run is never faster-moving than this.
const pollInterval = 500 * time.Millisecond

const maxLogEntries = 200

type progressMsg orchestrator.ProgressInfo

type logMsg components.Entry

type tickMsg struct{}

// Model is the main Bubble Tea model for the dbsync dashboard.
type Model struct {
	engine *orchestrator.Engine
	logCh  chan components.Entry

	snapshot orchestrator.ProgressInfo
	logs     []components.Entry

	width  int
	height int
	ready  bool
}

// NewModel creates a dashboard model polling engine and mirroring its log
// stream through a buffered channel fed by AddObserver.
func NewModel(engine *orchestrator.Engine) Model {
	logCh := make(chan components.Entry, 256)
	engine.AddObserver(func(msg string) {
		select {
		case logCh <- components.NewEntry(msg):
		default:
		}
	})
	return Model{engine: engine, logCh: logCh}
}

// Init starts the polling loop and the log-draining loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		pollProgress(m.engine),
		waitForLog(m.logCh),
		tea.Tick(pollInterval, func(time.Time) tea.Msg { return tickMsg{} }),
	)
}

func pollProgress(engine *orchestrator.Engine) tea.Cmd {
	return func() tea.Msg {
		return progressMsg(engine.Progress())
	}
}

func waitForLog(ch chan components.Entry) tea.Cmd {
	return func() tea.Msg {
		entry, ok := <-ch
		if !ok {
			return nil
		}
		return logMsg(entry)
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case tickMsg:
		return m, tea.Batch(pollProgress(m.engine), tea.Tick(pollInterval, func(time.Time) tea.Msg { return tickMsg{} }))

	case progressMsg:
		m.snapshot = orchestrator.ProgressInfo(msg)

	case logMsg:
		m.logs = append(m.logs, components.Entry(msg))
		if len(m.logs) > maxLogEntries {
			m.logs = m.logs[len(m.logs)-maxLogEntries:]
		}
		return m, waitForLog(m.logCh)
	}

	return m, nil
}

// View renders the full dashboard.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	w := m.width
	snap := m.snapshot

	var sections []string

	title := headerStyle.Width(w).Render(" dbsync")
	sections = append(sections, title)

	headerBox := boxStyle.Width(w - 2).Render(components.RenderHeader(snap, w-4))
	sections = append(sections, headerBox)

	progressBox := boxStyle.Width(w - 2).Render(components.RenderProgress(snap, w-4))
	sections = append(sections, progressBox)

	tableHeight := m.height - 16
	if tableHeight < 3 {
		tableHeight = 3
	}
	tableContent := components.RenderTables(snap, w-4, tableHeight)
	tableBox := boxStyle.Width(w - 2).Render(tableContent)
	sections = append(sections, tableBox)

	logBox := boxStyle.Width(w - 2).Render(components.RenderLogs(m.logs, 8))
	sections = append(sections, logBox)

	help := helpStyle.Render("  q: quit")
	sections = append(sections, help)

	return strings.Join(sections, "\n")
}

// Run starts the TUI in fullscreen mode, driving display of engine's
// progress until the user quits.
func Run(engine *orchestrator.Engine) error {
	model := NewModel(engine)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
