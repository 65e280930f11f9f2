package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-match-bench/internal/stats"
)

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to update the display.
type TickMsg time.Time

// DoneMsg tells the dashboard the run has finished.
type DoneMsg struct{}

// =============================================================================
// Model
// =============================================================================

// SnapshotSource provides the live run statistics.
type SnapshotSource interface {
	Snapshot() stats.Snapshot
}

// Config holds TUI configuration.
type Config struct {
	Source SnapshotSource

	RunID         string
	RunDir        string
	PlayerLabel   string
	OpponentLabel string
	MetricsAddr   string

	// OnQuit is called once when the operator asks to stop.
	OnQuit func()
}

// Model represents the TUI state.
type Model struct {
	source SnapshotSource
	onQuit func()

	runID         string
	runDir        string
	playerLabel   string
	opponentLabel string
	metricsAddr   string

	snapshot   stats.Snapshot
	lastUpdate time.Time

	width  int
	height int

	// stopping is set once the operator pressed q; the dashboard stays up
	// until running games finish.
	stopping bool
	quitting bool
}

// New creates a new TUI model.
func New(cfg Config) Model {
	m := Model{
		source:        cfg.Source,
		onQuit:        cfg.OnQuit,
		runID:         cfg.RunID,
		runDir:        cfg.RunDir,
		playerLabel:   cfg.PlayerLabel,
		opponentLabel: cfg.OpponentLabel,
		metricsAddr:   cfg.MetricsAddr,
		lastUpdate:    time.Now(),
		width:         80,
		height:        24,
	}
	m.refresh()
	return m
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.stopping {
				m.stopping = true
				if m.onQuit != nil {
					m.onQuit()
				}
			}
			return m, nil
		case "r":
			m.refresh()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		m.refresh()
		return m, tickCmd()

	case DoneMsg:
		m.refresh()
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderDashboard()
}

func (m *Model) refresh() {
	if m.source != nil {
		m.snapshot = m.source.Snapshot()
	}
	m.lastUpdate = time.Now()
}

// =============================================================================
// Commands
// =============================================================================

// tickCmd returns a command that sends a tick after 500ms.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// =============================================================================
// Accessors
// =============================================================================

// Progress returns the share of games reported (0.0 to 1.0).
func (m Model) Progress() float64 {
	if m.snapshot.Total == 0 {
		return 0
	}
	return float64(m.snapshot.Reported) / float64(m.snapshot.Total)
}

// Stopping reports whether the operator asked to stop.
func (m Model) Stopping() bool {
	return m.stopping
}

// =============================================================================
// Formatting Helpers
// =============================================================================

// formatSince formats how long a lane has been in its state as M:SS.
func formatSince(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
