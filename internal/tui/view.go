package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-match-bench/internal/match"
	"github.com/randomizedcoder/go-match-bench/internal/stats"
)

// renderDashboard renders the whole screen.
func (m Model) renderDashboard() string {
	sections := []string{
		m.renderHeader(),
		m.renderProgress(),
		m.renderLanes(),
		m.renderOutcomes(),
		m.renderFooter(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	header := fmt.Sprintf(
		" go-match-bench │ my %s vs monte %s │ Games: %d/%d │ Elapsed: %s ",
		m.playerLabel,
		m.opponentLabel,
		m.snapshot.Reported,
		m.snapshot.Total,
		stats.FormatDuration(m.snapshot.Elapsed),
	)
	return headerStyle.Width(m.width).Render(header)
}

// =============================================================================
// Progress
// =============================================================================

func (m Model) renderProgress() string {
	barWidth := m.width - 30
	if barWidth < 20 {
		barWidth = 20
	}

	status := mutedStyle.Render(fmt.Sprintf("%d lanes busy", m.snapshot.ActiveLanes()))
	if m.stopping {
		status = stoppingStyle.Render("Stopping: waiting for running games to finish")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		sectionHeaderStyle.Render("Progress"),
		RenderProgressBar(m.Progress(), barWidth),
		status,
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Lanes
// =============================================================================

func (m Model) renderLanes() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Lanes"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%-5s %-6s %-6s %-16s %-6s %s", "LANE", "PORT", "GAME", "STATE", "FOR", "DONE")))

	now := time.Now()
	lanes := m.snapshot.Lanes
	// Leave room for the other sections on small terminals.
	maxRows := m.height - 18
	if maxRows < 3 {
		maxRows = 3
	}
	for i, l := range lanes {
		if i == maxRows && len(lanes) > maxRows {
			b.WriteString("\n")
			b.WriteString(dimStyle.Render(fmt.Sprintf("… %d more lanes", len(lanes)-maxRows)))
			break
		}
		b.WriteString("\n")
		b.WriteString(renderLaneRow(l, now))
	}

	return boxStyle.Width(m.width - 2).Render(b.String())
}

func renderLaneRow(l stats.LaneStatus, now time.Time) string {
	game := "-"
	if l.Game > 0 {
		game = fmt.Sprintf("%d", l.Game)
	}
	state := StateStyle(l.State).Render(fmt.Sprintf("%-16s", l.State.String()))
	return fmt.Sprintf("%-5d %-6d %-6s %s %-6s %d/%d",
		l.Lane, l.Port, game, state, formatSince(now.Sub(l.Since)), l.Done, l.Total)
}

// =============================================================================
// Outcomes
// =============================================================================

func (m Model) renderOutcomes() string {
	s := m.snapshot
	var rows []string
	rows = append(rows, sectionHeaderStyle.Render("Outcomes"))

	var tallies []string
	for _, o := range match.AllOutcomes {
		n := s.Outcomes[o]
		if n == 0 && !o.IsDecided() {
			continue
		}
		tallies = append(tallies, OutcomeStyle(o).Render(fmt.Sprintf("%s %d", o.String(), n)))
	}
	rows = append(rows, strings.Join(tallies, "  "))

	winRate := "n/a"
	if s.Decided > 0 {
		winRate = fmt.Sprintf("%.1f%% of %d", s.WinRate*100, s.Decided)
	}
	rows = append(rows, RenderKeyValue("Win rate", winRate))
	if s.DurationP50 > 0 {
		rows = append(rows, RenderKeyValue("Game P50/P95", fmt.Sprintf("%s / %s",
			stats.FormatDuration(s.DurationP50), stats.FormatDuration(s.DurationP95))))
	}

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	parts := []string{"q: stop after running games", "r: refresh"}
	if m.runID != "" {
		parts = append(parts, "run: "+m.runID)
	}
	if m.metricsAddr != "" {
		parts = append(parts, "metrics: http://"+m.metricsAddr+"/metrics")
	}
	if m.runDir != "" {
		parts = append(parts, "logs: "+m.runDir)
	}
	return footerStyle.Render(strings.Join(parts, " │ "))
}
