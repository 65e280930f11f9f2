// Package tui provides a live terminal dashboard for a benchmark run.
//
// The TUI uses Bubble Tea for the application framework and Lipgloss for styling.
// It displays:
// - Overall progress
// - Per-lane state
// - Outcome tallies and win rate
package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-match-bench/internal/match"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#06B6D4") // Cyan

	colorSuccess = lipgloss.Color("#10B981") // Green
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorError   = lipgloss.Color("#EF4444") // Red
	colorInfo    = lipgloss.Color("#3B82F6") // Blue

	colorText      = lipgloss.Color("#E5E7EB") // Light gray
	colorTextMuted = lipgloss.Color("#9CA3AF") // Medium gray
	colorTextDim   = lipgloss.Color("#6B7280") // Dark gray
	colorBorder    = lipgloss.Color("#374151") // Border gray
)

// =============================================================================
// Styles
// =============================================================================

var (
	mutedStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	headerStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorPrimary).
			Bold(true).
			Padding(0, 1).
			MarginBottom(1)

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(colorBorder)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			MarginTop(1)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			Width(16)

	progressBarStyle = lipgloss.NewStyle().
				Foreground(colorPrimary)

	progressBarEmptyStyle = lipgloss.NewStyle().
				Foreground(colorBorder)

	stoppingStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)
)

var (
	stateIdleStyle    = lipgloss.NewStyle().Foreground(colorTextDim)
	stateStartStyle   = lipgloss.NewStyle().Foreground(colorInfo)
	statePlayingStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	stateFailedStyle  = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	stateStopStyle    = lipgloss.NewStyle().Foreground(colorWarning)
)

// StateStyle returns the style used to render a lane in state s.
func StateStyle(s match.State) lipgloss.Style {
	switch s {
	case match.StateServerStarting, match.StateServerReady:
		return stateStartStyle
	case match.StateClientsRunning, match.StateEndDetected:
		return statePlayingStyle
	case match.StateServerNoPort, match.StateNoEnd:
		return stateFailedStyle
	case match.StateStopped:
		return stateStopStyle
	default:
		return stateIdleStyle
	}
}

// OutcomeStyle returns the style for an outcome tally.
func OutcomeStyle(o match.Outcome) lipgloss.Style {
	switch o {
	case match.Player:
		return statePlayingStyle
	case match.Opponent, match.Draw:
		return valueStyle
	case match.Stopped:
		return stateStopStyle
	default:
		return stateFailedStyle
	}
}

// =============================================================================
// Helper Functions
// =============================================================================

// RenderKeyValue renders a label-value pair.
func RenderKeyValue(label string, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		labelStyle.Render(label+":"),
		valueStyle.Render(value),
	)
}

// RenderProgressBar renders a progress bar.
func RenderProgressBar(progress float64, width int) string {
	if width < 10 {
		width = 10
	}

	filled := int(progress * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := progressBarStyle.Render(repeatChar('█', filled)) +
		progressBarEmptyStyle.Render(repeatChar('░', width-filled))

	return bar + valueStyle.Render(fmt.Sprintf(" %3.0f%%", progress*100))
}

func repeatChar(char rune, count int) string {
	if count <= 0 {
		return ""
	}
	result := make([]rune, count)
	for i := range result {
		result[i] = char
	}
	return string(result)
}
