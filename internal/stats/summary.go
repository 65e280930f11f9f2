package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/randomizedcoder/go-match-bench/internal/match"
)

// SummaryConfig holds configuration for summary formatting.
type SummaryConfig struct {
	RunID      string
	RunDir     string
	SummaryCSV string
	Lanes      int

	// PlayerLabel and OpponentLabel name the two sides, e.g. "tt 3.0s".
	PlayerLabel   string
	OpponentLabel string

	// MetricsAddr is the Prometheus endpoint address, if one was served.
	MetricsAddr string

	// Interrupted is set when a stop was requested during the run.
	Interrupted bool
}

const (
	rule = "═══════════════════════════════════════════════════════════════════\n"
	thin = "───────────────────────────────────────────────────────────────────\n"
)

// FormatExitSummary formats the run results for display at program exit.
func FormatExitSummary(s Snapshot, cfg SummaryConfig) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(rule)
	b.WriteString("                    go-match-bench Exit Summary\n")
	b.WriteString(rule)

	if cfg.Interrupted {
		b.WriteString("⚠️  INTERRUPTED: remaining games were recorded as stopped\n\n")
	}

	fmt.Fprintf(&b, "Run ID:                 %s\n", cfg.RunID)
	fmt.Fprintf(&b, "Run Duration:           %s\n", FormatDuration(s.Elapsed))
	fmt.Fprintf(&b, "Games:                  %d reported / %d requested on %d lanes\n", s.Reported, s.Total, cfg.Lanes)
	if cfg.PlayerLabel != "" {
		fmt.Fprintf(&b, "Matchup:                my %s vs monte %s\n", cfg.PlayerLabel, cfg.OpponentLabel)
	}
	b.WriteString("\n")

	// Outcomes
	b.WriteString(thin)
	b.WriteString("Outcomes:\n")
	for _, o := range match.AllOutcomes {
		n := s.Outcomes[o]
		if n == 0 && !o.IsDecided() {
			continue
		}
		fmt.Fprintf(&b, "  %-16s %5d  %s\n", o.String(), n, percent(n, s.Reported))
	}
	b.WriteString("\n")
	if s.Decided > 0 {
		fmt.Fprintf(&b, "Win Rate:               %.1f%%  (draw = ½, over %d decided games)\n\n", s.WinRate*100, s.Decided)
	} else {
		b.WriteString("Win Rate:               n/a (no decided games)\n\n")
	}

	if s.DurationP50 > 0 {
		b.WriteString("Game Duration:\n")
		fmt.Fprintf(&b, "  P50 (median):         %s\n", FormatDuration(s.DurationP50))
		fmt.Fprintf(&b, "  P95:                  %s\n", FormatDuration(s.DurationP95))
		fmt.Fprintf(&b, "  P99:                  %s\n\n", FormatDuration(s.DurationP99))
	}

	if len(s.ExitCodes) > 0 {
		b.WriteString("Client Exit Codes:\n")
		for _, code := range s.SortedExitCodes() {
			fmt.Fprintf(&b, "  %3d %-16s %d\n", code, exitCodeLabel(code), s.ExitCodes[code])
		}
		b.WriteString("\n")
	}

	b.WriteString(thin)
	if cfg.SummaryCSV != "" {
		fmt.Fprintf(&b, "Summary:  %s\n", cfg.SummaryCSV)
	}
	if cfg.RunDir != "" {
		fmt.Fprintf(&b, "Logs:     %s\n", cfg.RunDir)
	}
	if cfg.MetricsAddr != "" {
		fmt.Fprintf(&b, "Metrics endpoint was: http://%s/metrics\n", cfg.MetricsAddr)
	}
	b.WriteString(rule)

	return b.String()
}

func percent(n, total int) string {
	if total == 0 {
		return ""
	}
	return fmt.Sprintf("(%.1f%%)", float64(n)*100/float64(total))
}

// exitCodeLabel returns a human-readable label for common exit codes.
func exitCodeLabel(code int) string {
	switch code {
	case 0:
		return "(clean)"
	case 1:
		return "(error)"
	case 124:
		return "(timeout)"
	case 130:
		return "(stopped)"
	case 137:
		return "(SIGKILL)"
	case 143:
		return "(SIGTERM)"
	default:
		return ""
	}
}

// FormatDuration formats a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
