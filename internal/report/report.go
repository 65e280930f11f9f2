// Package report lays out the run directory and persists the game summary.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/randomizedcoder/go-match-bench/internal/match"
	"github.com/randomizedcoder/go-match-bench/internal/process"
)

// File names inside a run directory.
const (
	SummaryFile = "summary.csv"
	MetricsFile = "metrics.prom"
)

// Header is the first row of summary.csv.
var Header = []string{
	"game", "worker", "host", "port", "connect_order",
	"my_mode", "my_seconds", "monte_seconds", "server_timeout",
	"winner", "my_exit", "monte_exit",
}

// RunParams are the inputs that name a run directory.
type RunParams struct {
	Parallel     int
	MonteSeconds int
	MyMode       string
	MySeconds    float64
}

// RunDirName returns the directory name of a run started at now, e.g.
// "20260115-093000-go-parallel10-monte10s-vs-tt3.0s".
func RunDirName(now time.Time, p RunParams) string {
	return fmt.Sprintf("%s-go-parallel%d-monte%ds-vs-%s%ss",
		now.Format("20060102-150405"),
		p.Parallel,
		p.MonteSeconds,
		p.MyMode,
		process.FormatSeconds(p.MySeconds),
	)
}

// CreateRunDir creates outDir/RunDirName(now, p) and returns its path.
func CreateRunDir(outDir string, now time.Time, p RunParams) (string, error) {
	dir := filepath.Join(outDir, RunDirName(now, p))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run directory: %w", err)
	}
	return dir, nil
}

// Row renders res as a summary.csv record.
func Row(res match.Result) []string {
	return []string{
		strconv.Itoa(res.Game),
		strconv.Itoa(res.Lane),
		res.Host,
		strconv.Itoa(res.Port),
		res.Order.String(),
		res.PlayerMode,
		process.FormatSeconds(res.PlayerSeconds),
		strconv.Itoa(res.OpponentSeconds),
		strconv.Itoa(res.ServerTimeout),
		res.Winner.String(),
		strconv.Itoa(res.PlayerExit),
		strconv.Itoa(res.OpponentExit),
	}
}

// SortByGame orders results by game number.
func SortByGame(results []match.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Game < results[j].Game
	})
}

// WriteCSV writes results, sorted by game, to path.
func WriteCSV(path string, results []match.Result) error {
	sorted := append([]match.Result(nil), results...)
	SortByGame(sorted)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		f.Close()
		return fmt.Errorf("write summary header: %w", err)
	}
	for _, res := range sorted {
		if err := w.Write(Row(res)); err != nil {
			f.Close()
			return fmt.Errorf("write game %d: %w", res.Game, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush summary: %w", err)
	}
	return f.Close()
}
