// Package orchestrator schedules games across worker lanes and drives a
// whole benchmark run.
package orchestrator

import (
	"context"
	"io"
	"log/slog"

	"github.com/randomizedcoder/go-match-bench/internal/match"
)

// Assign returns the games lane plays, in order: lane+1, lane+1+laneCount, ...
// up to totalGames. Across all lanes every game in 1..totalGames appears
// exactly once.
func Assign(lane, totalGames, laneCount int) []int {
	if laneCount < 1 || lane < 0 || lane >= laneCount {
		return nil
	}
	var games []int
	for g := lane + 1; g <= totalGames; g += laneCount {
		games = append(games, g)
	}
	return games
}

// MatchRunner plays or skips a single game.
type MatchRunner interface {
	Run(ctx context.Context, task match.Task, port int) match.Result
	Skip(task match.Task, port int) match.Result
}

// Lane plays its share of the games one after another on a fixed port.
type Lane struct {
	Index  int
	Port   int
	Runner MatchRunner
	Token  *match.Token
	Logger *slog.Logger
}

// Run plays every game assigned to the lane. Once the token is requested,
// the remaining games are skipped; a game already in progress is not
// interrupted.
func (l *Lane) Run(ctx context.Context, totalGames, laneCount int) []match.Result {
	logger := l.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("lane", l.Index, "port", l.Port)

	games := Assign(l.Index, totalGames, laneCount)
	results := make([]match.Result, 0, len(games))

	logger.Debug("lane_started", "games", len(games))
	skipped := 0
	for _, game := range games {
		task := match.NewTask(game, l.Index)
		if l.Token != nil && l.Token.Requested() {
			results = append(results, l.Runner.Skip(task, l.Port))
			skipped++
			continue
		}
		results = append(results, l.Runner.Run(ctx, task, l.Port))
	}
	logger.Debug("lane_finished", "played", len(games)-skipped, "skipped", skipped)

	return results
}
