package stats

import (
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/randomizedcoder/go-match-bench/internal/match"
)

func portOf(lane int) int { return 25033 + lane }

func result(game, lane int, winner match.Outcome, d time.Duration) match.Result {
	exit := 0
	if winner == match.Stopped {
		exit = 130
	}
	return match.Result{Game: game, Lane: lane, Winner: winner, PlayerExit: exit, OpponentExit: exit, Duration: d}
}

func TestGamesForLane(t *testing.T) {
	tests := []struct {
		lane, total, lanes int
		want               int
	}{
		{0, 4, 2, 2},
		{1, 4, 2, 2},
		{0, 5, 2, 3},
		{1, 5, 2, 2},
		{2, 2, 4, 0},
		{0, 20, 10, 2},
		{0, 1, 0, 0},
	}
	for _, tt := range tests {
		if got := gamesForLane(tt.lane, tt.total, tt.lanes); got != tt.want {
			t.Errorf("gamesForLane(%d, %d, %d) = %d, want %d", tt.lane, tt.total, tt.lanes, got, tt.want)
		}
	}
}

func TestWinRate(t *testing.T) {
	tests := []struct {
		name                string
		wins, losses, draws int
		want                float64
	}{
		{"no games", 0, 0, 0, 0},
		{"all wins", 4, 0, 0, 1},
		{"even", 2, 2, 0, 0.5},
		{"draws count half", 1, 1, 2, 0.5},
		{"mixed", 3, 1, 1, 0.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WinRate(tt.wins, tt.losses, tt.draws); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("WinRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTracker_LanesAndStates(t *testing.T) {
	tr := NewTracker(5, 2, portOf)

	s := tr.Snapshot()
	if len(s.Lanes) != 2 {
		t.Fatalf("lanes = %d, want 2", len(s.Lanes))
	}
	if s.Lanes[0].Total != 3 || s.Lanes[1].Total != 2 {
		t.Errorf("lane totals = %d/%d, want 3/2", s.Lanes[0].Total, s.Lanes[1].Total)
	}
	if s.Lanes[1].Port != 25034 {
		t.Errorf("lane 1 port = %d, want 25034", s.Lanes[1].Port)
	}

	tr.StateChange(match.NewTask(2, 1), match.StateClientsRunning)
	tr.StateChange(match.NewTask(99, 7), match.StateClientsRunning) // out of range, ignored

	s = tr.Snapshot()
	if s.Lanes[1].Game != 2 || s.Lanes[1].State != match.StateClientsRunning {
		t.Errorf("lane 1 = %+v", s.Lanes[1])
	}
	if s.ActiveLanes() != 1 {
		t.Errorf("ActiveLanes() = %d, want 1", s.ActiveLanes())
	}
}

func TestTracker_Record(t *testing.T) {
	tr := NewTracker(6, 2, portOf)

	tr.Record(result(1, 0, match.Player, 10*time.Second))
	tr.Record(result(2, 1, match.Opponent, 20*time.Second))
	tr.Record(result(3, 0, match.Draw, 30*time.Second))
	tr.Record(result(4, 1, match.NoEnd, 40*time.Second))
	tr.Record(result(5, 0, match.Stopped, 0))
	tr.Record(result(6, 1, match.Stopped, 0))

	s := tr.Snapshot()
	if s.Reported != 6 || s.Total != 6 {
		t.Errorf("reported/total = %d/%d", s.Reported, s.Total)
	}
	if s.Outcomes[match.Stopped] != 2 || s.Outcomes[match.Player] != 1 {
		t.Errorf("outcomes = %v", s.Outcomes)
	}
	if s.Decided != 3 {
		t.Errorf("Decided = %d, want 3", s.Decided)
	}
	if math.Abs(s.WinRate-0.5) > 1e-9 {
		t.Errorf("WinRate = %v, want 0.5", s.WinRate)
	}
	// Stopped games contribute no exit codes.
	if s.ExitCodes[0] != 8 || s.ExitCodes[130] != 0 {
		t.Errorf("exit codes = %v", s.ExitCodes)
	}
	if s.Lanes[0].Done != 3 || s.Lanes[1].Done != 3 {
		t.Errorf("lane done = %d/%d", s.Lanes[0].Done, s.Lanes[1].Done)
	}
	if s.DurationP50 < 10*time.Second || s.DurationP50 > 40*time.Second {
		t.Errorf("P50 = %v, outside observed range", s.DurationP50)
	}
	if s.DurationP99 < s.DurationP50 {
		t.Errorf("P99 %v < P50 %v", s.DurationP99, s.DurationP50)
	}
}

func TestTracker_SnapshotIsCopy(t *testing.T) {
	tr := NewTracker(2, 1, portOf)
	s := tr.Snapshot()
	s.Lanes[0].Done = 99
	s.Outcomes[match.Player] = 99

	again := tr.Snapshot()
	if again.Lanes[0].Done != 0 || again.Outcomes[match.Player] != 0 {
		t.Error("mutating a snapshot must not change the tracker")
	}
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewTracker(400, 4, portOf)

	var wg sync.WaitGroup
	for lane := 0; lane < 4; lane++ {
		wg.Add(1)
		go func(lane int) {
			defer wg.Done()
			for g := lane + 1; g <= 400; g += 4 {
				task := match.NewTask(g, lane)
				tr.StateChange(task, match.StateServerStarting)
				tr.Record(result(g, lane, match.Player, time.Second))
				_ = tr.Snapshot()
			}
		}(lane)
	}
	wg.Wait()

	if s := tr.Snapshot(); s.Reported != 400 || s.Outcomes[match.Player] != 400 {
		t.Errorf("reported = %d, wins = %d", s.Reported, s.Outcomes[match.Player])
	}
}

func TestFormatExitSummary(t *testing.T) {
	tr := NewTracker(4, 2, portOf)
	tr.Record(result(1, 0, match.Player, 61*time.Second))
	tr.Record(result(2, 1, match.Player, 62*time.Second))
	tr.Record(result(3, 0, match.Opponent, 63*time.Second))
	tr.Record(result(4, 1, match.ServerNoPort, 12*time.Second))

	out := FormatExitSummary(tr.Snapshot(), SummaryConfig{
		RunID:         "cq1abc",
		RunDir:        "benchmarks/run",
		SummaryCSV:    "benchmarks/run/summary.csv",
		Lanes:         2,
		PlayerLabel:   "tt 3.0s",
		OpponentLabel: "10s",
		MetricsAddr:   "127.0.0.1:17092",
	})

	for _, want := range []string{
		"go-match-bench Exit Summary",
		"Run ID:                 cq1abc",
		"4 reported / 4 requested on 2 lanes",
		"my tt 3.0s vs monte 10s",
		"server_no_port",
		"Win Rate:               66.7%",
		"over 3 decided games",
		"Game Duration:",
		"benchmarks/run/summary.csv",
		"http://127.0.0.1:17092/metrics",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "INTERRUPTED") {
		t.Error("summary should not report an interruption")
	}
	if strings.Contains(out, "no_log") {
		t.Error("zero-count failure outcomes should be omitted")
	}
}

func TestFormatExitSummary_NoDecidedGames(t *testing.T) {
	tr := NewTracker(2, 1, portOf)
	tr.Record(result(1, 0, match.Stopped, 0))
	tr.Record(result(2, 0, match.Stopped, 0))

	out := FormatExitSummary(tr.Snapshot(), SummaryConfig{Interrupted: true, Lanes: 1})
	if !strings.Contains(out, "INTERRUPTED") {
		t.Error("interrupted run should be flagged")
	}
	if !strings.Contains(out, "n/a (no decided games)") {
		t.Errorf("win rate should be n/a:\n%s", out)
	}
	if strings.Contains(out, "Game Duration:") {
		t.Error("no durations without played games")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{61 * time.Minute, "01:01:00"},
		{25*time.Hour + 2*time.Second, "25:00:02"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
