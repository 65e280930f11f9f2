// Package stats tracks live progress and aggregate outcomes of a benchmark run.
package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/influxdata/tdigest"

	"github.com/randomizedcoder/go-match-bench/internal/match"
)

// LaneStatus is the live view of one lane.
type LaneStatus struct {
	Lane  int
	Port  int
	Game  int // current or last game, 0 before the first
	State match.State
	Done  int
	Total int

	// Since is when the lane entered State.
	Since time.Time
}

// Snapshot is a consistent copy of the tracker.
type Snapshot struct {
	Elapsed  time.Duration
	Lanes    []LaneStatus
	Outcomes map[match.Outcome]int

	// ExitCodes counts player and opponent exit codes of played games.
	ExitCodes map[int]int

	Reported int
	Total    int

	// Decided is wins + losses + draws; WinRate is only meaningful when > 0.
	Decided int
	WinRate float64

	DurationP50 time.Duration
	DurationP95 time.Duration
	DurationP99 time.Duration
}

// Tracker aggregates game events from every lane. Safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	lanes     []LaneStatus
	outcomes  map[match.Outcome]int
	exitCodes map[int]int
	durations *tdigest.TDigest
	reported  int
	total     int
	start     time.Time
}

// NewTracker creates a tracker for totalGames spread over laneCount lanes.
// portOf maps a lane index to its port.
func NewTracker(totalGames, laneCount int, portOf func(lane int) int) *Tracker {
	now := time.Now()
	lanes := make([]LaneStatus, laneCount)
	for i := range lanes {
		lanes[i] = LaneStatus{
			Lane:  i,
			Port:  portOf(i),
			State: match.StateIdle,
			Total: gamesForLane(i, totalGames, laneCount),
			Since: now,
		}
	}
	return &Tracker{
		lanes:     lanes,
		outcomes:  make(map[match.Outcome]int),
		exitCodes: make(map[int]int),
		durations: tdigest.NewWithCompression(100),
		total:     totalGames,
		start:     now,
	}
}

// gamesForLane counts the games of the stride starting at lane+1.
func gamesForLane(lane, total, laneCount int) int {
	if laneCount < 1 || lane >= total {
		return 0
	}
	return (total-lane-1)/laneCount + 1
}

// StateChange records a game's transition.
func (t *Tracker) StateChange(task match.Task, state match.State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if task.Lane < 0 || task.Lane >= len(t.lanes) {
		return
	}
	ls := &t.lanes[task.Lane]
	ls.Game = task.Game
	ls.State = state
	ls.Since = time.Now()
}

// Record adds a reported game.
func (t *Tracker) Record(res match.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.reported++
	t.outcomes[res.Winner]++
	if res.Lane >= 0 && res.Lane < len(t.lanes) {
		t.lanes[res.Lane].Done++
	}
	if res.Winner == match.Stopped {
		return
	}
	t.exitCodes[res.PlayerExit]++
	t.exitCodes[res.OpponentExit]++
	t.durations.Add(float64(res.Duration), 1)
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		Elapsed:   time.Since(t.start),
		Lanes:     append([]LaneStatus(nil), t.lanes...),
		Outcomes:  make(map[match.Outcome]int, len(t.outcomes)),
		ExitCodes: make(map[int]int, len(t.exitCodes)),
		Reported:  t.reported,
		Total:     t.total,
	}
	for o, n := range t.outcomes {
		s.Outcomes[o] = n
	}
	for c, n := range t.exitCodes {
		s.ExitCodes[c] = n
	}

	wins, losses, draws := t.outcomes[match.Player], t.outcomes[match.Opponent], t.outcomes[match.Draw]
	s.Decided = wins + losses + draws
	s.WinRate = WinRate(wins, losses, draws)

	if t.durations.Count() > 0 {
		s.DurationP50 = time.Duration(t.durations.Quantile(0.50))
		s.DurationP95 = time.Duration(t.durations.Quantile(0.95))
		s.DurationP99 = time.Duration(t.durations.Quantile(0.99))
	}
	return s
}

// WinRate scores a draw as half a win. Undecided games are not counted.
func WinRate(wins, losses, draws int) float64 {
	decided := wins + losses + draws
	if decided == 0 {
		return 0
	}
	return (float64(wins) + 0.5*float64(draws)) / float64(decided)
}

// ActiveLanes returns the lanes whose current game has processes running.
func (s Snapshot) ActiveLanes() int {
	n := 0
	for _, l := range s.Lanes {
		if l.State.IsActive() {
			n++
		}
	}
	return n
}

// SortedExitCodes returns the exit codes in ascending order.
func (s Snapshot) SortedExitCodes() []int {
	codes := make([]int, 0, len(s.ExitCodes))
	for c := range s.ExitCodes {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	return codes
}
