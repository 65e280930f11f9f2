// Package match runs a single game between the player and the opponent on a
// dedicated server and classifies its outcome.
package match

import "time"

// ConnectOrder is which client joins the server first.
type ConnectOrder int

const (
	// PlayerFirst spawns the player before the opponent (odd games).
	PlayerFirst ConnectOrder = iota

	// OpponentFirst spawns the opponent before the player (even games).
	OpponentFirst
)

// OrderFor alternates the join order so each side gets both colors.
func OrderFor(game int) ConnectOrder {
	if game%2 == 1 {
		return PlayerFirst
	}
	return OpponentFirst
}

// String returns the summary form: "my-first" or "monte-first".
func (o ConnectOrder) String() string {
	if o == OpponentFirst {
		return "monte-first"
	}
	return "my-first"
}

// Outcome is the winner column of a game.
type Outcome int

const (
	Player Outcome = iota
	Opponent
	Draw
	Unknown
	NoEnd
	NoLog
	ServerNoPort
	Stopped
)

// AllOutcomes lists every outcome in summary order.
var AllOutcomes = []Outcome{Player, Opponent, Draw, Unknown, NoEnd, NoLog, ServerNoPort, Stopped}

// String returns the value written to the summary.
func (o Outcome) String() string {
	switch o {
	case Player:
		return "my"
	case Opponent:
		return "monte"
	case Draw:
		return "draw"
	case NoEnd:
		return "no_end"
	case NoLog:
		return "no_log"
	case ServerNoPort:
		return "server_no_port"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// IsDecided returns true when the game was played to a recognized result.
func (o Outcome) IsDecided() bool {
	return o == Player || o == Opponent || o == Draw
}

// Task is one scheduled game.
type Task struct {
	Game  int
	Lane  int
	Order ConnectOrder
}

// NewTask builds the task for game on lane.
func NewTask(game, lane int) Task {
	return Task{Game: game, Lane: lane, Order: OrderFor(game)}
}

// Result is one row of the summary. Game is unique across a run.
type Result struct {
	Game            int
	Lane            int
	Host            string
	Port            int
	Order           ConnectOrder
	PlayerMode      string
	PlayerSeconds   float64
	OpponentSeconds int
	ServerTimeout   int
	Winner          Outcome
	PlayerExit      int
	OpponentExit    int

	// Duration is the wall time spent on the game. Not persisted.
	Duration time.Duration
}
