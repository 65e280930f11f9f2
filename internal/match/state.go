package match

// State is the phase a game is in.
type State int

const (
	// StateIdle is the initial state before anything is spawned.
	StateIdle State = iota

	// StateServerStarting indicates the server has been spawned and is
	// not yet ready.
	StateServerStarting

	// StateServerReady indicates the server printed its banner.
	StateServerReady

	// StateClientsRunning indicates both clients are playing.
	StateClientsRunning

	// StateEndDetected indicates the player printed its END line.
	StateEndDetected

	// StateServerNoPort indicates the server never became ready.
	StateServerNoPort

	// StateNoEnd indicates the game did not finish in time.
	StateNoEnd

	// StateStopped indicates the game was skipped after a stop request.
	StateStopped

	// StateTornDown indicates every process of the game is gone.
	StateTornDown

	// StateReported indicates the result has been produced.
	StateReported
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateServerStarting:
		return "server_starting"
	case StateServerReady:
		return "server_ready"
	case StateClientsRunning:
		return "clients_running"
	case StateEndDetected:
		return "end_detected"
	case StateServerNoPort:
		return "server_no_port"
	case StateNoEnd:
		return "no_end"
	case StateStopped:
		return "stopped"
	case StateTornDown:
		return "torn_down"
	case StateReported:
		return "reported"
	default:
		return "unknown"
	}
}

// IsActive returns true while processes of the game may be running.
func (s State) IsActive() bool {
	switch s {
	case StateServerStarting, StateServerReady, StateClientsRunning,
		StateEndDetected, StateServerNoPort, StateNoEnd:
		return true
	}
	return false
}

// IsTerminal returns true once the game has been reported.
func (s State) IsTerminal() bool {
	return s == StateReported
}
