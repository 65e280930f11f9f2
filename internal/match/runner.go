package match

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/randomizedcoder/go-match-bench/internal/logging"
	"github.com/randomizedcoder/go-match-bench/internal/logwatch"
	"github.com/randomizedcoder/go-match-bench/internal/process"
	"github.com/randomizedcoder/go-match-bench/internal/supervisor"
)

// Default timings.
const (
	DefaultReadyTimeout = 12 * time.Second
	DefaultSpawnGap     = 100 * time.Millisecond
	DefaultKillGrace    = 300 * time.Millisecond
	DefaultExitWait     = 10 * time.Second
)

// Callbacks contains optional callback functions for game events.
// They may be called from several lanes at once.
type Callbacks struct {
	// OnStateChange is called when a game moves to a new state.
	OnStateChange func(task Task, oldState, newState State)

	// OnProcessExit is called once per role with the exit code recorded for it.
	OnProcessExit func(task Task, role string, exitCode int)

	// OnResult is called when a game has been reported.
	OnResult func(res Result)
}

// Config holds configuration for creating a Runner.
type Config struct {
	Host            string
	PlayerMode      string
	PlayerSeconds   float64
	OpponentSeconds int
	ServerTimeout   int

	// WallTimeout bounds the wait for the player's END line.
	WallTimeout time.Duration

	ReadyTimeout time.Duration
	SpawnGap     time.Duration
	KillGrace    time.Duration
	ExitWait     time.Duration
	PollInterval time.Duration

	// OutDir receives the per-game logs.
	OutDir string

	// StreamServerLog mirrors server output to the console through Mirror.
	StreamServerLog bool

	Lineup    process.Lineup
	Token     *Token
	Mirror    *logging.Mirror
	Logger    *slog.Logger
	Callbacks Callbacks
}

// Runner plays one game at a time for a lane. It is safe for concurrent use
// by several lanes as long as each uses its own port.
type Runner struct {
	cfg       Config
	logger    *slog.Logger
	callbacks Callbacks
}

// NewRunner creates a Runner, filling unset timings with defaults.
func NewRunner(cfg Config) *Runner {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = DefaultReadyTimeout
	}
	if cfg.SpawnGap < 0 {
		cfg.SpawnGap = 0
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = DefaultKillGrace
	}
	if cfg.ExitWait <= 0 {
		cfg.ExitWait = DefaultExitWait
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = logwatch.DefaultInterval
	}
	if cfg.Token == nil {
		cfg.Token = NewToken()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{cfg: cfg, logger: logger, callbacks: cfg.Callbacks}
}

// LogPaths are the files a game writes.
type LogPaths struct {
	Server   string
	Player   string
	Opponent string
}

// PathsFor returns the log paths of task inside dir.
func PathsFor(dir string, task Task) LogPaths {
	suffix := fmt.Sprintf("_w%d_g%d.log", task.Lane, task.Game)
	return LogPaths{
		Server:   filepath.Join(dir, "server"+suffix),
		Player:   filepath.Join(dir, "my"+suffix),
		Opponent: filepath.Join(dir, "monte"+suffix),
	}
}

// game tracks one run through the state machine.
type game struct {
	r      *Runner
	task   Task
	port   int
	paths  LogPaths
	logger *slog.Logger
	state  State
	start  time.Time
	result Result
}

func (r *Runner) newGame(task Task, port int) *game {
	return &game{
		r:      r,
		task:   task,
		port:   port,
		paths:  PathsFor(r.cfg.OutDir, task),
		logger: r.logger.With("game", task.Game, "lane", task.Lane, "port", port),
		state:  StateIdle,
		start:  time.Now(),
		result: Result{
			Game:            task.Game,
			Lane:            task.Lane,
			Host:            r.cfg.Host,
			Port:            port,
			Order:           task.Order,
			PlayerMode:      r.cfg.PlayerMode,
			PlayerSeconds:   r.cfg.PlayerSeconds,
			OpponentSeconds: r.cfg.OpponentSeconds,
			ServerTimeout:   r.cfg.ServerTimeout,
		},
	}
}

func (g *game) transition(to State) {
	from := g.state
	g.state = to
	g.logger.Debug("game_state_change", "from", from.String(), "to", to.String())
	if g.r.callbacks.OnStateChange != nil {
		g.r.callbacks.OnStateChange(g.task, from, to)
	}
}

// report finalizes the result. The terminal states all pass through here.
func (g *game) report(winner Outcome, playerExit, opponentExit int) Result {
	g.result.Winner = winner
	g.result.PlayerExit = playerExit
	g.result.OpponentExit = opponentExit
	g.result.Duration = time.Since(g.start)

	if g.state != StateTornDown && g.state != StateStopped {
		g.transition(StateTornDown)
	}
	g.transition(StateReported)

	if g.r.callbacks.OnProcessExit != nil && winner != Stopped {
		g.r.callbacks.OnProcessExit(g.task, "player", playerExit)
		g.r.callbacks.OnProcessExit(g.task, "opponent", opponentExit)
	}
	if g.r.callbacks.OnResult != nil {
		g.r.callbacks.OnResult(g.result)
	}

	g.logger.Info("game_finished",
		"winner", winner.String(),
		"order", g.task.Order.String(),
		"my_exit", playerExit,
		"monte_exit", opponentExit,
		"duration", g.result.Duration.String(),
	)
	return g.result
}

// Skip reports task as stopped without spawning anything.
func (r *Runner) Skip(task Task, port int) Result {
	g := r.newGame(task, port)
	g.transition(StateStopped)
	return g.report(Stopped, supervisor.InterruptedExitCode, supervisor.InterruptedExitCode)
}

// teardown releases the processes of a game exactly once.
type teardown struct {
	server, player, opponent *supervisor.Handle
	grace                    time.Duration
	done                     bool
}

func (t *teardown) run() {
	if t.done {
		return
	}
	t.done = true

	t.server.Terminate(t.grace)
	t.player.Terminate(t.grace)
	t.opponent.Terminate(t.grace)

	t.server.Close()
	t.player.Close()
	t.opponent.Close()
}

// Run plays task on port and returns its result. It never fails: every
// problem becomes an outcome. A stop request is only honored before the
// server is spawned; once started the game runs to completion on its own
// timeouts even if ctx is cancelled.
func (r *Runner) Run(ctx context.Context, task Task, port int) Result {
	if r.cfg.Token.Requested() {
		return r.Skip(task, port)
	}

	ctx = context.WithoutCancel(ctx)
	g := r.newGame(task, port)
	target := process.Target{Host: r.cfg.Host, Port: port}
	watch := logwatch.Options{Timeout: r.cfg.ReadyTimeout, Interval: r.cfg.PollInterval}

	td := &teardown{grace: r.cfg.KillGrace}
	defer td.run()

	g.logger.Info("game_started", "order", task.Order.String())

	g.transition(StateServerStarting)
	server, err := g.spawn(ctx, r.cfg.Lineup.Server, target, g.paths.Server, r.cfg.StreamServerLog)
	td.server = server
	if err != nil || !logwatch.AwaitServerReady(ctx, g.paths.Server, watch) {
		if err == nil {
			tail, _ := logwatch.Tail(g.paths.Server, 5)
			g.logger.Warn("server_no_port", "log", g.paths.Server, "timeout", r.cfg.ReadyTimeout.String(), "tail", tail)
		}
		g.transition(StateServerNoPort)
		td.run()
		g.transition(StateTornDown)
		g.serverExit(server)
		return g.report(ServerNoPort, supervisor.TimeoutExitCode, supervisor.TimeoutExitCode)
	}
	g.transition(StateServerReady)

	player, opponent := g.spawnClients(ctx, target)
	td.player, td.opponent = player, opponent
	g.transition(StateClientsRunning)

	watch.Timeout = r.cfg.WallTimeout
	if player == nil || !logwatch.AwaitGameEnd(ctx, g.paths.Player, watch) {
		if player != nil {
			g.logger.Warn("no_end", "log", g.paths.Player, "timeout", r.cfg.WallTimeout.String())
		}
		g.transition(StateNoEnd)
		player.Terminate(r.cfg.KillGrace)
		opponent.Terminate(r.cfg.KillGrace)
		td.run()
		g.transition(StateTornDown)
		g.serverExit(server)
		return g.report(NoEnd, supervisor.TimeoutExitCode, supervisor.TimeoutExitCode)
	}
	g.transition(StateEndDetected)

	// The player stays connected after END; stopping the server releases both clients.
	server.Terminate(r.cfg.KillGrace)
	playerExit := player.WaitTimeout(r.cfg.ExitWait)
	opponentExit := opponent.WaitTimeout(r.cfg.ExitWait)

	td.run()
	g.transition(StateTornDown)
	g.serverExit(server)

	return g.report(Classify(g.paths.Player), playerExit, opponentExit)
}

// spawnClients starts both clients in the game's connect order with the
// spawn gap between them. A client that fails to start is returned as nil.
func (g *game) spawnClients(ctx context.Context, target process.Target) (player, opponent *supervisor.Handle) {
	cfg := g.r.cfg
	spawnPlayer := func() {
		player, _ = g.spawn(ctx, cfg.Lineup.Player, target, g.paths.Player, false)
	}
	spawnOpponent := func() {
		opponent, _ = g.spawn(ctx, cfg.Lineup.Opponent, target, g.paths.Opponent, false)
	}

	first, second := spawnPlayer, spawnOpponent
	if g.task.Order == OpponentFirst {
		first, second = spawnOpponent, spawnPlayer
	}
	first()
	if cfg.SpawnGap > 0 {
		time.Sleep(cfg.SpawnGap)
	}
	second()
	return player, opponent
}

func (g *game) spawn(ctx context.Context, runner process.Runner, target process.Target, logPath string, mirror bool) (*supervisor.Handle, error) {
	role := runner.Name()
	cmd, err := runner.BuildCommand(ctx, target)
	if err != nil {
		g.logger.Error("build_command_failed", "role", role, "error", err)
		return nil, err
	}

	opts := supervisor.Options{
		Role:    role,
		LogPath: logPath,
		Logger:  g.logger,
	}
	if mirror && g.r.cfg.Mirror != nil {
		opts.Mirror = g.r.cfg.Mirror
		opts.Prefix = logging.Prefix(role, g.task.Lane, g.task.Game)
	}

	h, err := supervisor.Spawn(cmd, opts)
	if err != nil {
		g.logger.Error("spawn_failed", "role", role, "error", err)
		return nil, err
	}
	return h, nil
}

// serverExit reports the server's exit code, if it was spawned.
func (g *game) serverExit(server *supervisor.Handle) {
	if server == nil || g.r.callbacks.OnProcessExit == nil {
		return
	}
	if code, exited := server.ExitCode(); exited {
		g.r.callbacks.OnProcessExit(g.task, "server", code)
	}
}
