package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"

	"github.com/randomizedcoder/go-match-bench/internal/config"
	"github.com/randomizedcoder/go-match-bench/internal/logging"
	"github.com/randomizedcoder/go-match-bench/internal/match"
	"github.com/randomizedcoder/go-match-bench/internal/metrics"
	"github.com/randomizedcoder/go-match-bench/internal/preflight"
	"github.com/randomizedcoder/go-match-bench/internal/process"
	"github.com/randomizedcoder/go-match-bench/internal/report"
	"github.com/randomizedcoder/go-match-bench/internal/stats"
	"github.com/randomizedcoder/go-match-bench/internal/tui"
)

// ErrPreflight is returned when a preflight check fails.
var ErrPreflight = errors.New("preflight checks failed (use --skip-preflight to override)")

// Options holds the collaborators of an Orchestrator that do not come from
// the command line.
type Options struct {
	Version string

	// Lineup overrides the Java processes built from the config.
	Lineup *process.Lineup

	// Stdout receives preflight output, mirrored server logs and the exit
	// summary. Defaults to os.Stdout.
	Stdout io.Writer
}

// Orchestrator coordinates all components of a benchmark run.
type Orchestrator struct {
	config  *config.Config
	logger  *slog.Logger
	version string
	stdout  io.Writer

	runID    string
	lineup   process.Lineup
	token    *match.Token
	stopOnce sync.Once
	tracker  *stats.Tracker
	registry *prometheus.Registry
	metrics  *metrics.Collector
	mirror   *logging.Mirror

	metricsServer *metrics.Server

	runDir    string
	results   []match.Result
	startTime time.Time
}

// New creates a new Orchestrator with the given configuration.
func New(cfg *config.Config, logger *slog.Logger, opts Options) *Orchestrator {
	runID := xid.New().String()

	lineup := LineupFromConfig(cfg)
	if opts.Lineup != nil {
		lineup = *opts.Lineup
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollectorWithRegistry(metrics.CollectorConfig{
		RunID:      runID,
		Version:    opts.Version,
		PlayerMode: cfg.MyMode,
		TotalGames: cfg.Games,
		Lanes:      cfg.Parallel,
	}, registry)

	return &Orchestrator{
		config:   cfg,
		logger:   logging.WithRun(logger, runID),
		version:  opts.Version,
		stdout:   stdout,
		runID:    runID,
		lineup:   lineup,
		token:    match.NewToken(),
		tracker:  stats.NewTracker(cfg.Games, cfg.Parallel, cfg.LanePort),
		registry: registry,
		metrics:  collector,
	}
}

// LineupFromConfig builds the server, player and opponent runners.
func LineupFromConfig(cfg *config.Config) process.Lineup {
	return process.Lineup{
		Server: process.NewServerRunner(process.ServerConfig{
			JavaPath: cfg.JavaPath,
			Jar:      cfg.ServerJar,
			Timeout:  cfg.ServerTimeout,
			Monitor:  cfg.Monitor,
		}),
		Player: process.NewPlayerRunner(process.ClientConfig{
			JavaPath:  cfg.JavaPath,
			Classpath: cfg.MyClasspath,
			Class:     cfg.MyClass,
			Mode:      cfg.MyMode,
			Seconds:   cfg.MySeconds,
		}),
		Opponent: process.NewOpponentRunner(process.ClientConfig{
			JavaPath:  cfg.JavaPath,
			Classpath: cfg.MonteClasspath,
			Class:     cfg.MonteClass,
			Seconds:   float64(cfg.MonteSeconds),
		}),
	}
}

// Run executes the benchmark. It blocks until every game is reported.
// Setup failures are returned before any game starts; once games are
// scheduled the summary is always written, including after a stop request.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.startTime = time.Now()
	cfg := o.config

	if err := o.setup(ctx); err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		o.metricsServer = metrics.NewServer(cfg.MetricsAddr, o.registry, o.logger)
		if err := o.metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer o.shutdownMetrics()
	}

	if cfg.StreamServerLog() && !cfg.TUIEnabled {
		o.mirror = logging.NewMirror(o.stdout, logging.DefaultMirrorBuffer)
		defer o.mirror.Close()
	}

	stopWatch := o.watchStop(ctx)
	defer stopWatch()

	var program *tea.Program
	var programDone chan struct{}
	if cfg.TUIEnabled {
		program, programDone = o.startTUI()
	}

	o.logger.Info("run_starting",
		"games", cfg.Games,
		"parallel", cfg.Parallel,
		"run_dir", o.runDir,
		"my_mode", cfg.MyMode,
		"my_seconds", cfg.MySeconds,
		"monte_seconds", cfg.MonteSeconds,
	)
	if o.metricsServer != nil {
		o.metricsServer.SetReady(true)
	}

	o.results = o.runLanes(ctx)

	// Drain the console before the summary is printed.
	o.mirror.Close()

	if program != nil {
		program.Send(tui.DoneMsg{})
		<-programDone
	}

	return o.finish()
}

// setup runs the preflight checks, creates the run directory and compiles
// the player.
func (o *Orchestrator) setup(ctx context.Context) error {
	cfg := o.config

	if !cfg.SkipPreflight {
		result := preflight.RunAll(preflight.Options{
			Processes: cfg.MaxProcesses(),
			JavaPath:  cfg.JavaPath,
			JavacPath: cfg.JavacPath,
			SrcGlob:   cfg.SrcGlob,
			SkipBuild: cfg.SkipBuild,
			ServerJar: cfg.ServerJar,
			PortBase:  cfg.PortBase,
			Lanes:     cfg.Parallel,
		})
		preflight.PrintResults(o.stdout, result)
		if !result.Passed {
			return ErrPreflight
		}
	}

	runDir, err := report.CreateRunDir(cfg.OutDir, o.startTime, report.RunParams{
		Parallel:     cfg.Parallel,
		MonteSeconds: cfg.MonteSeconds,
		MyMode:       cfg.MyMode,
		MySeconds:    cfg.MySeconds,
	})
	if err != nil {
		return err
	}
	o.runDir = runDir

	if !cfg.SkipBuild {
		if err := process.Compile(ctx, cfg.JavacPath, cfg.SrcGlob, o.logger); err != nil {
			return fmt.Errorf("compile player: %w", err)
		}
	}
	return nil
}

// watchStop turns SIGINT/SIGTERM or cancellation of ctx into a stop
// request. The returned func releases the watcher.
func (o *Orchestrator) watchStop(ctx context.Context) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			o.RequestStop("signal_" + sig.String())
		case <-ctx.Done():
			o.RequestStop("context_cancelled")
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// RequestStop asks every lane to stop after its current game. Safe to call
// more than once.
func (o *Orchestrator) RequestStop(reason string) {
	o.stopOnce.Do(func() {
		o.token.Request()
		o.mirror.Mute()
		o.logger.Warn("stop_requested", "reason", reason)
		if !o.config.TUIEnabled {
			fmt.Fprintln(o.stdout, "Stop requested: waiting for running games, partial results will be written.")
		}
	})
}

// runLanes runs all lanes concurrently and returns their merged results
// sorted by game.
func (o *Orchestrator) runLanes(ctx context.Context) []match.Result {
	cfg := o.config
	runner := match.NewRunner(match.Config{
		Host:            cfg.Host,
		PlayerMode:      cfg.MyMode,
		PlayerSeconds:   cfg.MySeconds,
		OpponentSeconds: cfg.MonteSeconds,
		ServerTimeout:   cfg.ServerTimeout,
		WallTimeout:     cfg.WallTimeoutDuration(),
		ReadyTimeout:    cfg.ReadyTimeout,
		SpawnGap:        cfg.SpawnGap,
		KillGrace:       cfg.KillGrace,
		ExitWait:        cfg.ExitWait,
		PollInterval:    cfg.PollInterval,
		OutDir:          o.runDir,
		StreamServerLog: o.mirror != nil,
		Lineup:          o.lineup,
		Token:           o.token,
		Mirror:          o.mirror,
		Logger:          o.logger,
		Callbacks: match.Callbacks{
			OnStateChange: o.onStateChange,
			OnProcessExit: o.onProcessExit,
			OnResult:      o.onResult,
		},
	})

	perLane := make([][]match.Result, cfg.Parallel)
	var g errgroup.Group
	for i := 0; i < cfg.Parallel; i++ {
		lane := &Lane{
			Index:  i,
			Port:   cfg.LanePort(i),
			Runner: runner,
			Token:  o.token,
			Logger: o.logger,
		}
		g.Go(func() error {
			perLane[lane.Index] = lane.Run(ctx, cfg.Games, cfg.Parallel)
			return nil
		})
	}
	_ = g.Wait()

	var results []match.Result
	for _, r := range perLane {
		results = append(results, r...)
	}
	report.SortByGame(results)
	return results
}

// finish persists the results and prints the exit summary.
func (o *Orchestrator) finish() error {
	var errs []error

	csvPath := filepath.Join(o.runDir, report.SummaryFile)
	if err := report.WriteCSV(csvPath, o.results); err != nil {
		o.logger.Error("summary_write_failed", "path", csvPath, "error", err)
		errs = append(errs, err)
	} else {
		o.logger.Info("summary_written", "path", csvPath, "games", len(o.results))
	}

	promPath := filepath.Join(o.runDir, report.MetricsFile)
	if err := metrics.WriteTextFile(o.registry, promPath); err != nil {
		o.logger.Warn("metrics_write_failed", "path", promPath, "error", err)
	}

	if o.mirror != nil {
		written, dropped := o.mirror.Stats()
		o.logger.Debug("mirror_stats", "written", written, "dropped", dropped)
	}

	summary := stats.FormatExitSummary(o.tracker.Snapshot(), stats.SummaryConfig{
		RunID:         o.runID,
		RunDir:        o.runDir,
		SummaryCSV:    csvPath,
		Lanes:         o.config.Parallel,
		PlayerLabel:   fmt.Sprintf("%s %ss", o.config.MyMode, process.FormatSeconds(o.config.MySeconds)),
		OpponentLabel: fmt.Sprintf("%ds", o.config.MonteSeconds),
		MetricsAddr:   o.metricsAddr(),
		Interrupted:   o.token.Requested(),
	})
	fmt.Fprint(o.stdout, summary)

	o.logger.Info("run_complete",
		"games", len(o.results),
		"elapsed", time.Since(o.startTime).String(),
		"peak_active", o.metrics.PeakActive(),
		"stopped", o.token.Requested(),
	)

	return errors.Join(errs...)
}

func (o *Orchestrator) metricsAddr() string {
	if o.metricsServer == nil {
		return ""
	}
	return o.metricsServer.Addr()
}

func (o *Orchestrator) shutdownMetrics() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.metricsServer.Shutdown(ctx); err != nil {
		o.logger.Warn("metrics_server_shutdown_error", "error", err)
	}
}

// startTUI runs the dashboard until it receives tui.DoneMsg. Quitting the
// dashboard requests a stop.
func (o *Orchestrator) startTUI() (*tea.Program, chan struct{}) {
	model := tui.New(tui.Config{
		Source:        o.tracker,
		RunID:         o.runID,
		RunDir:        o.runDir,
		PlayerLabel:   fmt.Sprintf("%s %ss", o.config.MyMode, process.FormatSeconds(o.config.MySeconds)),
		OpponentLabel: fmt.Sprintf("%ds", o.config.MonteSeconds),
		MetricsAddr:   o.metricsAddr(),
		OnQuit:        func() { o.RequestStop("tui_quit") },
	})

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithoutSignalHandler())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := program.Run(); err != nil {
			o.logger.Error("tui_failed", "error", err)
		}
	}()
	return program, done
}

// Callback handlers

func (o *Orchestrator) onStateChange(task match.Task, _, newState match.State) {
	o.tracker.StateChange(task, newState)
	switch newState {
	case match.StateServerStarting:
		o.metrics.GameStarted()
	case match.StateTornDown:
		o.metrics.GameEnded()
	}
}

func (o *Orchestrator) onProcessExit(_ match.Task, role string, exitCode int) {
	o.metrics.RecordExit(role, exitCode)
}

func (o *Orchestrator) onResult(res match.Result) {
	o.tracker.Record(res)
	o.metrics.RecordResult(res.Winner.String(), res.Winner != match.Stopped, res.Duration)
}

// Results returns the reported games sorted by game. Valid after Run.
func (o *Orchestrator) Results() []match.Result {
	return o.results
}

// RunDir returns the directory holding the logs and summary of this run.
func (o *Orchestrator) RunDir() string {
	return o.runDir
}

// RunID returns the unique identifier of this run.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Stopped reports whether a stop was requested.
func (o *Orchestrator) Stopped() bool {
	return o.token.Requested()
}

// Tracker returns the live statistics of the run.
func (o *Orchestrator) Tracker() *stats.Tracker {
	return o.tracker
}
