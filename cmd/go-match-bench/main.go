// Package main provides the go-match-bench CLI entry point.
//
// go-match-bench plays many Othello games in parallel between a player under
// test and a reference opponent, each game on its own server process, and
// writes a per-game summary of the results.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/randomizedcoder/go-match-bench/internal/config"
	"github.com/randomizedcoder/go-match-bench/internal/logging"
	"github.com/randomizedcoder/go-match-bench/internal/orchestrator"
	"github.com/randomizedcoder/go-match-bench/internal/process"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/go-match-bench
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.ParseArgsWithOutput(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error parsing flags: %v\n", err)
		return 2
	}

	if cfg.ShowVersion {
		fmt.Fprintf(stdout, "go-match-bench %s\n", version)
		return 0
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}

	// When TUI is enabled, suppress logs to avoid interfering with TUI rendering
	var logger *slog.Logger
	if cfg.TUIEnabled {
		logger = logging.NewLoggerWithWriter(io.Discard, cfg.LogFormat, "info")
	} else {
		logger = logging.NewLogger(cfg.LogFormat, "info", cfg.Verbose)
	}
	logging.SetDefault(logger)

	if cfg.PrintCmd {
		printCommands(stdout, cfg)
		return 0
	}

	logger.Info("starting",
		"version", version,
		"games", cfg.Games,
		"parallel", cfg.Parallel,
		"host", cfg.Host,
		"port_base", cfg.PortBase,
		"metrics_addr", cfg.MetricsAddr,
	)

	if !cfg.TUIEnabled {
		printBanner(stdout, cfg)
	}

	orch := orchestrator.New(cfg, logger, orchestrator.Options{
		Version: version,
		Stdout:  stdout,
	})
	if err := orch.Run(context.Background()); err != nil {
		logger.Error("orchestrator_failed", "error", err)
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

// printBanner prints the startup banner.
func printBanner(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(w, "║                          go-match-bench                           ║")
	fmt.Fprintln(w, "║        Parallel Othello Matches with Java Process Control         ║")
	fmt.Fprintln(w, "╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Games:       %d on %d lanes (ports %d-%d)\n", cfg.Games, cfg.Parallel, cfg.LanePort(0), cfg.LanePort(cfg.Parallel-1))
	fmt.Fprintf(w, "  Player:      %s %ss per move\n", cfg.MyMode, process.FormatSeconds(cfg.MySeconds))
	fmt.Fprintf(w, "  Opponent:    %ds per move\n", cfg.MonteSeconds)
	fmt.Fprintf(w, "  Timeouts:    server %ds per move, %ds per game\n", cfg.ServerTimeout, cfg.WallTimeout)
	if cfg.MetricsAddr != "" {
		fmt.Fprintf(w, "  Metrics:     http://%s/metrics\n", cfg.MetricsAddr)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Press Ctrl+C to stop after the running games.")
	fmt.Fprintln(w)
}

// printCommands prints the commands that would be run for the first lane.
func printCommands(w io.Writer, cfg *config.Config) {
	lineup := orchestrator.LineupFromConfig(cfg)
	target := process.Target{Host: cfg.Host, Port: cfg.LanePort(0)}

	fmt.Fprintf(w, "# Commands that would be run for each game on lane 0 (port %d):\n\n", target.Port)
	for _, r := range []process.Runner{lineup.Server, lineup.Player, lineup.Opponent} {
		cmd, err := r.BuildCommand(context.Background(), target)
		if err != nil {
			fmt.Fprintf(w, "# %s: %v\n", r.Name(), err)
			continue
		}
		fmt.Fprintf(w, "# %s\n%s\n", r.Name(), process.CommandString(cmd))
	}
}
