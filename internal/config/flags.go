package config

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseArgs parses command-line arguments (without the program name) and
// returns a Config. Flags may appear before or after the positional games
// count. Returns flag.ErrHelp when -h or -help was given.
func ParseArgs(args []string) (*Config, error) {
	return parse(args, nil)
}

// ParseArgsWithOutput is ParseArgs with usage and errors written to out.
func ParseArgsWithOutput(args []string, out io.Writer) (*Config, error) {
	return parse(args, out)
}

func parse(args []string, out io.Writer) (*Config, error) {
	cfg := DefaultConfig()
	fs := newFlagSet(cfg)
	if out != nil {
		fs.SetOutput(out)
	}

	var positional []string
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		rest = fs.Args()[1:]
	}

	switch len(positional) {
	case 0:
	case 1:
		games, err := strconv.Atoi(positional[0])
		if err != nil {
			return nil, fmt.Errorf("games: invalid number %q", positional[0])
		}
		cfg.Games = games
	default:
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(positional[1:], " "))
	}

	return cfg, nil
}

func newFlagSet(cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("go-match-bench", flag.ContinueOnError)

	// Custom usage message
	fs.Usage = func() {
		w := fs.Output()
		fmt.Fprintf(w, `go-match-bench - parallel head-to-head benchmark for Othello clients

Usage:
  go-match-bench [flags] [games] [flags]

Scheduling:
`)
		printFlagCategory(fs, []string{"parallel", "host", "port-base"})

		fmt.Fprintf(w, "\nMatch:\n")
		printFlagCategory(fs, []string{"my-mode", "my-seconds", "monte-seconds", "server-timeout", "wall-timeout", "monitor"})

		fmt.Fprintf(w, "\nJava:\n")
		printFlagCategory(fs, []string{"java", "javac", "src-glob", "skip-build", "server-jar", "my-classpath", "my-class", "monte-classpath", "monte-class"})

		fmt.Fprintf(w, "\nTimings:\n")
		printFlagCategory(fs, []string{"ready-timeout", "exit-wait", "kill-grace", "spawn-gap", "poll-interval"})

		fmt.Fprintf(w, "\nOutput & Observability:\n")
		printFlagCategory(fs, []string{"out-dir", "no-stream-server-log", "metrics", "tui", "v", "log-format"})

		fmt.Fprintf(w, "\nDiagnostics:\n")
		printFlagCategory(fs, []string{"print-cmd", "skip-preflight", "version"})

		fmt.Fprintf(w, `
Examples:
  # 20 games on 10 lanes with the defaults
  go-match-bench

  # 100 games, 4 lanes, player in mcts mode with 2.5s per move
  go-match-bench 100 --parallel 4 --my-mode mcts --my-seconds 2.5

  # Live dashboard and a Prometheus endpoint
  go-match-bench 50 --tui --metrics 127.0.0.1:17092

`)
	}

	// Scheduling
	fs.IntVar(&cfg.Parallel, "parallel", cfg.Parallel, "Number of concurrent lanes (one server port each)")
	fs.StringVar(&cfg.Host, "host", cfg.Host, "Host the clients connect to")
	fs.IntVar(&cfg.PortBase, "port-base", cfg.PortBase, "Lane i serves on port-base + i")

	// Match
	fs.StringVar(&cfg.MyMode, "my-mode", cfg.MyMode, "Search mode of the player under test")
	fs.Float64Var(&cfg.MySeconds, "my-seconds", cfg.MySeconds, "Player seconds per move")
	fs.IntVar(&cfg.MonteSeconds, "monte-seconds", cfg.MonteSeconds, "Opponent seconds per move")
	fs.IntVar(&cfg.ServerTimeout, "server-timeout", cfg.ServerTimeout, "Server per-move timeout in seconds")
	fs.IntVar(&cfg.WallTimeout, "wall-timeout", cfg.WallTimeout, "Seconds to wait for a game to end")
	fs.BoolVar(&cfg.Monitor, "monitor", cfg.Monitor, "Open the server monitor window")

	// Java
	fs.StringVar(&cfg.JavaPath, "java", cfg.JavaPath, "Path to the java binary")
	fs.StringVar(&cfg.JavacPath, "javac", cfg.JavacPath, "Path to the javac binary")
	fs.StringVar(&cfg.SrcGlob, "src-glob", cfg.SrcGlob, "Player sources compiled before the run")
	fs.BoolVar(&cfg.SkipBuild, "skip-build", cfg.SkipBuild, "Do not compile the player sources")
	fs.StringVar(&cfg.ServerJar, "server-jar", cfg.ServerJar, "Game server jar")
	fs.StringVar(&cfg.MyClasspath, "my-classpath", cfg.MyClasspath, "Player classpath")
	fs.StringVar(&cfg.MyClass, "my-class", cfg.MyClass, "Player main class")
	fs.StringVar(&cfg.MonteClasspath, "monte-classpath", cfg.MonteClasspath, "Opponent classpath")
	fs.StringVar(&cfg.MonteClass, "monte-class", cfg.MonteClass, "Opponent main class")

	// Timings
	fs.DurationVar(&cfg.ReadyTimeout, "ready-timeout", cfg.ReadyTimeout, "Time for the server to print its banner")
	fs.DurationVar(&cfg.ExitWait, "exit-wait", cfg.ExitWait, "Time for each client to exit after the server stops")
	fs.DurationVar(&cfg.KillGrace, "kill-grace", cfg.KillGrace, "Delay between SIGTERM and SIGKILL")
	fs.DurationVar(&cfg.SpawnGap, "spawn-gap", cfg.SpawnGap, "Delay between starting the two clients")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Log polling interval")

	// Output & Observability
	fs.StringVar(&cfg.OutDir, "out-dir", cfg.OutDir, "Parent directory of run directories")
	fs.BoolVar(&cfg.NoStreamServerLog, "no-stream-server-log", cfg.NoStreamServerLog, "Do not print server logs in real time")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address (empty = disabled)")
	fs.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Show a live terminal dashboard")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)

	// Diagnostics
	fs.BoolVar(&cfg.PrintCmd, "print-cmd", cfg.PrintCmd, "Print the commands of the first game and exit")
	fs.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")
	fs.BoolVar(&cfg.ShowVersion, "version", cfg.ShowVersion, "Print version and exit")

	return fs
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(fs *flag.FlagSet, names []string) {
	w := fs.Output()
	for _, name := range names {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		fmt.Fprintf(w, "  --%s %s\n    \t%s", f.Name, flagType(f), f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "0s" {
			fmt.Fprintf(w, " (default %s)", f.DefValue)
		}
		fmt.Fprintln(w)
	}
}

// flagType returns a type hint for the flag value.
func flagType(f *flag.Flag) string {
	// Infer type from default value format
	switch f.DefValue {
	case "true", "false":
		return ""
	}

	// Check if it looks like a duration
	if strings.HasSuffix(f.DefValue, "s") || strings.HasSuffix(f.DefValue, "m") || strings.HasSuffix(f.DefValue, "h") {
		if _, err := strconv.ParseFloat(strings.TrimRight(f.DefValue, "smh"), 64); err == nil {
			return "duration"
		}
	}

	// Check if numeric
	if _, err := strconv.Atoi(f.DefValue); err == nil {
		return "int"
	}
	if _, err := strconv.ParseFloat(f.DefValue, 64); err == nil {
		return "float"
	}

	return "string"
}
