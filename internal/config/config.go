// Package config provides configuration management for go-match-bench.
package config

import "time"

// Config holds all configuration options for a benchmark run.
type Config struct {
	// Scheduling
	Games    int    `json:"games"`
	Parallel int    `json:"parallel"`
	Host     string `json:"host"`
	PortBase int    `json:"port_base"`

	// Match
	MyMode        string  `json:"my_mode"`
	MySeconds     float64 `json:"my_seconds"`
	MonteSeconds  int     `json:"monte_seconds"`
	ServerTimeout int     `json:"server_timeout"` // per-move, passed to the server
	WallTimeout   int     `json:"wall_timeout"`   // seconds to wait for END
	Monitor       bool    `json:"monitor"`

	// Console
	NoStreamServerLog bool `json:"no_stream_server_log"`

	// Java toolchain and layout
	JavaPath       string `json:"java_path"`
	JavacPath      string `json:"javac_path"`
	SrcGlob        string `json:"src_glob"`
	SkipBuild      bool   `json:"skip_build"`
	ServerJar      string `json:"server_jar"`
	MyClasspath    string `json:"my_classpath"`
	MyClass        string `json:"my_class"`
	MonteClasspath string `json:"monte_classpath"`
	MonteClass     string `json:"monte_class"`

	// Timings
	ReadyTimeout time.Duration `json:"ready_timeout"`
	ExitWait     time.Duration `json:"exit_wait"`
	KillGrace    time.Duration `json:"kill_grace"`
	SpawnGap     time.Duration `json:"spawn_gap"`
	PollInterval time.Duration `json:"poll_interval"`

	// Output
	OutDir string `json:"out_dir"`

	// Observability
	MetricsAddr string `json:"metrics_addr"` // empty = disabled
	TUIEnabled  bool   `json:"tui_enabled"`
	Verbose     bool   `json:"verbose"`
	LogFormat   string `json:"log_format"` // json, text

	// Diagnostic modes
	PrintCmd      bool `json:"print_cmd"`
	SkipPreflight bool `json:"skip_preflight"`
	ShowVersion   bool `json:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Scheduling
		Games:    20,
		Parallel: 10,
		Host:     "localhost",
		PortBase: 25033,

		// Match
		MyMode:        "tt",
		MySeconds:     3.0,
		MonteSeconds:  10,
		ServerTimeout: 12,
		WallTimeout:   1200,

		// Java
		JavaPath:       "java",
		JavacPath:      "javac",
		SrcGlob:        "Src/*.java",
		ServerJar:      "Server/OthelloServer.jar",
		MyClasspath:    "Src",
		MyClass:        "OthelloClientBench",
		MonteClasspath: "TestSet",
		MonteClass:     "OthelloMonteAI",

		// Timings
		ReadyTimeout: 12 * time.Second,
		ExitWait:     10 * time.Second,
		KillGrace:    300 * time.Millisecond,
		SpawnGap:     100 * time.Millisecond,
		PollInterval: 100 * time.Millisecond,

		// Output
		OutDir: "benchmarks",

		// Observability
		LogFormat: "json",
	}
}

// WallTimeoutDuration returns WallTimeout as a duration.
func (c *Config) WallTimeoutDuration() time.Duration {
	return time.Duration(c.WallTimeout) * time.Second
}

// StreamServerLog reports whether server output is mirrored to the console.
func (c *Config) StreamServerLog() bool {
	return !c.NoStreamServerLog
}

// LanePort returns the server port owned by lane.
func (c *Config) LanePort(lane int) int {
	return c.PortBase + lane
}

// ProcessesPerGame is the number of external processes a running game needs.
const ProcessesPerGame = 3

// MaxProcesses is the peak number of external processes across all lanes.
func (c *Config) MaxProcesses() int {
	return ProcessesPerGame * c.Parallel
}
