package process

import (
	"context"
	"os/exec"
	"strconv"
)

// Defaults matching the layout of the Othello project tree.
const (
	DefaultJava              = "java"
	DefaultServerJar         = "Server/OthelloServer.jar"
	DefaultPlayerClasspath   = "Src"
	DefaultPlayerClass       = "OthelloClientBench"
	DefaultOpponentClasspath = "TestSet"
	DefaultOpponentClass     = "OthelloMonteAI"
)

// ServerConfig holds configuration for the game server process.
type ServerConfig struct {
	// JavaPath is the path to the java binary.
	JavaPath string

	// Jar is the server jar, relative to Dir.
	Jar string

	// Timeout is the per-move timeout in seconds passed as -timeout.
	Timeout int

	// Monitor opens the server's monitor window (-monitor).
	Monitor bool

	// Dir is the working directory; empty means the current one.
	Dir string
}

// ServerRunner implements Runner for the game server.
type ServerRunner struct {
	config ServerConfig
}

// NewServerRunner creates a server runner, filling unset paths with defaults.
func NewServerRunner(cfg ServerConfig) *ServerRunner {
	if cfg.JavaPath == "" {
		cfg.JavaPath = DefaultJava
	}
	if cfg.Jar == "" {
		cfg.Jar = DefaultServerJar
	}
	return &ServerRunner{config: cfg}
}

// Name returns "server".
func (r *ServerRunner) Name() string {
	return "server"
}

// BuildCommand creates the server command listening on target.Port.
// The command is not bound to ctx: its lifetime is managed by the supervisor.
func (r *ServerRunner) BuildCommand(_ context.Context, target Target) (*exec.Cmd, error) {
	cmd := exec.Command(r.config.JavaPath, r.buildArgs(target.Port)...)
	cmd.Dir = r.config.Dir
	return cmd, nil
}

func (r *ServerRunner) buildArgs(port int) []string {
	// Headless stays off so -monitor can open its window.
	args := []string{
		"-Djava.awt.headless=false",
		"-jar", r.config.Jar,
		"-port", strconv.Itoa(port),
		"-timeout", strconv.Itoa(r.config.Timeout),
	}
	if r.config.Monitor {
		args = append(args, "-monitor")
	}
	return args
}

// ClientConfig holds configuration for a client process (player or opponent).
type ClientConfig struct {
	JavaPath  string
	Classpath string
	Class     string

	// Mode is the player's search mode. Opponents take no mode.
	Mode string

	// Seconds is the per-move thinking time.
	Seconds float64

	Dir string
}

// PlayerRunner implements Runner for the player under test.
// Its arguments are HOST PORT MODE SECONDS.
type PlayerRunner struct {
	config ClientConfig
}

// NewPlayerRunner creates a player runner, filling unset fields with defaults.
func NewPlayerRunner(cfg ClientConfig) *PlayerRunner {
	if cfg.JavaPath == "" {
		cfg.JavaPath = DefaultJava
	}
	if cfg.Classpath == "" {
		cfg.Classpath = DefaultPlayerClasspath
	}
	if cfg.Class == "" {
		cfg.Class = DefaultPlayerClass
	}
	return &PlayerRunner{config: cfg}
}

// Name returns "player".
func (r *PlayerRunner) Name() string {
	return "player"
}

// BuildCommand creates the player command connecting to target.
func (r *PlayerRunner) BuildCommand(_ context.Context, target Target) (*exec.Cmd, error) {
	cmd := exec.Command(r.config.JavaPath,
		"-cp", r.config.Classpath, r.config.Class,
		target.Host, strconv.Itoa(target.Port),
		r.config.Mode, FormatSeconds(r.config.Seconds),
	)
	cmd.Dir = r.config.Dir
	return cmd, nil
}

// OpponentRunner implements Runner for the reference opponent.
// Its arguments are HOST PORT SECONDS, with whole seconds.
type OpponentRunner struct {
	config ClientConfig
}

// NewOpponentRunner creates an opponent runner, filling unset fields with defaults.
func NewOpponentRunner(cfg ClientConfig) *OpponentRunner {
	if cfg.JavaPath == "" {
		cfg.JavaPath = DefaultJava
	}
	if cfg.Classpath == "" {
		cfg.Classpath = DefaultOpponentClasspath
	}
	if cfg.Class == "" {
		cfg.Class = DefaultOpponentClass
	}
	return &OpponentRunner{config: cfg}
}

// Name returns "opponent".
func (r *OpponentRunner) Name() string {
	return "opponent"
}

// BuildCommand creates the opponent command connecting to target.
func (r *OpponentRunner) BuildCommand(_ context.Context, target Target) (*exec.Cmd, error) {
	cmd := exec.Command(r.config.JavaPath,
		"-cp", r.config.Classpath, r.config.Class,
		target.Host, strconv.Itoa(target.Port),
		strconv.Itoa(int(r.config.Seconds)),
	)
	cmd.Dir = r.config.Dir
	return cmd, nil
}
