// Package process builds the commands for the external collaborators of a match.
package process

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
)

// Target is the server endpoint a command is built for.
type Target struct {
	Host string
	Port int
}

// Runner creates executable commands for one role in a match.
// This interface keeps the match runner independent of what the processes are.
type Runner interface {
	// BuildCommand returns a ready-to-start command for target.
	// The command should NOT be started yet.
	BuildCommand(ctx context.Context, target Target) (*exec.Cmd, error)

	// Name returns a human-readable name for this process type.
	Name() string
}

// Lineup groups the three runners a match needs.
type Lineup struct {
	Server   Runner
	Player   Runner
	Opponent Runner
}

// FormatSeconds renders a seconds value the way the Java clients and the
// summary expect it: always with a fractional part ("3.0", "2.5").
func FormatSeconds(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// CommandString returns the command line of cmd (for debugging and --print-cmd).
func CommandString(cmd *exec.Cmd) string {
	return strings.Join(cmd.Args, " ")
}
