// Package supervisor owns the lifecycle of external processes spawned for a match:
// starting them detached in their own process group, capturing their output into a
// log file, and tearing the whole group down with SIGTERM/SIGKILL escalation.
package supervisor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/randomizedcoder/go-match-bench/internal/logging"
)

const (
	// TimeoutExitCode is reported for a process that had to be killed because it
	// did not exit in time (same value as coreutils timeout(1)).
	TimeoutExitCode = 124

	// InterruptedExitCode is reported for processes of a game that never started
	// because a stop was requested (128 + SIGINT).
	InterruptedExitCode = 130

	defaultKillWait = 2 * time.Second
	drainTimeout    = 2 * time.Second
)

// Options configures Spawn.
type Options struct {
	// Role names the process in logs and on the console ("server", "player", "opponent").
	Role string

	// LogPath is created (truncated) and receives stdout and stderr.
	LogPath string

	// Mirror, if set, also echoes each output line to the console.
	Mirror *logging.Mirror

	// Prefix is prepended to mirrored lines.
	Prefix string

	Logger *slog.Logger

	// KillWait bounds how long to wait for exit after SIGKILL. Default 2s.
	KillWait time.Duration
}

// Handle is an owned reference to a running process group.
// It must be released with Close once the process has been terminated.
type Handle struct {
	role     string
	logPath  string
	cmd      *exec.Cmd
	pid      int
	logger   *slog.Logger
	killWait time.Duration

	logFile  *os.File
	pipeRead *os.File
	copyDone chan struct{}

	// exited is set once the group leader can no longer be signalled safely.
	mu     sync.Mutex
	exited bool

	done      chan struct{}
	exitCode  int
	startTime time.Time
	uptime    time.Duration

	closeOnce sync.Once
}

// Spawn starts cmd in a new process group with its output going to opts.LogPath.
// It returns as soon as the process has been created.
func Spawn(cmd *exec.Cmd, opts Options) (*Handle, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	killWait := opts.KillWait
	if killWait <= 0 {
		killWait = defaultKillWait
	}

	logFile, err := os.Create(opts.LogPath)
	if err != nil {
		return nil, fmt.Errorf("create %s log: %w", opts.Role, err)
	}

	h := &Handle{
		role:     opts.Role,
		logPath:  opts.LogPath,
		cmd:      cmd,
		logger:   logger,
		killWait: killWait,
		logFile:  logFile,
		done:     make(chan struct{}),
	}

	// Without a mirror the child writes straight into the file. With one, output
	// goes through a pipe so each line can be copied to both places.
	var pipeWrite *os.File
	if opts.Mirror != nil {
		pr, pw, err := os.Pipe()
		if err != nil {
			logFile.Close()
			return nil, fmt.Errorf("create %s output pipe: %w", opts.Role, err)
		}
		h.pipeRead, pipeWrite = pr, pw
		cmd.Stdout, cmd.Stderr = pw, pw
	} else {
		cmd.Stdout, cmd.Stderr = logFile, logFile
	}

	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	h.startTime = time.Now()
	if err := cmd.Start(); err != nil {
		if pipeWrite != nil {
			pipeWrite.Close()
			h.pipeRead.Close()
		}
		logFile.Close()
		return nil, fmt.Errorf("start %s: %w", opts.Role, err)
	}

	// The child holds its own copy; closing ours lets the reader see EOF once
	// every process in the group has gone.
	if pipeWrite != nil {
		pipeWrite.Close()
		h.copyDone = make(chan struct{})
		go h.copyOutput(opts.Mirror, opts.Prefix)
	}

	// With Setpgid and Pgid 0 the leader's pid is the group id.
	h.pid = cmd.Process.Pid
	logger.Debug("process_started", "role", h.role, "pid", h.pid, "log", h.logPath)

	go h.reap()
	return h, nil
}

// copyOutput writes every line to the log file and offers it to the mirror.
func (h *Handle) copyOutput(mirror *logging.Mirror, prefix string) {
	defer close(h.copyDone)

	r := bufio.NewReader(h.pipeRead)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			if _, werr := h.logFile.WriteString(line); werr != nil {
				h.logger.Warn("log_write_failed", "role", h.role, "error", werr)
			}
			mirror.Echo(prefix, strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			return
		}
	}
}

// reap waits for the group leader and records its exit code.
func (h *Handle) reap() {
	if awaitExit(h.pid) {
		// The leader is now a zombie: its pid, and therefore the group id, can't
		// be recycled until Wait below. Sweep any stragglers left in the group.
		h.mu.Lock()
		h.exited = true
		_ = syscall.Kill(-h.pid, syscall.SIGKILL)
		h.mu.Unlock()
	}

	err := h.cmd.Wait()

	h.mu.Lock()
	h.exited = true
	h.mu.Unlock()

	h.exitCode = extractExitCode(err)
	h.uptime = time.Since(h.startTime)
	close(h.done)

	h.logger.Debug("process_exited",
		"role", h.role,
		"pid", h.pid,
		"exit_code", h.exitCode,
		"uptime", h.uptime.String(),
	)
}

// signalGroup sends sig to the whole process group unless the leader has
// already exited. Returns whether a signal was sent.
func (h *Handle) signalGroup(sig syscall.Signal) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.exited {
		return false
	}
	if err := syscall.Kill(-h.pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		h.logger.Debug("signal_failed", "role", h.role, "pid", h.pid, "signal", sig.String(), "error", err)
	}
	return true
}

// waitDone reports whether the process exited within d.
func (h *Handle) waitDone(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-h.done:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-h.done:
		return true
	case <-timer.C:
		return false
	}
}

// Terminate sends SIGTERM to the process group, waits up to grace, then sends
// SIGKILL. Safe to call repeatedly and after the process has exited; a nil
// handle is a no-op.
func (h *Handle) Terminate(grace time.Duration) {
	if h == nil {
		return
	}

	if h.signalGroup(syscall.SIGTERM) {
		h.logger.Debug("process_terminating", "role", h.role, "pid", h.pid, "grace", grace.String())
	}
	if h.waitDone(grace) {
		return
	}

	if h.signalGroup(syscall.SIGKILL) {
		h.logger.Warn("force_killing_process", "role", h.role, "pid", h.pid)
	}
	if !h.waitDone(h.killWait) {
		h.logger.Error("process_kill_timeout", "role", h.role, "pid", h.pid, "wait", h.killWait.String())
	}
}

// WaitTimeout waits up to timeout for the process to exit on its own and
// returns its exit code. If it does not, the group is killed and
// TimeoutExitCode is returned.
func (h *Handle) WaitTimeout(timeout time.Duration) int {
	if h == nil {
		return TimeoutExitCode
	}
	if h.waitDone(timeout) {
		return h.exitCode
	}

	h.logger.Warn("process_wait_timeout", "role", h.role, "pid", h.pid, "timeout", timeout.String())
	h.signalGroup(syscall.SIGKILL)
	h.waitDone(h.killWait)
	return TimeoutExitCode
}

// Close releases the log file and output pipe. Call after Terminate.
func (h *Handle) Close() {
	if h == nil {
		return
	}
	h.closeOnce.Do(func() {
		if h.copyDone != nil {
			select {
			case <-h.copyDone:
			case <-time.After(drainTimeout):
				// Something outside the group still holds the pipe open.
				h.logger.Warn("output_drain_timeout", "role", h.role, "pid", h.pid)
				h.pipeRead.Close()
				<-h.copyDone
			}
			h.pipeRead.Close()
		}
		if err := h.logFile.Close(); err != nil {
			h.logger.Warn("log_close_failed", "role", h.role, "error", err)
		}
	})
}

// Pid returns the process id, which is also its process group id.
func (h *Handle) Pid() int {
	return h.pid
}

// Role returns the role the process was spawned for.
func (h *Handle) Role() string {
	return h.role
}

// LogPath returns the file receiving the process output.
func (h *Handle) LogPath() string {
	return h.logPath
}

// Done is closed once the process has exited and been reaped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// ExitCode returns the exit code and whether the process has exited.
func (h *Handle) ExitCode() (int, bool) {
	select {
	case <-h.done:
		return h.exitCode, true
	default:
		return 0, false
	}
}

// Uptime returns how long the process ran, or has been running so far.
func (h *Handle) Uptime() time.Duration {
	select {
	case <-h.done:
		return h.uptime
	default:
		return time.Since(h.startTime)
	}
}

// extractExitCode extracts the exit code from a Wait() error.
func extractExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				// Signal exit: 128 + signal number
				return 128 + int(status.Signal())
			}
			return status.ExitStatus()
		}
	}

	// Unknown error, assume exit code 1
	return 1
}
