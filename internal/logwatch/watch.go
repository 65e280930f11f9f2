// Package logwatch waits for markers to appear in log files.
//
// It replaces network readiness probes: connecting to the server under test
// would register as a player joining and corrupt its matchmaking, so the only
// safe signal is what the processes write into their own logs.
package logwatch

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// DefaultInterval is the polling interval used when Options.Interval is zero.
	DefaultInterval = 100 * time.Millisecond

	// ServerNameMarker and PortMarker together form the server's readiness banner.
	ServerNameMarker = "Othello Server"
	PortMarker       = "tcp port:"

	// EndMarker starts the line a player prints when the game is over.
	EndMarker = "END "
)

// Matcher decides whether the current file content satisfies the wait.
type Matcher func(content []byte) bool

// ContainsAll matches when every marker occurs somewhere in the content.
func ContainsAll(markers ...string) Matcher {
	return func(content []byte) bool {
		for _, m := range markers {
			if !bytes.Contains(content, []byte(m)) {
				return false
			}
		}
		return true
	}
}

// HasLinePrefix matches when some line begins with prefix.
func HasLinePrefix(prefix string) Matcher {
	p := []byte(prefix)
	return func(content []byte) bool {
		for len(content) > 0 {
			line := content
			if i := bytes.IndexByte(content, '\n'); i >= 0 {
				line, content = content[:i], content[i+1:]
			} else {
				content = nil
			}
			if bytes.HasPrefix(line, p) {
				return true
			}
		}
		return false
	}
}

// Options bounds a Wait.
type Options struct {
	Timeout  time.Duration
	Interval time.Duration
}

// Wait re-reads path until match accepts its content, the timeout elapses, or
// ctx is cancelled. A missing file counts as empty. Polling at Interval is the
// source of truth; filesystem notifications only shorten the wait.
func Wait(ctx context.Context, path string, opts Options, match Matcher) bool {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	if check(path, match) {
		return true
	}
	if opts.Timeout <= 0 {
		return false
	}

	deadline := time.NewTimer(opts.Timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	events, stop := notifications(path)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			// One last look so a marker written right at the deadline counts.
			return check(path, match)
		case <-ticker.C:
		case <-events:
		}
		if check(path, match) {
			return true
		}
	}
}

// AwaitServerReady waits for the server banner in the server's own log.
func AwaitServerReady(ctx context.Context, path string, opts Options) bool {
	return Wait(ctx, path, opts, ContainsAll(ServerNameMarker, PortMarker))
}

// AwaitGameEnd waits for a line starting with EndMarker in a player's log.
func AwaitGameEnd(ctx context.Context, path string, opts Options) bool {
	return Wait(ctx, path, opts, HasLinePrefix(EndMarker))
}

func check(path string, match Matcher) bool {
	content, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return match(content)
}

// notifications watches the file's directory (the file may not exist yet) and
// forwards events for path. When a watcher can't be created the returned
// channel never fires and Wait degrades to plain polling.
func notifications(path string) (<-chan struct{}, func()) {
	out := make(chan struct{}, 1)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return out, func() {}
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return out, func() {}
	}

	target := filepath.Clean(path)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				select {
				case out <- struct{}{}:
				default:
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return out, func() {
		close(done)
		watcher.Close()
	}
}

// Tail returns up to n last lines of path, for diagnostics.
func Tail(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if n <= 0 {
		return nil, nil
	}
	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, bufio.ErrTooLong) {
		return ring, err
	}
	return ring, nil
}

// LastLineWithPrefix returns the last line of content starting with prefix.
func LastLineWithPrefix(content, prefix string) (string, bool) {
	var last string
	found := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, prefix) {
			last, found = line, true
		}
	}
	return last, found
}
