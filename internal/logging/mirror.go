package logging

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
)

const (
	// MaxLineLength is the longest line echoed to the console before truncation.
	// Log files always receive the full line.
	MaxLineLength = 4096

	// DefaultMirrorBuffer is the number of lines queued for the console writer.
	DefaultMirrorBuffer = 1024
)

var roleStyles = map[string]lipgloss.Style{
	"server":   lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")).Bold(true),
	"player":   lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true),
	"opponent": lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true),
}

var roleTags = map[string]string{
	"server":   "S",
	"player":   "M",
	"opponent": "O",
}

// Prefix returns the console prefix for a process, e.g. "[S w0 g1] ".
func Prefix(role string, lane, game int) string {
	tag, ok := roleTags[role]
	if !ok {
		tag = role
	}
	label := fmt.Sprintf("[%s w%d g%d]", tag, lane, game)
	if style, ok := roleStyles[role]; ok {
		label = style.Render(label)
	}
	return label + " "
}

// Mirror echoes child-process output to the operator's console.
//
// Echo never blocks: lines are queued on a bounded channel and written by a
// single goroutine. When the console can't keep up the line is dropped from the
// console only; the caller has already written it to the log file.
type Mirror struct {
	out   io.Writer
	lines chan string

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	muted   atomic.Bool
	written atomic.Int64
	dropped atomic.Int64
}

// NewMirror starts a mirror writing to out.
func NewMirror(out io.Writer, bufferSize int) *Mirror {
	if bufferSize < 1 {
		bufferSize = DefaultMirrorBuffer
	}
	m := &Mirror{
		out:   out,
		lines: make(chan string, bufferSize),
		done:  make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Mirror) run() {
	defer close(m.done)
	for line := range m.lines {
		if m.muted.Load() {
			continue
		}
		if _, err := io.WriteString(m.out, line); err == nil {
			m.written.Add(1)
		}
	}
}

// Echo queues one line with its prefix. Returns false if the line was dropped
// (queue full, mirror muted or closed).
func (m *Mirror) Echo(prefix, line string) bool {
	if m == nil || m.muted.Load() {
		return false
	}
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength] + "...(truncated)"
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false
	}
	select {
	case m.lines <- prefix + line + "\n":
		return true
	default:
		m.dropped.Add(1)
		return false
	}
}

// Mute stops console output for the rest of the run. Used once a stop has been
// requested so shutdown messages aren't buried under server chatter.
func (m *Mirror) Mute() {
	if m != nil {
		m.muted.Store(true)
	}
}

// Close flushes queued lines and stops the writer. Safe to call multiple times.
func (m *Mirror) Close() {
	if m == nil {
		return
	}
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.lines)
	}
	m.mu.Unlock()
	<-m.done
}

// Stats returns the number of lines written to and dropped from the console.
func (m *Mirror) Stats() (written, dropped int64) {
	return m.written.Load(), m.dropped.Load()
}
