package match

import "sync"

// Token is a process-wide stop request. It is set at most once and never
// reset; games already running are not interrupted by it.
type Token struct {
	once sync.Once
	done chan struct{}
}

// NewToken returns a token that has not been requested.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Request sets the token. Safe to call repeatedly and concurrently.
func (t *Token) Request() {
	t.once.Do(func() { close(t.done) })
}

// Requested reports whether a stop has been requested.
func (t *Token) Requested() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done is closed when a stop is requested.
func (t *Token) Done() <-chan struct{} {
	return t.done
}
