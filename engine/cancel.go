package engine

import (
	"io"
	"sync"
	"time"
)

// Token is the cooperative cancellation flag shared between the session
// controller and the worker executing one job. Cancel may be called from
// any goroutine, any number of times; the closed channel gives workers a
// memory-safe view of the flag at every suspension point.
type Token struct {
	once sync.Once
	done chan struct{}
}

// NewToken returns a token in the not-cancelled state.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Cancel flips the token. Idempotent.
func (t *Token) Cancel() {
	t.once.Do(func() { close(t.done) })
}

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the token is cancelled.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// Sleep waits for d or until the token is cancelled, whichever comes
// first. It returns false if the sleep was cut short by cancellation.
func (t *Token) Sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-t.done:
		return false
	case <-timer.C:
		return true
	}
}

// tokenReader aborts an in-flight transfer as soon as the job's token is
// cancelled, without waiting for the stream to end.
type tokenReader struct {
	r   io.Reader
	tok *Token
}

func (tr *tokenReader) Read(p []byte) (int, error) {
	if tr.tok.Cancelled() {
		return 0, ErrCancelled
	}
	return tr.r.Read(p)
}
