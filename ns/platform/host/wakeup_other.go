//go:build !linux && !darwin

package host

import (
	"context"
	"sync"
	"time"
)

// Wakeup is a level-triggered wake-up flag backed by a channel.
type Wakeup struct {
	ch chan struct{}

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewWakeup creates the wake-up channel.
func NewWakeup() (*Wakeup, error) {
	return &Wakeup{ch: make(chan struct{}, 1), done: make(chan struct{})}, nil
}

// SignalPending wakes a Wait in progress or the next one.
func (w *Wakeup) SignalPending() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until signalled, the timeout passes or ctx is done. A negative
// timeout waits without limit.
func (w *Wakeup) Wait(ctx context.Context, timeout time.Duration) (bool, error) {
	var after <-chan time.Time
	if timeout >= 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		after = t.C
	}
	select {
	case <-w.ch:
		return true, nil
	case <-after:
		return false, nil
	case <-w.done:
		return false, ErrClosed
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Close makes further Waits fail.
func (w *Wakeup) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.done)
	}
	return nil
}
