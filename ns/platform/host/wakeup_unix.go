//go:build linux || darwin

package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// pollSlice bounds how long Wait sleeps before looking at its context.
const pollSlice = 50 * time.Millisecond

// Wakeup is a level-triggered wake-up flag backed by a file descriptor.
type Wakeup struct {
	rfd, wfd int
	buf      [8]byte

	mu     sync.RWMutex
	closed bool
}

// NewWakeup opens the wake-up descriptor.
func NewWakeup() (*Wakeup, error) {
	rfd, wfd, err := createWakeFd()
	if err != nil {
		return nil, fmt.Errorf("host: wakeup: %w", err)
	}
	return &Wakeup{rfd: rfd, wfd: wfd}, nil
}

// SignalPending wakes a Wait in progress or the next one. It is safe from
// any goroutine and after Close.
func (w *Wakeup) SignalPending() {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	// EAGAIN means a wake-up is already pending.
	_, _ = unix.Write(w.wfd, wakeToken[:])
}

// Wait blocks until signalled, the timeout passes or ctx is done. A negative
// timeout waits without limit. It reports whether a signal was consumed.
func (w *Wakeup) Wait(ctx context.Context, timeout time.Duration) (bool, error) {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		slice := pollSlice
		if timeout >= 0 {
			rem := time.Until(deadline)
			if rem <= 0 {
				return w.poll(0)
			}
			slice = min(slice, rem)
		}
		ok, err := w.poll(slice)
		if ok || err != nil {
			return ok, err
		}
	}
}

func (w *Wakeup) poll(d time.Duration) (bool, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false, ErrClosed
	}
	ms := int((d + time.Millisecond - 1) / time.Millisecond)
	fds := []unix.PollFd{{Fd: int32(w.rfd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, ms)
	if errors.Is(err, unix.EINTR) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("host: poll: %w", err)
	}
	if n == 0 || fds[0].Revents&unix.POLLIN == 0 {
		return false, nil
	}
	w.drain()
	return true, nil
}

func (w *Wakeup) drain() {
	for {
		if _, err := unix.Read(w.rfd, w.buf[:]); err != nil {
			return
		}
	}
}

// Close releases the descriptors. Further Waits fail.
func (w *Wakeup) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	err := unix.Close(w.rfd)
	if w.wfd != w.rfd {
		err = errors.Join(err, unix.Close(w.wfd))
	}
	return err
}
