// Package irq provides the interrupt mask used around state shared between
// the main loop and the alarm context.
//
// On a microcontroller this would clear the global interrupt enable bit. On a
// hosted target the alarm callback runs on its own goroutine, so the mask is
// a mutex. Sections must stay short and must never call back into handlers:
// the mask is not reentrant.
//
//	state := mask.Disable()
//	defer mask.Restore(state)
package irq

import (
	"sync"
	"sync/atomic"
)

// Mask guards one execution domain. The zero value is unmasked.
type Mask struct {
	mu     sync.Mutex
	masked atomic.Bool
}

// State is the token returned by Disable and consumed by Restore.
type State struct {
	m *Mask
}

// Disable masks the alarm context and returns the state to restore.
func (m *Mask) Disable() State {
	m.mu.Lock()
	m.masked.Store(true)
	return State{m: m}
}

// Restore unmasks the alarm context. Restoring a zero State is a no-op.
func (m *Mask) Restore(s State) {
	if s.m != m || m == nil {
		return
	}
	m.masked.Store(false)
	m.mu.Unlock()
}

// Masked reports whether a critical section is currently open.
func (m *Mask) Masked() bool {
	return m.masked.Load()
}
