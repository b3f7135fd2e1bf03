// Package sim is a deterministic platform for tests and the selftest: a
// manually advanced clock whose alarms fire synchronously, and a signaler
// that only counts.
package sim

import (
	"sync"
	"sync/atomic"
)

// Clock is a free-running tick counter that only moves on Advance.
type Clock struct {
	mu     sync.Mutex
	now    uint32
	alarms []*Alarm
}

// NewClock returns a clock reading start.
func NewClock(start uint32) *Clock {
	return &Clock{now: start}
}

// Now returns the current tick.
func (c *Clock) Now() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NewAlarm creates a disarmed alarm on c. fired runs on the goroutine that
// calls Advance each time the alarm expires.
func (c *Clock) NewAlarm(fired func()) *Alarm {
	a := &Alarm{clock: c, fired: fired}
	c.mu.Lock()
	c.alarms = append(c.alarms, a)
	c.mu.Unlock()
	return a
}

// Advance moves the clock forward by dt ticks, stopping at every alarm
// expiry on the way.
func (c *Clock) Advance(dt uint32) {
	c.AdvanceWith(dt, nil)
}

// AdvanceWith is Advance calling step after every expiry, so a main loop can
// process the firing before time moves on.
func (c *Clock) AdvanceWith(dt uint32, step func()) {
	for {
		c.mu.Lock()
		next, wait := c.earliest(dt)
		if next == nil {
			c.now += dt
			c.mu.Unlock()
			return
		}
		c.now += wait
		dt -= wait
		next.armed = false
		next.expired++
		fired := next.fired
		c.mu.Unlock()

		if fired != nil {
			fired()
		}
		if step != nil {
			step()
		}
	}
}

// earliest returns the armed alarm expiring first within limit ticks and
// the ticks until it does. c.mu must be held.
func (c *Clock) earliest(limit uint32) (*Alarm, uint32) {
	var (
		best *Alarm
		wait uint32
	)
	for _, a := range c.alarms {
		if !a.armed {
			continue
		}
		var w uint32
		if d := a.fireAt - c.now; d&(1<<31) == 0 {
			w = d
		}
		if w > limit {
			continue
		}
		if best == nil || w < wait {
			best, wait = a, w
		}
	}
	return best, wait
}

// Alarm is a one-shot alarm on a Clock. It satisfies timer.Alarm.
type Alarm struct {
	clock   *Clock
	fired   func()
	armed   bool
	fireAt  uint32
	expired int
}

// StartAt arms the alarm for dt ticks after t0.
func (a *Alarm) StartAt(t0, dt uint32) {
	a.clock.mu.Lock()
	a.armed = true
	a.fireAt = t0 + dt
	a.clock.mu.Unlock()
}

// Stop disarms the alarm.
func (a *Alarm) Stop() {
	a.clock.mu.Lock()
	a.armed = false
	a.clock.mu.Unlock()
}

// Now returns the clock's current tick.
func (a *Alarm) Now() uint32 { return a.clock.Now() }

// Armed reports whether the alarm is set and, if so, when it fires.
func (a *Alarm) Armed() (uint32, bool) {
	a.clock.mu.Lock()
	defer a.clock.mu.Unlock()
	return a.fireAt, a.armed
}

// Expired returns how many times the alarm has fired.
func (a *Alarm) Expired() int {
	a.clock.mu.Lock()
	defer a.clock.mu.Unlock()
	return a.expired
}

// Signaler records signal-pending calls.
type Signaler struct {
	count   atomic.Int64
	pending atomic.Bool
}

// SignalPending marks work pending.
func (s *Signaler) SignalPending() {
	s.count.Add(1)
	s.pending.Store(true)
}

// Count returns the number of signals so far.
func (s *Signaler) Count() int64 { return s.count.Load() }

// Take reports whether a signal arrived since the last Take and clears it.
func (s *Signaler) Take() bool { return s.pending.Swap(false) }
