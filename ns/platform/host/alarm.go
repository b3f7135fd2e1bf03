package host

import (
	"sync"
	"time"
)

// Tick units for the two timer bases.
const (
	Milli = time.Millisecond
	Micro = time.Microsecond
)

// Alarm is a one-shot alarm counting in unit ticks. It satisfies
// timer.Alarm. fired runs on a runtime timer goroutine.
type Alarm struct {
	unit  time.Duration
	fired func()

	mu  sync.Mutex
	t   *time.Timer
	gen uint64
}

// NewAlarm returns a disarmed alarm.
func NewAlarm(unit time.Duration, fired func()) *Alarm {
	if unit <= 0 {
		unit = Milli
	}
	return &Alarm{unit: unit, fired: fired}
}

// Now returns the monotonic clock in ticks, wrapping at 32 bits.
func (a *Alarm) Now() uint32 {
	return uint32(monotonicNanos() / int64(a.unit))
}

// StartAt arms the alarm for dt ticks after t0, replacing an earlier arming.
// A deadline already behind the clock fires at once.
func (a *Alarm) StartAt(t0, dt uint32) {
	var wait uint32
	if d := t0 + dt - a.Now(); d&(1<<31) == 0 {
		wait = d
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
	gen := a.gen
	a.t = time.AfterFunc(time.Duration(wait)*a.unit, func() { a.expire(gen) })
}

// Stop disarms the alarm. A callback already running is not waited for.
func (a *Alarm) Stop() {
	a.mu.Lock()
	a.stopLocked()
	a.mu.Unlock()
}

func (a *Alarm) stopLocked() {
	a.gen++
	if a.t != nil {
		a.t.Stop()
		a.t = nil
	}
}

func (a *Alarm) expire(gen uint64) {
	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.t = nil
	a.mu.Unlock()

	if a.fired != nil {
		a.fired()
	}
}
