package timer

import (
	"fmt"
	"sync/atomic"

	"github.com/joshuapare/nskit/internal/irq"
	"github.com/joshuapare/nskit/internal/logger"
	"github.com/joshuapare/nskit/pkg/types"
)

// Scheduler multiplexes timers of one time base onto an Alarm.
type Scheduler struct {
	base  Base
	alarm Alarm
	mask  *irq.Mask

	head *Timer
	pass uint64 // incremented by every Process

	due   atomic.Bool
	fired atomic.Uint64
}

// NewScheduler creates a scheduler driving alarm. A nil mask gives the
// scheduler its own.
func NewScheduler(base Base, alarm Alarm, mask *irq.Mask) *Scheduler {
	if mask == nil {
		mask = new(irq.Mask)
	}
	return &Scheduler{base: base, alarm: alarm, mask: mask}
}

// Base returns the tick unit of the scheduler.
func (s *Scheduler) Base() Base { return s.base }

// Now returns the current tick of the scheduler's alarm.
func (s *Scheduler) Now() uint32 { return s.alarm.Now() }

// NewTimer creates a stopped timer that runs handler when it fires.
func (s *Scheduler) NewTimer(handler Handler, arg any) *Timer {
	t := &Timer{sched: s, handler: handler, arg: arg}
	t.next = t
	return t
}

// AlarmFired records that the alarm expired. It is called from the alarm
// context and does no list work.
func (s *Scheduler) AlarmFired() {
	s.due.Store(true)
}

// IsDue reports whether the alarm fired since the last ProcessIfDue.
func (s *Scheduler) IsDue() bool { return s.due.Load() }

// ProcessIfDue runs Process when the alarm fired since the last call.
func (s *Scheduler) ProcessIfDue() {
	if s.due.Swap(false) {
		s.Process()
	}
}

// Process fires every timer whose fire time has passed and that was running
// when Process started, then re-arms the alarm for the new head. Timers
// (re)started by a handler during this pass are skipped, even when their
// fire time sorts them ahead of older due timers; they fire on the next pass.
func (s *Scheduler) Process() {
	st := s.mask.Disable()
	s.pass++
	pass := s.pass
	s.mask.Restore(st)

	for {
		st = s.mask.Disable()
		now := s.alarm.Now()
		var prev *Timer
		t := s.head
		for t != nil && t.pass >= pass && !isStrictlyBefore(now, t.fireTime) {
			prev, t = t, t.next
		}
		if t == nil || isStrictlyBefore(now, t.fireTime) {
			s.arm()
			s.mask.Restore(st)
			return
		}
		if prev == nil {
			s.head = t.next
		} else {
			prev.next = t.next
		}
		t.next = t
		s.mask.Restore(st)

		s.fired.Add(1)
		t.handler(t)
	}
}

// Fired returns the number of handlers run so far.
func (s *Scheduler) Fired() uint64 { return s.fired.Load() }

// NextFireTime returns the fire time of the earliest running timer.
func (s *Scheduler) NextFireTime() (uint32, bool) {
	st := s.mask.Disable()
	defer s.mask.Restore(st)
	if s.head == nil {
		return 0, false
	}
	return s.head.fireTime, true
}

// Len returns the number of running timers.
func (s *Scheduler) Len() int {
	st := s.mask.Disable()
	defer s.mask.Restore(st)
	n := 0
	for t := s.head; t != nil; t = t.next {
		n++
	}
	return n
}

// Check verifies that the running timers are sorted and the list ends.
func (s *Scheduler) Check(report *types.DiagnosticReport) error {
	if report == nil {
		report = types.NewDiagnosticReport()
	}
	before := report.Summary.Errors + report.Summary.Critical
	component := "timer-" + s.base.String()

	st := s.mask.Disable()
	now := s.alarm.Now()
	n := 0
	for t := s.head; t != nil; t = t.next {
		if t.next == t {
			report.Addf(types.SevCritical, component, n, "stopped timer linked in list")
			break
		}
		if t.next != nil && firesBefore(t.next.fireTime, t.fireTime, now) {
			report.Addf(types.SevError, component, n, "fire time %d sorted before %d", t.fireTime, t.next.fireTime)
		}
		n++
		if n > 1<<20 {
			report.Addf(types.SevCritical, component, -1, "timer list does not end")
			break
		}
	}
	s.mask.Restore(st)

	if report.Summary.Errors+report.Summary.Critical > before {
		return fmt.Errorf("timer: %s check: %w", s.base, types.ErrFailed)
	}
	return nil
}

// add links t in fire-time order. The mask must be held.
func (s *Scheduler) add(t *Timer) {
	s.remove(t)
	t.pass = s.pass

	now := s.alarm.Now()
	var prev *Timer
	cur := s.head
	for cur != nil && !firesBefore(t.fireTime, cur.fireTime, now) {
		prev = cur
		cur = cur.next
	}
	t.next = cur
	if prev == nil {
		s.head = t
		s.arm()
	} else {
		prev.next = t
	}
}

// remove unlinks t if it is running. The mask must be held.
func (s *Scheduler) remove(t *Timer) {
	if t.next == t {
		return
	}
	if s.head == t {
		s.head = t.next
		s.arm()
	} else {
		for cur := s.head; cur != nil; cur = cur.next {
			if cur.next == t {
				cur.next = t.next
				break
			}
		}
	}
	t.next = t
}

// arm points the alarm at the head timer. The mask must be held.
func (s *Scheduler) arm() {
	if s.head == nil {
		s.alarm.Stop()
		return
	}
	now := s.alarm.Now()
	var remaining uint32
	if isStrictlyBefore(now, s.head.fireTime) {
		remaining = s.head.fireTime - now
	}
	s.alarm.StartAt(now, remaining)
}

func (s *Scheduler) start(t *Timer, t0, dt uint32) error {
	if dt > MaxDT {
		logger.Debug("timer delay out of range", "base", s.base.String(), "dt", dt)
		return fmt.Errorf("timer: delay %d exceeds %d: %w", dt, uint32(MaxDT), types.ErrInvalidArgs)
	}
	st := s.mask.Disable()
	defer s.mask.Restore(st)
	t.fireTime = t0 + dt
	s.add(t)
	return nil
}
