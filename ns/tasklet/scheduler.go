package tasklet

import (
	"fmt"

	"github.com/joshuapare/nskit/internal/irq"
	"github.com/joshuapare/nskit/pkg/types"
)

// Signaler is notified when work becomes pending for the main loop.
type Signaler interface {
	SignalPending()
}

// SignalerFunc adapts a function to Signaler.
type SignalerFunc func()

func (f SignalerFunc) SignalPending() { f() }

type nopSignaler struct{}

func (nopSignaler) SignalPending() {}

// Handler is the work a tasklet performs.
type Handler func(t *Tasklet)

// Scheduler is a FIFO of posted tasklets.
type Scheduler struct {
	mask   *irq.Mask
	signal Signaler

	head *Tasklet
	tail *Tasklet

	runs uint64
}

// NewScheduler creates a scheduler guarded by mask. A nil mask gives the
// scheduler its own; a nil signaler discards notifications.
func NewScheduler(mask *irq.Mask, signal Signaler) *Scheduler {
	if mask == nil {
		mask = new(irq.Mask)
	}
	if signal == nil {
		signal = nopSignaler{}
	}
	return &Scheduler{mask: mask, signal: signal}
}

// ArePending reports whether any tasklet is queued.
func (s *Scheduler) ArePending() bool {
	st := s.mask.Disable()
	defer s.mask.Restore(st)
	return s.head != nil
}

// Runs returns the number of handlers executed so far.
func (s *Scheduler) Runs() uint64 {
	st := s.mask.Disable()
	defer s.mask.Restore(st)
	return s.runs
}

// ProcessQueued runs the tasklets queued at the time of the call, in post
// order. Tasklets posted meanwhile stay queued and the signaler is notified
// again so the main loop comes back for them.
func (s *Scheduler) ProcessQueued() {
	st := s.mask.Disable()
	last := s.tail
	s.mask.Restore(st)

	if last == nil {
		return
	}
	for {
		cur := s.pop()
		if cur == nil {
			return
		}
		cur.handler(cur)

		if cur == last {
			if s.ArePending() {
				s.signal.SignalPending()
			}
			return
		}
	}
}

// pop unlinks the head tasklet.
func (s *Scheduler) pop() *Tasklet {
	st := s.mask.Disable()
	defer s.mask.Restore(st)

	t := s.head
	if t == nil {
		return nil
	}
	s.head = t.next
	if s.head == nil {
		s.tail = nil
	}
	t.next = nil
	s.runs++
	return t
}

// Tasklet is a deferred handler bound to a scheduler.
type Tasklet struct {
	sched   *Scheduler
	handler Handler
	arg     any
	next    *Tasklet
}

// New creates a tasklet that runs handler on s. arg is available to the
// handler through Arg.
func New(s *Scheduler, handler Handler, arg any) *Tasklet {
	return &Tasklet{sched: s, handler: handler, arg: arg}
}

// Arg returns the value given to New.
func (t *Tasklet) Arg() any { return t.arg }

// Post queues t. It fails with types.ErrAlready when t is already queued.
func (t *Tasklet) Post() error {
	s := t.sched
	st := s.mask.Disable()
	if s.tail == t || t.next != nil {
		s.mask.Restore(st)
		return fmt.Errorf("tasklet: post: %w", types.ErrAlready)
	}
	wasEmpty := s.tail == nil
	if wasEmpty {
		s.head = t
	} else {
		s.tail.next = t
	}
	s.tail = t
	s.mask.Restore(st)

	if wasEmpty {
		s.signal.SignalPending()
	}
	return nil
}

// IsPosted reports whether t is waiting in its scheduler's queue.
func (t *Tasklet) IsPosted() bool {
	s := t.sched
	st := s.mask.Disable()
	defer s.mask.Restore(st)
	return s.tail == t || t.next != nil
}
