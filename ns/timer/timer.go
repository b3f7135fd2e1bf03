package timer

// Handler runs when a timer fires.
type Handler func(t *Timer)

// Timer is a one-shot timer owned by a Scheduler.
type Timer struct {
	sched    *Scheduler
	handler  Handler
	arg      any
	fireTime uint32
	next     *Timer // points to itself while stopped
	pass     uint64
}

// Arg returns the value given to NewTimer.
func (t *Timer) Arg() any { return t.arg }

// Scheduler returns the scheduler that owns t.
func (t *Timer) Scheduler() *Scheduler { return t.sched }

// Start (re)starts t to fire dt ticks from now.
func (t *Timer) Start(dt uint32) error {
	return t.sched.start(t, t.sched.alarm.Now(), dt)
}

// StartAt (re)starts t to fire dt ticks after t0.
func (t *Timer) StartAt(t0, dt uint32) error {
	return t.sched.start(t, t0, dt)
}

// Stop removes t from its scheduler. Stopping a stopped timer is a no-op.
func (t *Timer) Stop() {
	s := t.sched
	st := s.mask.Disable()
	s.remove(t)
	s.mask.Restore(st)
}

// IsRunning reports whether t is waiting to fire.
func (t *Timer) IsRunning() bool {
	s := t.sched
	st := s.mask.Disable()
	defer s.mask.Restore(st)
	return t.next != t
}

// FireTime returns the tick at which t fires or last fired.
func (t *Timer) FireTime() uint32 {
	s := t.sched
	st := s.mask.Disable()
	defer s.mask.Restore(st)
	return t.fireTime
}
