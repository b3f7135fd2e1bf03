package timer

// Alarm is the one-shot platform alarm behind a Scheduler.
//
// StartAt arms the alarm to fire dt ticks after t0, replacing any earlier
// arming. Stop disarms it. Now returns the free-running tick counter.
type Alarm interface {
	StartAt(t0, dt uint32)
	Stop()
	Now() uint32
}

// Base names the tick unit of a scheduler.
type Base int

const (
	BaseMilli Base = iota
	BaseMicro
)

func (b Base) String() string {
	switch b {
	case BaseMilli:
		return "milli"
	case BaseMicro:
		return "micro"
	default:
		return "unknown"
	}
}

// MaxDT is the largest delay a timer accepts.
const MaxDT = 1<<31 - 1

// isStrictlyBefore reports whether a precedes b on the wrapping tick
// counter.
func isStrictlyBefore(a, b uint32) bool {
	return (a-b)&(1<<31) != 0
}

// firesBefore reports whether fire time a is due before fire time b, given
// the current time now. When exactly one of them already passed, it is the
// earlier one; otherwise both lie within MaxDT of each other and compare
// directly.
func firesBefore(a, b, now uint32) bool {
	aPast := isStrictlyBefore(a, now)
	if isStrictlyBefore(b, now) != aPast {
		return aPast
	}
	return isStrictlyBefore(a, b)
}
