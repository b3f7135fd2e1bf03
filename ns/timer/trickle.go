package timer

import (
	"fmt"
	"math/rand/v2"

	"github.com/joshuapare/nskit/pkg/types"
)

// TrickleMode selects how a Trickle timer places its transmissions.
type TrickleMode int

const (
	// ModeTrickle transmits at a random point in [I/2, I) and doubles I
	// after every interval, up to the maximum.
	ModeTrickle TrickleMode = iota
	// ModePlainTimer fires once per interval, each interval drawn anew
	// from [min, max].
	ModePlainTimer
	// ModeMPL transmits at a random point in [0, I) and doubles I like
	// ModeTrickle.
	ModeMPL
)

func (m TrickleMode) String() string {
	switch m {
	case ModeTrickle:
		return "trickle"
	case ModePlainTimer:
		return "plain"
	case ModeMPL:
		return "mpl"
	default:
		return "unknown"
	}
}

// Rand is the random source of a Trickle timer. *rand.Rand satisfies it.
type Rand interface {
	Uint32N(n uint32) uint32
}

type globalRand struct{}

func (globalRand) Uint32N(n uint32) uint32 { return rand.Uint32N(n) }

// TrickleHandler is called at a transmission point or at the end of an
// interval. Returning false stops the timer.
type TrickleHandler func(tt *Trickle) bool

// Trickle is a trickle timer in the shape of RFC 6206 running on a
// scheduler of milliseconds.
type Trickle struct {
	timer *Timer
	rng   Rand

	transmit TrickleHandler
	expired  TrickleHandler

	mode           TrickleMode
	intervalMin    uint32
	intervalMax    uint32
	interval       uint32
	timeInInterval uint32

	running    bool
	inTransmit bool
}

// NewTrickle creates a stopped trickle timer on s. transmit is required;
// expired may be nil. A nil rng uses the math/rand/v2 global source.
func NewTrickle(s *Scheduler, transmit, expired TrickleHandler, rng Rand) *Trickle {
	if rng == nil {
		rng = globalRand{}
	}
	tt := &Trickle{rng: rng, transmit: transmit, expired: expired}
	tt.timer = s.NewTimer(tt.handleTimer, tt)
	return tt
}

// Start begins trickling with intervals between intervalMin and
// intervalMax. It fails with types.ErrInvalidArgs when intervalMin is zero,
// intervalMax is below intervalMin or above MaxDT.
func (tt *Trickle) Start(intervalMin, intervalMax uint32, mode TrickleMode) error {
	if intervalMin == 0 || intervalMax < intervalMin || intervalMax > MaxDT {
		return fmt.Errorf("timer: trickle interval [%d, %d]: %w", intervalMin, intervalMax, types.ErrInvalidArgs)
	}
	if mode < ModeTrickle || mode > ModeMPL {
		return fmt.Errorf("timer: trickle mode %d: %w", mode, types.ErrInvalidArgs)
	}
	tt.intervalMin = intervalMin
	tt.intervalMax = intervalMax
	tt.mode = mode
	tt.running = true
	tt.interval = tt.randomInterval()
	return tt.startNewInterval()
}

// Stop halts the timer.
func (tt *Trickle) Stop() {
	tt.running = false
	tt.timer.Stop()
}

// IsRunning reports whether the timer is active.
func (tt *Trickle) IsRunning() bool { return tt.running }

// Interval returns the current interval length I.
func (tt *Trickle) Interval() uint32 { return tt.interval }

// Mode returns the mode given to Start.
func (tt *Trickle) Mode() TrickleMode { return tt.mode }

// IndicateInconsistent resets the interval to the minimum and starts a new
// one, unless it already is at the minimum. Plain timers ignore it.
func (tt *Trickle) IndicateInconsistent() {
	if !tt.running || tt.mode == ModePlainTimer || tt.interval == tt.intervalMin {
		return
	}
	tt.interval = tt.intervalMin
	_ = tt.startNewInterval()
}

func (tt *Trickle) randomInterval() uint32 {
	return tt.intervalMin + tt.rng.Uint32N(tt.intervalMax-tt.intervalMin+1)
}

func (tt *Trickle) startNewInterval() error {
	switch tt.mode {
	case ModePlainTimer:
		tt.timeInInterval = tt.interval
	case ModeTrickle:
		half := tt.interval / 2
		tt.timeInInterval = half + tt.rng.Uint32N(tt.interval-half)
	case ModeMPL:
		tt.timeInInterval = tt.rng.Uint32N(tt.interval)
	}
	tt.inTransmit = true
	return tt.timer.Start(tt.timeInInterval)
}

func (tt *Trickle) handleTimer(*Timer) {
	if !tt.running {
		return
	}
	if tt.inTransmit {
		tt.endOfTimeInInterval()
	} else {
		tt.endOfInterval()
	}
}

func (tt *Trickle) endOfTimeInInterval() {
	if !tt.transmit(tt) {
		tt.Stop()
		return
	}
	if !tt.running {
		return
	}
	if tt.mode == ModePlainTimer {
		tt.interval = tt.randomInterval()
		_ = tt.startNewInterval()
		return
	}
	tt.inTransmit = false
	_ = tt.timer.Start(tt.interval - tt.timeInInterval)
}

func (tt *Trickle) endOfInterval() {
	if tt.interval > tt.intervalMax/2 {
		tt.interval = tt.intervalMax
	} else {
		tt.interval *= 2
	}
	if tt.expired != nil && !tt.expired(tt) {
		tt.Stop()
		return
	}
	if tt.running {
		_ = tt.startNewInterval()
	}
}
