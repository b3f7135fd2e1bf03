package timer

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/nskit/pkg/types"
)

// fixedRand always draws the same offset into the range.
type fixedRand uint32

func (f fixedRand) Uint32N(n uint32) uint32 {
	if uint32(f) >= n {
		return n - 1
	}
	return uint32(f)
}

type trickleEvent struct {
	kind     string
	at       uint32
	interval uint32
}

func newTrickleRecorder(events *[]trickleEvent) (transmit, expired TrickleHandler) {
	record := func(kind string) TrickleHandler {
		return func(tt *Trickle) bool {
			*events = append(*events, trickleEvent{kind: kind, at: tt.timer.Scheduler().Now(), interval: tt.Interval()})
			return true
		}
	}
	return record("tx"), record("end")
}

func Test_TrickleRejectsBadIntervals(t *testing.T) {
	s, _ := newTestScheduler(t, 0)
	tt := NewTrickle(s, func(*Trickle) bool { return true }, nil, fixedRand(0))

	for _, tc := range []struct {
		name     string
		min, max uint32
		mode     TrickleMode
	}{
		{"zero min", 0, 10, ModeTrickle},
		{"max below min", 10, 5, ModeTrickle},
		{"max too large", 1, MaxDT + 1, ModeMPL},
		{"bad mode", 1, 10, TrickleMode(7)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tt.Start(tc.min, tc.max, tc.mode), types.ErrInvalidArgs)
			require.False(t, tt.IsRunning())
		})
	}
}

func Test_TrickleDoublesUpToMax(t *testing.T) {
	s, a := newTestScheduler(t, 0)
	var events []trickleEvent
	transmit, expired := newTrickleRecorder(&events)
	tt := NewTrickle(s, transmit, expired, fixedRand(0))

	require.NoError(t, tt.Start(100, 400, ModeTrickle))
	require.True(t, tt.IsRunning())
	require.Equal(t, ModeTrickle, tt.Mode())
	require.Equal(t, uint32(100), tt.Interval())

	a.advance(s, 1000)
	require.Equal(t, []trickleEvent{
		{"tx", 50, 100},
		{"end", 100, 200},
		{"tx", 200, 200},
		{"end", 300, 400},
		{"tx", 500, 400},
		{"end", 700, 400},
		{"tx", 900, 400},
	}, events)
}

func Test_TrickleInconsistencyResets(t *testing.T) {
	s, a := newTestScheduler(t, 0)
	var events []trickleEvent
	transmit, expired := newTrickleRecorder(&events)
	tt := NewTrickle(s, transmit, expired, fixedRand(0))

	require.NoError(t, tt.Start(100, 400, ModeTrickle))
	tt.IndicateInconsistent()
	require.Equal(t, uint32(50), tt.timer.FireTime(), "already at the minimum")

	a.advance(s, 350)
	require.Equal(t, uint32(400), tt.Interval())

	tt.IndicateInconsistent()
	require.Equal(t, uint32(100), tt.Interval())
	events = nil
	a.advance(s, 100)
	require.Equal(t, []trickleEvent{
		{"tx", 400, 100},
		{"end", 450, 200},
	}, events)
}

func Test_TrickleMPLTransmitsAtIntervalStart(t *testing.T) {
	s, a := newTestScheduler(t, 0)
	var events []trickleEvent
	transmit, expired := newTrickleRecorder(&events)
	tt := NewTrickle(s, transmit, expired, fixedRand(0))

	require.NoError(t, tt.Start(10, 40, ModeMPL))
	a.advance(s, 35)
	require.Equal(t, []trickleEvent{
		{"tx", 0, 10},
		{"end", 10, 20},
		{"tx", 10, 20},
		{"end", 30, 40},
		{"tx", 30, 40},
	}, events)
}

func Test_TricklePlainTimerPeriods(t *testing.T) {
	s, a := newTestScheduler(t, 0)
	var fires []uint32
	tt := NewTrickle(s, func(tt *Trickle) bool {
		fires = append(fires, s.Now())
		return true
	}, func(*Trickle) bool {
		t.Fatal("plain timers have no interval end")
		return false
	}, rand.New(rand.NewPCG(1, 2)))

	require.NoError(t, tt.Start(10, 20, ModePlainTimer))
	tt.IndicateInconsistent()
	a.advance(s, 1000)

	require.GreaterOrEqual(t, len(fires), 50)
	prev := uint32(0)
	for _, at := range fires {
		gap := at - prev
		require.GreaterOrEqual(t, gap, uint32(10))
		require.LessOrEqual(t, gap, uint32(20))
		prev = at
	}
}

func Test_TrickleHandlerFalseStops(t *testing.T) {
	s, a := newTestScheduler(t, 0)
	sent := 0
	tt := NewTrickle(s, func(*Trickle) bool {
		sent++
		return sent < 2
	}, nil, fixedRand(0))

	require.NoError(t, tt.Start(10, 10, ModeTrickle))
	a.advance(s, 100)
	require.Equal(t, 2, sent)
	require.False(t, tt.IsRunning())
	require.Equal(t, 0, s.Len())

	tt.IndicateInconsistent()
	require.Equal(t, 0, s.Len())
}

func Test_TrickleStop(t *testing.T) {
	s, a := newTestScheduler(t, 0)
	sent := 0
	tt := NewTrickle(s, func(*Trickle) bool { sent++; return true }, nil, nil)

	require.NoError(t, tt.Start(10, 80, ModeTrickle))
	tt.Stop()
	require.False(t, tt.IsRunning())
	a.advance(s, 500)
	require.Zero(t, sent)
}

func Test_TrickleModeString(t *testing.T) {
	require.Equal(t, "trickle", ModeTrickle.String())
	require.Equal(t, "plain", ModePlainTimer.String())
	require.Equal(t, "mpl", ModeMPL.String())
	require.Equal(t, "unknown", TrickleMode(9).String())
}
