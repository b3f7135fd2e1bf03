package main

import (
	"github.com/joshuapare/nskit/ns/instance"
	"github.com/joshuapare/nskit/ns/platform/sim"
	"github.com/joshuapare/nskit/ns/timer"
)

// simRuntime is an instance on the simulated platform. Time only moves
// through advance, so every command using it is deterministic.
type simRuntime struct {
	*instance.Instance
	clock  *sim.Clock
	signal *sim.Signaler
}

func newSimRuntime(cfg instance.Config, opts ...instance.Option) (*simRuntime, error) {
	rt := &simRuntime{clock: sim.NewClock(0), signal: new(sim.Signaler)}
	micro := sim.NewClock(0)
	opts = append([]instance.Option{
		instance.WithAlarms(
			func(fired func()) timer.Alarm { return rt.clock.NewAlarm(fired) },
			func(fired func()) timer.Alarm { return micro.NewAlarm(fired) },
		),
		instance.WithSignaler(rt.signal),
	}, opts...)

	inst, err := instance.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	rt.Instance = inst
	return rt, nil
}

// advance moves the millisecond clock, running the main loop after every
// alarm and once at the end.
func (rt *simRuntime) advance(ms uint32) {
	rt.clock.AdvanceWith(ms, rt.Process)
	rt.Process()
}
