// Package instance ties the runtime together: one heap, one message pool,
// one tasklet scheduler and the timer schedulers, all sharing an interrupt
// mask and a signal-pending hook.
//
// The instance owns no goroutines. Alarm callbacks only mark a timer
// scheduler due and signal the main loop; Process then runs due timers and
// queued tasklets in main-loop context.
//
//	inst, err := instance.New(instance.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer inst.Close()
//	return inst.Run(ctx)
//
// Tests and the selftest inject the simulated platform instead:
//
//	clock := sim.NewClock(0)
//	inst, err := instance.New(cfg,
//	    instance.WithAlarms(func(fired func()) timer.Alarm {
//	        return clock.NewAlarm(fired)
//	    }, nil),
//	    instance.WithSignaler(new(sim.Signaler)),
//	)
package instance
