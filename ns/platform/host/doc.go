// Package host runs the stack on a general-purpose OS.
//
// Alarm maps the one-shot platform alarm onto time.AfterFunc with ticks
// taken from the monotonic clock. Wakeup is the signal-pending primitive the
// main loop sleeps on: an eventfd on Linux, a non-blocking self-pipe on
// Darwin and a channel elsewhere.
//
//	w, err := host.NewWakeup()
//	...
//	defer w.Close()
//	for {
//	    inst.Process()
//	    if _, err := w.Wait(ctx, -1); err != nil {
//	        return err
//	    }
//	}
package host
