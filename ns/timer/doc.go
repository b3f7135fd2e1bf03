// Package timer provides software timers multiplexed onto one platform alarm
// per time base, and a trickle timer built on top of them.
//
// # Scheduling
//
// A Scheduler keeps its running timers in a list sorted by fire time and
// arms its Alarm for the earliest one. Times are 32-bit tick counters that
// wrap; two times compare correctly as long as they are less than MaxDT
// apart, which is why no timer may be started more than MaxDT ticks ahead.
//
// # Firing
//
// The alarm fires in its own context. AlarmFired only records that the
// scheduler is due; the main loop then calls ProcessIfDue (or Process),
// which removes every timer whose fire time has passed and runs its handler
// with the irq mask released. Timers started by those handlers, even with a
// zero delay, wait for the next pass.
//
// Stopping a timer removes it from the list. It does not undo work its
// handler already queued elsewhere, such as a posted tasklet.
//
// # Time bases
//
// Instances normally run a BaseMilli scheduler and, when the platform has a
// microsecond alarm, a BaseMicro one. Both behave identically; only the
// unit of the tick differs.
package timer
