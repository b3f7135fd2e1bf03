// Package tasklet runs deferred handlers from the main loop.
//
// A Tasklet is posted at most once at a time. Posting onto an empty queue
// signals the platform so the main loop wakes up and calls ProcessQueued.
// A drain runs only the tasklets that were queued when it started: a
// handler that reposts itself runs again on the next drain, never within the
// current one, so a busy tasklet cannot starve the rest of the loop.
//
// Post may be called from any goroutine, including the alarm context. The
// queue is guarded by the irq mask shared with the timer schedulers; handlers
// always run with the mask released.
package tasklet
