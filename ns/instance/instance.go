package instance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/joshuapare/nskit/internal/irq"
	"github.com/joshuapare/nskit/internal/logger"
	"github.com/joshuapare/nskit/ns/crypto"
	"github.com/joshuapare/nskit/ns/heap"
	"github.com/joshuapare/nskit/ns/message"
	"github.com/joshuapare/nskit/ns/platform/host"
	"github.com/joshuapare/nskit/ns/tasklet"
	"github.com/joshuapare/nskit/ns/timer"
	"github.com/joshuapare/nskit/pkg/types"
)

// Instance is one network-stack runtime.
type Instance struct {
	cfg  Config
	log  *slog.Logger
	mask *irq.Mask

	heap     *heap.Heap
	pool     *message.Pool
	tasklets *tasklet.Scheduler
	milli    *timer.Scheduler
	micro    *timer.Scheduler
	crypto   *crypto.Engine

	signal tasklet.Signaler
	wakeup *host.Wakeup // owned; nil when a signaler was injected
	rng    timer.Rand

	initialized atomic.Bool
}

// New builds an instance from cfg. Without options it runs on the host
// platform.
func New(cfg Config, opts ...Option) (*Instance, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	inst := &Instance{
		cfg:  cfg,
		log:  logger.For("instance"),
		mask: new(irq.Mask),
		rng:  o.rng,
	}

	h, err := heap.New(cfg.HeapSize)
	if err != nil {
		return nil, fmt.Errorf("instance: %w: %w", types.ErrInvalidArgs, err)
	}
	inst.heap = h
	inst.crypto = crypto.New(h)

	if inst.pool, err = message.NewPool(cfg.NumBuffers, cfg.BufferSize); err != nil {
		return nil, err
	}

	inst.signal = o.signal
	if inst.signal == nil {
		if inst.wakeup, err = host.NewWakeup(); err != nil {
			return nil, err
		}
		inst.signal = inst.wakeup
	}
	inst.tasklets = tasklet.NewScheduler(inst.mask, inst.signal)

	milli := o.milli
	if milli == nil {
		milli = hostAlarm(host.Milli)
	}
	inst.milli = inst.newTimerScheduler(timer.BaseMilli, milli)
	if cfg.EnableMicroTimer {
		micro := o.micro
		if micro == nil {
			micro = hostAlarm(host.Micro)
		}
		inst.micro = inst.newTimerScheduler(timer.BaseMicro, micro)
	}

	inst.initialized.Store(true)
	inst.log.Info("instance up",
		"buffers", cfg.NumBuffers, "buffer_size", cfg.BufferSize,
		"heap", cfg.HeapSize, "micro_timer", cfg.EnableMicroTimer)
	return inst, nil
}

func hostAlarm(unit time.Duration) AlarmFactory {
	return func(fired func()) timer.Alarm { return host.NewAlarm(unit, fired) }
}

func (inst *Instance) newTimerScheduler(base timer.Base, factory AlarmFactory) *timer.Scheduler {
	var s *timer.Scheduler
	alarm := factory(func() {
		// alarms may outlive Close
		if !inst.initialized.Load() {
			return
		}
		s.AlarmFired()
		inst.signal.SignalPending()
	})
	s = timer.NewScheduler(base, alarm, inst.mask)
	return s
}

// Config returns the configuration the instance was built with.
func (inst *Instance) Config() Config { return inst.cfg }

// Heap returns the instance heap.
func (inst *Instance) Heap() *heap.Heap { return inst.heap }

// Crypto returns the crypto engine drawing scratch memory from the heap.
func (inst *Instance) Crypto() *crypto.Engine { return inst.crypto }

// Pool returns the message buffer pool.
func (inst *Instance) Pool() *message.Pool { return inst.pool }

// Tasklets returns the tasklet scheduler.
func (inst *Instance) Tasklets() *tasklet.Scheduler { return inst.tasklets }

// MilliTimers returns the millisecond timer scheduler.
func (inst *Instance) MilliTimers() *timer.Scheduler { return inst.milli }

// MicroTimers returns the microsecond timer scheduler, or nil when the
// instance was built without one.
func (inst *Instance) MicroTimers() *timer.Scheduler { return inst.micro }

// NewTrickle creates a trickle timer on the millisecond scheduler drawing
// from the instance random source.
func (inst *Instance) NewTrickle(transmit, expired timer.TrickleHandler) *timer.Trickle {
	return timer.NewTrickle(inst.milli, transmit, expired, inst.rng)
}

// IsInitialized reports whether the instance is up.
func (inst *Instance) IsInitialized() bool { return inst.initialized.Load() }

// Process runs due timers and then the tasklets queued so far, once.
func (inst *Instance) Process() {
	inst.milli.ProcessIfDue()
	if inst.micro != nil {
		inst.micro.ProcessIfDue()
	}
	inst.tasklets.ProcessQueued()
}

// Run processes work until ctx is done or the instance is closed, sleeping
// on the signaler between rounds. The signaler must implement Waiter. Ending
// through ctx is not an error.
func (inst *Instance) Run(ctx context.Context) error {
	w, ok := inst.signal.(Waiter)
	if !ok {
		return fmt.Errorf("instance: signaler %T cannot wait: %w", inst.signal, types.ErrInvalidArgs)
	}
	inst.log.Info("main loop started")
	defer inst.log.Info("main loop stopped")

	for inst.IsInitialized() {
		inst.Process()
		timeout := time.Duration(-1)
		if inst.tasklets.ArePending() || inst.milli.IsDue() || (inst.micro != nil && inst.micro.IsDue()) {
			timeout = 0
		}
		if _, err := w.Wait(ctx, timeout); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			if errors.Is(err, host.ErrClosed) && !inst.IsInitialized() {
				return nil
			}
			return err
		}
	}
	return nil
}

// Close shuts the instance down. Alarm callbacks arriving afterwards are
// ignored.
func (inst *Instance) Close() error {
	if !inst.initialized.Swap(false) {
		return nil
	}
	inst.log.Info("instance down")
	if inst.wakeup != nil {
		return inst.wakeup.Close()
	}
	return nil
}
