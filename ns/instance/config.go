package instance

import (
	"context"
	"fmt"
	"time"

	"github.com/joshuapare/nskit/internal/format"
	"github.com/joshuapare/nskit/ns/tasklet"
	"github.com/joshuapare/nskit/ns/timer"
	"github.com/joshuapare/nskit/pkg/types"
)

// Config sizes the arenas of an instance.
type Config struct {
	// NumBuffers is the number of message buffers in the pool.
	// Default: 44
	NumBuffers int

	// BufferSize is the size of one message buffer in bytes. It must leave
	// room for the message header and the chain link.
	// Default: 128
	BufferSize int

	// HeapSize is the heap arena size in bytes: a multiple of 8 within
	// [64, 65536].
	// Default: 24576
	HeapSize int

	// EnableMicroTimer adds a microsecond timer scheduler next to the
	// millisecond one.
	EnableMicroTimer bool
}

// DefaultConfig returns the stock geometry.
func DefaultConfig() Config {
	return Config{
		NumBuffers: format.DefaultNumBuffers,
		BufferSize: format.DefaultBufferSize,
		HeapSize:   format.DefaultHeapSize,
	}
}

// Validate reports the first out-of-range field as types.ErrInvalidArgs.
func (c Config) Validate() error {
	switch {
	case c.NumBuffers <= 0 || c.NumBuffers > format.MaxNumBuffers:
		return fmt.Errorf("instance: NumBuffers %d outside [1, %d]: %w",
			c.NumBuffers, format.MaxNumBuffers, types.ErrInvalidArgs)
	case c.BufferSize < format.MinBufferSize:
		return fmt.Errorf("instance: BufferSize %d below %d: %w",
			c.BufferSize, format.MinBufferSize, types.ErrInvalidArgs)
	case c.HeapSize < format.MinHeapSize || c.HeapSize > format.MaxHeapSize:
		return fmt.Errorf("instance: HeapSize %d outside [%d, %d]: %w",
			c.HeapSize, format.MinHeapSize, format.MaxHeapSize, types.ErrInvalidArgs)
	case c.HeapSize%format.HeapAlign != 0:
		return fmt.Errorf("instance: HeapSize %d not a multiple of %d: %w",
			c.HeapSize, format.HeapAlign, types.ErrInvalidArgs)
	}
	return nil
}

// AlarmFactory builds the platform alarm of one time base. fired must be
// called whenever the alarm expires.
type AlarmFactory func(fired func()) timer.Alarm

// Waiter is a signaler the main loop can sleep on.
type Waiter interface {
	tasklet.Signaler
	Wait(ctx context.Context, timeout time.Duration) (bool, error)
}

// Option customizes the platform under an instance.
type Option func(*options)

type options struct {
	milli  AlarmFactory
	micro  AlarmFactory
	signal tasklet.Signaler
	rng    timer.Rand
}

// WithAlarms replaces the host alarms. A nil micro factory keeps the host
// alarm for the microsecond base.
func WithAlarms(milli, micro AlarmFactory) Option {
	return func(o *options) {
		if milli != nil {
			o.milli = milli
		}
		if micro != nil {
			o.micro = micro
		}
	}
}

// WithSignaler replaces the host wake-up. Run requires the signaler to
// implement Waiter.
func WithSignaler(s tasklet.Signaler) Option {
	return func(o *options) { o.signal = s }
}

// WithRand sets the random source of trickle timers made by the instance.
func WithRand(r timer.Rand) Option {
	return func(o *options) { o.rng = r }
}
