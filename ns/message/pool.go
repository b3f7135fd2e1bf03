package message

import (
	"fmt"
	"iter"

	"github.com/joshuapare/nskit/internal/buf"
	"github.com/joshuapare/nskit/internal/format"
	"github.com/joshuapare/nskit/internal/logger"
	"github.com/joshuapare/nskit/pkg/types"
)

// noBuffer terminates buffer chains, the free list and unlinked list slots.
const noBuffer = 0xffff

// maxTotal bounds Reserved+Length so both fit the 16-bit header fields.
const maxTotal = 0xffff

type kind uint8

const (
	kindFree kind = iota
	kindHead
	kindContinuation
)

func (k kind) String() string {
	switch k {
	case kindFree:
		return "free"
	case kindHead:
		return "head"
	case kindContinuation:
		return "continuation"
	default:
		return "unknown"
	}
}

// Pool is a fixed arena of message buffers.
type Pool struct {
	bufferSize   int
	dataSize     int
	headDataSize int

	arena []byte
	links []uint16  // chain successor or free-list successor
	kinds []kind    // role of each buffer
	msgs  []Message // header storage, meaningful for head buffers

	freeHead uint16
	numFree  int

	all ring // every queued message, on ListAll
}

// NewPool creates a pool of numBuffers buffers of bufferSize bytes each.
func NewPool(numBuffers, bufferSize int) (*Pool, error) {
	if numBuffers <= 0 || numBuffers > format.MaxNumBuffers {
		return nil, fmt.Errorf("message: %d buffers: %w", numBuffers, types.ErrInvalidArgs)
	}
	if bufferSize < format.MinBufferSize {
		return nil, fmt.Errorf("message: buffer size %d below %d: %w",
			bufferSize, format.MinBufferSize, types.ErrInvalidArgs)
	}
	arenaSize, ok := buf.SizeProduct(numBuffers, bufferSize, 1<<30)
	if !ok {
		return nil, fmt.Errorf("message: arena %dx%d: %w", numBuffers, bufferSize, types.ErrInvalidArgs)
	}

	p := &Pool{
		bufferSize:   bufferSize,
		dataSize:     format.DataSize(bufferSize),
		headDataSize: format.HeadDataSize(bufferSize),
		arena:        make([]byte, arenaSize),
		links:        make([]uint16, numBuffers),
		kinds:        make([]kind, numBuffers),
		msgs:         make([]Message, numBuffers),
	}
	p.Reset()
	return p, nil
}

// Reset returns every buffer to the free list. Outstanding messages and
// queues referencing them become invalid.
func (p *Pool) Reset() {
	n := len(p.links)
	for i := range n {
		next := uint16(i + 1)
		if i == n-1 {
			next = noBuffer
		}
		p.links[i] = next
		p.kinds[i] = kindFree
		p.msgs[i] = Message{pool: p, index: uint16(i)}
		p.msgs[i].unlinkAll()
	}
	p.freeHead = 0
	p.numFree = n
	p.all = ring{}
}

// NumBuffers returns the pool capacity in buffers.
func (p *Pool) NumBuffers() int { return len(p.links) }

// FreeBuffers returns the number of buffers on the free list.
func (p *Pool) FreeBuffers() int { return p.numFree }

// BufferSize returns the size of one buffer in bytes.
func (p *Pool) BufferSize() int { return p.bufferSize }

// DataSize returns the payload bytes of a continuation buffer.
func (p *Pool) DataSize() int { return p.dataSize }

// HeadDataSize returns the payload bytes of a head buffer.
func (p *Pool) HeadDataSize() int { return p.headDataSize }

// ReclaimBuffers reports whether n more buffers can be taken from the pool.
// A non-positive n always succeeds. Nothing is evicted: a message
// queued at a lower priority keeps its buffers.
func (p *Pool) ReclaimBuffers(n int) error {
	if n > p.numFree {
		return types.ErrNoBufs
	}
	return nil
}

// New creates an empty message with reserved bytes of header room.
func (p *Pool) New(typ Type, reserved int, priority Priority) (*Message, error) {
	if priority >= NumPriorities {
		return nil, fmt.Errorf("message: priority %d: %w", priority, types.ErrInvalidArgs)
	}
	if reserved < 0 || reserved > maxTotal {
		return nil, fmt.Errorf("message: reserved %d: %w", reserved, types.ErrInvalidArgs)
	}

	i, ok := p.take()
	if !ok {
		logger.Debug("message pool exhausted", "reserved", reserved, "priority", priority.String())
		return nil, fmt.Errorf("message: new: %w", types.ErrNoBufs)
	}
	p.kinds[i] = kindHead

	m := &p.msgs[i]
	*m = Message{pool: p, index: i}
	m.unlinkAll()
	m.typ = typ & typeMask
	m.reserved = reserved
	m.priority = priority

	if err := m.SetLength(0); err != nil {
		m.Free()
		return nil, err
	}
	return m, nil
}

// NewWithSettings creates a message using the link security and priority
// from settings. Nil settings mean link security on and PriorityNormal.
func (p *Pool) NewWithSettings(typ Type, reserved int, settings *Settings) (*Message, error) {
	s := DefaultSettings()
	if settings != nil {
		s = *settings
	}
	m, err := p.New(typ, reserved, s.Priority)
	if err != nil {
		return nil, err
	}
	m.linkSecurity = s.LinkSecurity
	return m, nil
}

// Info summarizes buffer usage and the all-messages ring.
func (p *Pool) Info() types.PoolInfo {
	info := types.PoolInfo{
		TotalBuffers: len(p.links),
		FreeBuffers:  p.numFree,
		BufferSize:   p.bufferSize,
	}
	for m := range p.AllMessages() {
		info.QueuedMsgs++
		info.QueuedBuffers += m.BufferCount()
	}
	return info
}

// AllMessages iterates every queued message of the pool, in priority order.
func (p *Pool) AllMessages() iter.Seq[*Message] {
	return func(yield func(*Message) bool) {
		for m := p.AllHead(); m != nil; m = m.NextInAll() {
			if !yield(m) {
				return
			}
		}
	}
}

// AllHead returns the first message of the all-messages ring.
func (p *Pool) AllHead() *Message { return p.all.head(ListAll) }

// AllTail returns the last message of the all-messages ring.
func (p *Pool) AllTail() *Message { return p.all.tail() }

func (p *Pool) msg(i uint16) *Message {
	if i == noBuffer {
		return nil
	}
	return &p.msgs[i]
}

// take pops a buffer off the free list.
func (p *Pool) take() (uint16, bool) {
	i := p.freeHead
	if i == noBuffer {
		return noBuffer, false
	}
	p.freeHead = p.links[i]
	p.links[i] = noBuffer
	p.numFree--
	return i, true
}

// release pushes the chain starting at i onto the free list.
func (p *Pool) release(i uint16) {
	for i != noBuffer {
		next := p.links[i]
		p.kinds[i] = kindFree
		p.links[i] = p.freeHead
		p.freeHead = i
		p.numFree++
		i = next
	}
}

// data returns the payload region of buffer i.
func (p *Pool) data(i uint16) []byte {
	base := int(i) * p.bufferSize
	if p.kinds[i] == kindHead {
		return p.arena[base+format.InfoSize : base+format.InfoSize+p.headDataSize]
	}
	return p.arena[base : base+p.dataSize]
}
