package message

import (
	"fmt"

	"github.com/joshuapare/nskit/internal/format"
	"github.com/joshuapare/nskit/pkg/types"
)

// Type identifies the layer a message belongs to. Only two bits are stored.
type Type uint8

const (
	TypeIP6 Type = iota
	Type6LoWPAN
	TypeSupervision
	TypeOther

	typeMask = 0x3
)

// SubType refines Type for MLE and joiner traffic. Only four bits are stored.
type SubType uint8

const (
	SubTypeNone SubType = iota
	SubTypeMLEAnnounce
	SubTypeMLEDiscoverRequest
	SubTypeMLEDiscoverResponse
	SubTypeJoinerEntrust
	SubTypeMPLRetransmission
	SubTypeMLEGeneral
	SubTypeJoinerFinalizeResponse
	SubTypeMLEChildUpdateRequest
	SubTypeMLEDataResponse
	SubTypeMLEChildIDRequest

	subTypeMask = 0xf
)

// Priority is the queueing class of a message.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityNet

	NumPriorities = 4
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityNet:
		return "net"
	default:
		return fmt.Sprintf("priority(%d)", uint8(p))
	}
}

// List selects one of the two intrusive link pairs of a message.
type List int

const (
	ListAll       List = iota // pool-wide ring of queued messages
	ListInterface             // the owning Queue or PriorityQueue
	numLists
)

// Settings are the creation options of NewWithSettings.
type Settings struct {
	LinkSecurity bool
	Priority     Priority
}

// DefaultSettings returns link security on at PriorityNormal.
func DefaultSettings() Settings {
	return Settings{LinkSecurity: true, Priority: PriorityNormal}
}

const childMaskBytes = 8

// MaxChildIndex is one past the highest index accepted by the child mask.
const MaxChildIndex = childMaskBytes * 8

// Message is a handle on the head buffer of a buffer chain. Handles are
// owned by the pool and must not be used after Free.
type Message struct {
	pool  *Pool
	index uint16

	next [numLists]uint16
	prev [numLists]uint16

	// At most one of these is set.
	queue  *Queue
	pqueue *PriorityQueue

	reserved int
	length   int
	offset   int

	datagramTag  uint16
	childMask    [childMaskBytes]byte
	timeout      uint8
	interfaceID  int8
	panIDChannel uint16

	typ          Type
	subType      SubType
	priority     Priority
	directTx     bool
	linkSecurity bool
	txSuccess    bool
}

func (m *Message) unlinkAll() {
	for l := range numLists {
		m.next[l] = noBuffer
		m.prev[l] = noBuffer
	}
}

// Free returns every buffer of the message to the pool. A queued message
// is dequeued first.
func (m *Message) Free() {
	switch {
	case m.pqueue != nil:
		_ = m.pqueue.Dequeue(m)
	case m.queue != nil:
		_ = m.queue.Dequeue(m)
	}
	p := m.pool
	i := m.index
	*m = Message{pool: p, index: i}
	m.unlinkAll()
	p.release(i)
}

// Pool returns the pool that owns the message.
func (m *Message) Pool() *Pool { return m.pool }

// Length returns the number of content bytes.
func (m *Message) Length() int { return m.length }

// Reserved returns the number of header bytes available to Prepend.
func (m *Message) Reserved() int { return m.reserved }

// SetLength grows or shrinks the message to n content bytes. Growing fails
// with types.ErrNoBufs, leaving the message unchanged, when the pool cannot
// supply the extra buffers. Content beyond the old length is unspecified.
func (m *Message) SetLength(n int) error {
	if n < 0 || m.reserved+n > maxTotal {
		return fmt.Errorf("message: length %d: %w", n, types.ErrInvalidArgs)
	}
	p := m.pool
	want := format.ChainBuffers(m.reserved+n, p.bufferSize)
	have := m.BufferCount() - 1
	if err := p.ReclaimBuffers(want - have); err != nil {
		return fmt.Errorf("message: set length %d: %w", n, err)
	}
	m.resize(m.reserved + n)
	m.length = n
	if m.offset > n {
		m.offset = n
	}
	return nil
}

// resize makes the chain exactly large enough for total bytes. The caller
// has checked that enough buffers are free.
func (m *Message) resize(total int) {
	p := m.pool
	cur := m.index
	capacity := p.headDataSize
	for capacity < total {
		if p.links[cur] == noBuffer {
			nb, _ := p.take()
			p.kinds[nb] = kindContinuation
			p.links[cur] = nb
		}
		cur = p.links[cur]
		capacity += p.dataSize
	}
	rest := p.links[cur]
	p.links[cur] = noBuffer
	p.release(rest)
}

// BufferCount returns the number of buffers in the chain, head included.
func (m *Message) BufferCount() int {
	n := 0
	for i := m.index; i != noBuffer; i = m.pool.links[i] {
		n++
	}
	return n
}

// Offset returns the current byte offset.
func (m *Message) Offset() int { return m.offset }

// SetOffset sets the byte offset. It must not exceed Length.
func (m *Message) SetOffset(offset int) error {
	if offset < 0 || offset > m.length {
		return fmt.Errorf("message: offset %d past length %d: %w", offset, m.length, types.ErrInvalidArgs)
	}
	m.offset = offset
	return nil
}

// MoveOffset adds delta to the byte offset.
func (m *Message) MoveOffset(delta int) error {
	return m.SetOffset(m.offset + delta)
}

func (m *Message) Type() Type { return m.typ }
func (m *Message) SetType(t Type) { m.typ = t & typeMask }
func (m *Message) SubType() SubType { return m.subType }
func (m *Message) SetSubType(s SubType) { m.subType = s & subTypeMask }

// IsSubTypeMLE reports whether the subtype is one of the MLE message kinds.
func (m *Message) IsSubTypeMLE() bool {
	switch m.subType {
	case SubTypeMLEAnnounce, SubTypeMLEDiscoverRequest, SubTypeMLEDiscoverResponse,
		SubTypeMLEGeneral, SubTypeMLEChildUpdateRequest, SubTypeMLEDataResponse,
		SubTypeMLEChildIDRequest:
		return true
	}
	return false
}

// Priority returns the queueing class.
func (m *Message) Priority() Priority { return m.priority }

// SetPriority changes the queueing class. A queued message is moved to the
// tail of its new class, in its queue and in the all-messages ring.
func (m *Message) SetPriority(priority Priority) error {
	if priority >= NumPriorities {
		return fmt.Errorf("message: priority %d: %w", priority, types.ErrInvalidArgs)
	}
	if !m.IsQueued() {
		m.priority = priority
		return nil
	}
	if m.priority == priority {
		return nil
	}

	if pq := m.pqueue; pq != nil {
		if err := pq.Dequeue(m); err != nil {
			return err
		}
		m.priority = priority
		return pq.Enqueue(m)
	}

	m.pool.all.remove(m, ListAll)
	m.priority = priority
	m.pool.all.add(m, ListAll)
	return nil
}

// IsQueued reports whether the message is in a Queue or PriorityQueue.
func (m *Message) IsQueued() bool {
	return m.queue != nil || m.pqueue != nil
}

func (m *Message) IsLinkSecurityEnabled() bool { return m.linkSecurity }
func (m *Message) SetLinkSecurityEnabled(enabled bool) { m.linkSecurity = enabled }

func (m *Message) SetDirectTransmission() { m.directTx = true }
func (m *Message) ClearDirectTransmission() { m.directTx = false }
func (m *Message) DirectTransmission() bool { return m.directTx }
func (m *Message) SetTxSuccess(success bool) { m.txSuccess = success }
func (m *Message) TxSuccess() bool { return m.txSuccess }
func (m *Message) DatagramTag() uint16 { return m.datagramTag }
func (m *Message) SetDatagramTag(tag uint16) { m.datagramTag = tag }
func (m *Message) Timeout() uint8 { return m.timeout }
func (m *Message) SetTimeout(seconds uint8) { m.timeout = seconds }
func (m *Message) InterfaceID() int8 { return m.interfaceID }
func (m *Message) SetInterfaceID(id int8) { m.interfaceID = id }

// PANID and Channel share storage; setting one overwrites the other.
func (m *Message) PANID() uint16 { return m.panIDChannel }
func (m *Message) SetPANID(panID uint16) { m.panIDChannel = panID }
func (m *Message) Channel() uint8 { return uint8(m.panIDChannel) }
func (m *Message) SetChannel(channel uint8) { m.panIDChannel = uint16(channel) }

// ChildMask reports whether child i still needs to receive the message.
func (m *Message) ChildMask(i int) bool {
	if i < 0 || i >= MaxChildIndex {
		return false
	}
	return m.childMask[i/8]&(0x80>>(i%8)) != 0
}

// SetChildMask marks child i as pending. Out-of-range indices are ignored.
func (m *Message) SetChildMask(i int) {
	if i < 0 || i >= MaxChildIndex {
		return
	}
	m.childMask[i/8] |= 0x80 >> (i % 8)
}

// ClearChildMask marks child i as served. Out-of-range indices are ignored.
func (m *Message) ClearChildMask(i int) {
	if i < 0 || i >= MaxChildIndex {
		return
	}
	m.childMask[i/8] &^= 0x80 >> (i % 8)
}

// IsChildPending reports whether any child bit is set.
func (m *Message) IsChildPending() bool {
	for _, b := range m.childMask {
		if b != 0 {
			return true
		}
	}
	return false
}

// Next returns the message after m in its queue, or nil when m is the last
// one or not queued.
func (m *Message) Next() *Message {
	var tail *Message
	switch {
	case m.pqueue != nil:
		tail = m.pqueue.Tail()
	case m.queue != nil:
		tail = m.queue.tail
	default:
		return nil
	}
	if m == tail {
		return nil
	}
	return m.pool.msg(m.next[ListInterface])
}

// NextInAll returns the message after m in the all-messages ring.
func (m *Message) NextInAll() *Message {
	if !m.IsQueued() || m == m.pool.all.tail() {
		return nil
	}
	return m.pool.msg(m.next[ListAll])
}

// PrevInAll returns the message before m in the all-messages ring.
func (m *Message) PrevInAll() *Message {
	if !m.IsQueued() || m == m.pool.all.head(ListAll) {
		return nil
	}
	return m.pool.msg(m.prev[ListAll])
}
