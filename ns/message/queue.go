package message

import (
	"fmt"
	"iter"

	"github.com/joshuapare/nskit/pkg/types"
)

// Position selects where Enqueue links a message.
type Position int

const (
	PositionHead Position = iota
	PositionTail
)

// Queue is a FIFO of messages. The zero value is an empty queue.
//
// Only the tail is stored; the list is circular, so the head is the
// successor of the tail.
type Queue struct {
	tail *Message
}

// Enqueue appends m at the tail.
func (q *Queue) Enqueue(m *Message) error {
	return q.enqueue(m, PositionTail)
}

// EnqueueAtHead inserts m in front of the current head.
func (q *Queue) EnqueueAtHead(m *Message) error {
	return q.enqueue(m, PositionHead)
}

func (q *Queue) enqueue(m *Message, pos Position) error {
	if m.IsQueued() {
		return fmt.Errorf("message: enqueue: %w", types.ErrAlready)
	}
	m.queue = q

	const l = ListInterface
	if q.tail == nil {
		m.next[l] = m.index
		m.prev[l] = m.index
		q.tail = m
	} else {
		head := m.pool.msg(q.tail.next[l])
		m.next[l] = head.index
		m.prev[l] = q.tail.index
		head.prev[l] = m.index
		q.tail.next[l] = m.index
		if pos == PositionTail {
			q.tail = m
		}
	}

	m.pool.all.add(m, ListAll)
	return nil
}

// Dequeue unlinks m from q.
func (q *Queue) Dequeue(m *Message) error {
	if m.queue != q {
		return fmt.Errorf("message: dequeue: %w", types.ErrNotFound)
	}

	const l = ListInterface
	if m == q.tail {
		q.tail = m.pool.msg(m.prev[l])
		if q.tail == m {
			q.tail = nil
		}
	}
	m.pool.msg(m.prev[l]).next[l] = m.next[l]
	m.pool.msg(m.next[l]).prev[l] = m.prev[l]
	m.next[l] = noBuffer
	m.prev[l] = noBuffer

	m.pool.all.remove(m, ListAll)
	m.queue = nil
	return nil
}

// Head returns the oldest message, or nil when the queue is empty.
func (q *Queue) Head() *Message {
	if q.tail == nil {
		return nil
	}
	return q.tail.pool.msg(q.tail.next[ListInterface])
}

// Tail returns the newest message, or nil when the queue is empty.
func (q *Queue) Tail() *Message { return q.tail }

// Next returns the message after m, or nil when m is the tail or belongs
// to another queue.
func (q *Queue) Next(m *Message) *Message {
	if m == nil || m.queue != q {
		return nil
	}
	return m.Next()
}

// Messages iterates the queue from head to tail.
func (q *Queue) Messages() iter.Seq[*Message] {
	return func(yield func(*Message) bool) {
		for m := q.Head(); m != nil; m = m.Next() {
			if !yield(m) {
				return
			}
		}
	}
}

// Info counts the messages and buffers in the queue.
func (q *Queue) Info() types.QueueInfo {
	var info types.QueueInfo
	for m := range q.Messages() {
		info.Messages++
		info.Buffers += m.BufferCount()
	}
	return info
}
