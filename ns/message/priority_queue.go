package message

import (
	"fmt"
	"iter"

	"github.com/joshuapare/nskit/pkg/types"
)

// PriorityQueue orders messages by class, FIFO within a class. The zero
// value is an empty queue.
type PriorityQueue struct {
	r ring
}

// Enqueue appends m at the tail of its class.
func (pq *PriorityQueue) Enqueue(m *Message) error {
	if m.IsQueued() {
		return fmt.Errorf("message: priority enqueue: %w", types.ErrAlready)
	}
	m.pqueue = pq
	pq.r.add(m, ListInterface)
	m.pool.all.add(m, ListAll)
	return nil
}

// Dequeue unlinks m from pq.
func (pq *PriorityQueue) Dequeue(m *Message) error {
	if m.pqueue != pq {
		return fmt.Errorf("message: priority dequeue: %w", types.ErrNotFound)
	}
	pq.r.remove(m, ListInterface)
	m.pool.all.remove(m, ListAll)
	m.pqueue = nil
	return nil
}

// Head returns the oldest message of the most urgent non-empty class.
func (pq *PriorityQueue) Head() *Message { return pq.r.head(ListInterface) }

// HeadForPriority returns the oldest message of class p, or nil.
func (pq *PriorityQueue) HeadForPriority(p Priority) *Message {
	if p >= NumPriorities {
		return nil
	}
	return pq.r.headFor(p, ListInterface)
}

// Tail returns the newest message of the least urgent non-empty class.
func (pq *PriorityQueue) Tail() *Message { return pq.r.tail() }

// Empty reports whether the queue holds no messages.
func (pq *PriorityQueue) Empty() bool { return pq.r.empty() }

// Messages iterates the queue in priority order.
func (pq *PriorityQueue) Messages() iter.Seq[*Message] {
	return func(yield func(*Message) bool) {
		for m := pq.Head(); m != nil; m = m.Next() {
			if !yield(m) {
				return
			}
		}
	}
}

// Info counts the messages and buffers in the queue.
func (pq *PriorityQueue) Info() types.QueueInfo {
	var info types.QueueInfo
	for m := range pq.Messages() {
		info.Messages++
		info.Buffers += m.BufferCount()
	}
	return info
}
