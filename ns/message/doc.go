// Package message provides the fixed-capacity message buffer pool, the FIFO
// message queue and the four-class priority queue.
//
// # Overview
//
// A Pool owns one byte arena cut into NumBuffers buffers of BufferSize bytes.
// A Message is a chain of buffers: a head buffer that also carries the
// message header, followed by zero or more continuation buffers. Free
// buffers sit on a singly-linked free list. Nothing is allocated after
// NewPool returns; when the arena is exhausted operations fail with
// types.ErrNoBufs and leave the message untouched.
//
//	head:         | header | payload (HeadDataSize) | link |
//	continuation: | payload (DataSize)             | link |
//
// Bytes [0, Reserved) of the chain are header room for Prepend; bytes
// [Reserved, Reserved+Length) are the message contents addressed by Read
// and Write.
//
// # Queues
//
// Every message carries two intrusive link pairs. ListInterface threads it
// on the Queue or PriorityQueue that owns it; ListAll threads it on the
// pool-wide ring of all queued messages, which is ordered by priority. A
// message is in at most one queue at a time.
//
// PriorityQueue keeps one tail per class. The classes share a single ring
// ordered NET, HIGH, NORMAL, LOW so that the head of the queue is always
// the oldest message of the most urgent non-empty class.
//
// # Usage
//
//	pool, err := message.NewPool(format.DefaultNumBuffers, format.DefaultBufferSize)
//	if err != nil {
//	    return err
//	}
//	m, err := pool.New(message.TypeIP6, 0, message.PriorityNormal)
//	if err != nil {
//	    return err // types.ErrNoBufs
//	}
//	if err := m.Append(payload); err != nil {
//	    m.Free()
//	    return err
//	}
//	var q message.Queue
//	_ = q.Enqueue(m)
//
// # Concurrency
//
// A Pool and its queues belong to the main loop and are not safe for
// concurrent use.
package message
