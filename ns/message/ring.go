package message

// ring is a circular doubly-linked list of messages on one List, split into
// priority classes. Each class remembers its tail; the classes follow each
// other in the order NET, HIGH, NORMAL, LOW, so the tail of a class links to
// the head of the next lower non-empty class, and the overall tail (the
// lowest non-empty class) links back to the overall head.
type ring struct {
	tails [NumPriorities]*Message
}

// prevPriority returns the class that precedes p in ring order.
func prevPriority(p Priority) Priority {
	if p == NumPriorities-1 {
		return 0
	}
	return p + 1
}

// firstNonNilTail returns the tail of the first non-empty class scanning
// start, start+1, ... and wrapping around.
func (r *ring) firstNonNilTail(start Priority) *Message {
	p := start
	for {
		if r.tails[p] != nil {
			return r.tails[p]
		}
		p = prevPriority(p)
		if p == start {
			return nil
		}
	}
}

func (r *ring) empty() bool { return r.firstNonNilTail(0) == nil }

// tail returns the last message of the ring.
func (r *ring) tail() *Message { return r.firstNonNilTail(0) }

// head returns the first message of the ring.
func (r *ring) head(l List) *Message {
	t := r.firstNonNilTail(0)
	if t == nil {
		return nil
	}
	return t.pool.msg(t.next[l])
}

// headFor returns the oldest message of class p.
func (r *ring) headFor(p Priority, l List) *Message {
	if r.tails[p] == nil {
		return nil
	}
	prev := r.firstNonNilTail(prevPriority(p))
	return prev.pool.msg(prev.next[l])
}

// add links m at the tail of its class.
func (r *ring) add(m *Message, l List) {
	p := m.priority
	if tail := r.firstNonNilTail(p); tail != nil {
		next := m.pool.msg(tail.next[l])
		m.next[l] = next.index
		m.prev[l] = tail.index
		next.prev[l] = m.index
		tail.next[l] = m.index
	} else {
		m.next[l] = m.index
		m.prev[l] = m.index
	}
	r.tails[p] = m
}

// remove unlinks m, handing the tail of its class to its predecessor when
// that predecessor belongs to the same class.
func (r *ring) remove(m *Message, l List) {
	p := m.priority
	if r.tails[p] == m {
		prev := m.pool.msg(m.prev[l])
		if prev == m || prev.priority != p {
			prev = nil
		}
		r.tails[p] = prev
	}
	m.pool.msg(m.prev[l]).next[l] = m.next[l]
	m.pool.msg(m.next[l]).prev[l] = m.prev[l]
	m.next[l] = noBuffer
	m.prev[l] = noBuffer
}
