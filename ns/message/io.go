package message

import (
	"fmt"

	"github.com/joshuapare/nskit/internal/format"
	"github.com/joshuapare/nskit/pkg/types"
)

// copyChunk is the staging size used by CopyTo.
const copyChunk = 16

// walk calls fn on consecutive chain regions covering n bytes starting at
// chain position pos, where position 0 is the first reserved byte. It
// returns the number of bytes covered.
func (m *Message) walk(pos, n int, fn func(b []byte)) int {
	p := m.pool
	done := 0

	i := m.index
	if pos < p.headDataSize {
		chunk := min(p.headDataSize-pos, n)
		fn(p.data(i)[pos : pos+chunk])
		done += chunk
		pos = 0
	} else {
		pos -= p.headDataSize
	}
	i = p.links[i]

	for i != noBuffer && pos >= p.dataSize {
		pos -= p.dataSize
		i = p.links[i]
	}
	for i != noBuffer && done < n {
		chunk := min(p.dataSize-pos, n-done)
		fn(p.data(i)[pos : pos+chunk])
		done += chunk
		pos = 0
		i = p.links[i]
	}
	return done
}

// Read copies up to len(b) content bytes starting at offset into b and
// returns how many were copied. It returns 0 when offset is at or past
// the end.
func (m *Message) Read(offset int, b []byte) int {
	if offset < 0 || offset >= m.length {
		return 0
	}
	n := min(len(b), m.length-offset)
	return m.walk(m.reserved+offset, n, func(src []byte) {
		b = b[copy(b, src):]
	})
}

// Write copies b into the content starting at offset and returns how many
// bytes were written. It never extends the message; bytes past Length are
// dropped.
func (m *Message) Write(offset int, b []byte) int {
	if offset < 0 || offset > m.length {
		return 0
	}
	n := min(len(b), m.length-offset)
	return m.walk(m.reserved+offset, n, func(dst []byte) {
		b = b[copy(dst, b):]
	})
}

// Append grows the message by len(b) and writes b at the old end.
func (m *Message) Append(b []byte) error {
	old := m.length
	if err := m.SetLength(old + len(b)); err != nil {
		return err
	}
	m.Write(old, b)
	return nil
}

// Prepend writes b in front of the content, consuming reserved header
// room. When the room is too small, buffers are inserted right after the
// head to provide it. Offset moves with the content.
func (m *Message) Prepend(b []byte) error {
	n := len(b)
	p := m.pool
	if n > m.reserved {
		need := format.CeilDiv(n-m.reserved, p.dataSize)
		if need*p.dataSize+m.reserved+m.length > maxTotal {
			return fmt.Errorf("message: prepend %d: %w", n, types.ErrInvalidArgs)
		}
		if err := p.ReclaimBuffers(need); err != nil {
			return fmt.Errorf("message: prepend %d: %w", n, err)
		}
	}

	for n > m.reserved {
		nb, _ := p.take()
		p.kinds[nb] = kindContinuation
		p.links[nb] = p.links[m.index]
		p.links[m.index] = nb

		// Inserting dataSize bytes shifts every head byte in use by the
		// same amount, which lands it InfoSize bytes into the new buffer.
		if m.reserved < p.headDataSize {
			head := p.data(m.index)
			copy(p.data(nb)[m.reserved+format.InfoSize:], head[m.reserved:])
		}
		m.reserved += p.dataSize
	}

	m.reserved -= n
	m.length += n
	m.offset += n
	m.Write(0, b)
	return nil
}

// RemoveHeader drops n bytes from the front of the content, returning them
// to the reserved header room.
func (m *Message) RemoveHeader(n int) error {
	if n < 0 || n > m.length {
		return fmt.Errorf("message: remove header %d of %d: %w", n, m.length, types.ErrInvalidArgs)
	}
	m.reserved += n
	m.length -= n
	if m.offset > n {
		m.offset -= n
	} else {
		m.offset = 0
	}
	return nil
}

// CopyTo copies n content bytes from srcOffset of m to dstOffset of dst,
// which may be m itself when the ranges do not overlap. It returns the
// number of bytes copied, which is short when either message ends first.
func (m *Message) CopyTo(srcOffset, dstOffset, n int, dst *Message) int {
	var stage [copyChunk]byte
	copied := 0
	for copied < n {
		chunk := min(copyChunk, n-copied)
		got := m.Read(srcOffset+copied, stage[:chunk])
		if got == 0 {
			break
		}
		put := dst.Write(dstOffset+copied, stage[:got])
		copied += put
		if put < got {
			break
		}
	}
	return copied
}

// Clone returns a full copy of m.
func (m *Message) Clone() (*Message, error) {
	return m.CloneLength(m.length)
}

// CloneLength returns a new message holding the first n content bytes of
// m, with the same type, reserved room, priority, offset, interface id,
// subtype and link security.
func (m *Message) CloneLength(n int) (*Message, error) {
	n = min(max(n, 0), m.length)
	c, err := m.pool.New(m.typ, m.reserved, m.priority)
	if err != nil {
		return nil, err
	}
	if err := c.SetLength(n); err != nil {
		c.Free()
		return nil, err
	}
	m.CopyTo(0, 0, n, c)

	c.offset = min(m.offset, n)
	c.interfaceID = m.interfaceID
	c.subType = m.subType
	c.linkSecurity = m.linkSecurity
	return c, nil
}

// UpdateChecksum folds n content bytes starting at offset into the 16-bit
// one's complement sum. Bytes at even positions of the range are the high
// half of each 16-bit word.
func (m *Message) UpdateChecksum(sum uint16, offset, n int) uint16 {
	if offset < 0 || offset >= m.length {
		return sum
	}
	n = min(n, m.length-offset)
	pos := 0
	m.walk(m.reserved+offset, n, func(b []byte) {
		for _, c := range b {
			v := uint16(c)
			if pos&1 == 0 {
				v <<= 8
			}
			sum = addChecksum(sum, v)
			pos++
		}
	})
	return sum
}

func addChecksum(sum, v uint16) uint16 {
	r := sum + v
	if r < sum {
		r++
	}
	return r
}
