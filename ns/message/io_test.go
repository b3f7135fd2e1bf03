package message

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/nskit/internal/format"
	"github.com/joshuapare/nskit/pkg/types"
)

func newFilled(t *testing.T, p *Pool, reserved int, content []byte) *Message {
	t.Helper()
	m, err := p.New(TypeIP6, reserved, PriorityNormal)
	require.NoError(t, err)
	require.NoError(t, m.Append(content))
	return m
}

func readAll(m *Message) []byte {
	b := make([]byte, m.Length())
	n := m.Read(0, b)
	return b[:n]
}

func Test_ReadClamps(t *testing.T) {
	p := newTestPool(t)
	want := randomBytes(4, 200)
	m := newFilled(t, p, 0, want)

	b := make([]byte, 50)
	require.Equal(t, 0, m.Read(200, b))
	require.Equal(t, 0, m.Read(500, b))
	require.Equal(t, 0, m.Read(-1, b))
	require.Equal(t, 20, m.Read(180, b))
	require.Equal(t, want[180:], b[:20])

	// reads across the head/continuation boundary
	require.Equal(t, 50, m.Read(40, b))
	require.Equal(t, want[40:90], b)
}

func Test_WriteNeverExtends(t *testing.T) {
	p := newTestPool(t)
	m := newFilled(t, p, 0, make([]byte, 10))
	free := p.FreeBuffers()

	require.Equal(t, 4, m.Write(6, []byte{1, 2, 3, 4, 5, 6}))
	require.Equal(t, 10, m.Length())
	require.Equal(t, free, p.FreeBuffers())
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 2, 3, 4}, readAll(m))
	require.Equal(t, 0, m.Write(11, []byte{1}))
}

func Test_AppendAcrossBuffers(t *testing.T) {
	p := newTestPool(t)
	want := randomBytes(5, 700)
	m, err := p.New(TypeIP6, 0, PriorityNormal)
	require.NoError(t, err)

	for off := 0; off < len(want); off += 33 {
		end := min(off+33, len(want))
		require.NoError(t, m.Append(want[off:end]))
	}
	require.Equal(t, len(want), m.Length())
	require.Equal(t, 1+format.ChainBuffers(len(want), p.BufferSize()), m.BufferCount())
	require.Equal(t, want, readAll(m))

	big := make([]byte, format.DefaultNumBuffers*p.DataSize())
	require.ErrorIs(t, m.Append(big), types.ErrNoBufs)
	require.Equal(t, want, readAll(m))
}

func Test_CopyTo(t *testing.T) {
	p := newTestPool(t)
	ref := randomBytes(6, 128)
	src := newFilled(t, p, 0, ref)

	dst, err := p.New(TypeIP6, 0, PriorityNormal)
	require.NoError(t, err)
	require.NoError(t, dst.SetLength(src.Length()))

	require.Equal(t, len(ref), src.CopyTo(0, 0, src.Length(), dst))
	require.Equal(t, ref, readAll(dst))

	// shifted copy is cut at the end of the destination
	require.Equal(t, 28, src.CopyTo(0, 100, 64, dst))
	require.Equal(t, ref[:28], readAll(dst)[100:])

	// short source
	require.Equal(t, 8, src.CopyTo(120, 0, 64, dst))

	dst.Free()
	src.Free()
	require.Equal(t, format.DefaultNumBuffers, p.FreeBuffers())
}

func Test_Clone(t *testing.T) {
	p := newTestPool(t)
	ref := randomBytes(7, 128)
	src := newFilled(t, p, 16, ref)
	require.NoError(t, src.SetOffset(40))
	src.SetInterfaceID(2)
	src.SetSubType(SubTypeMLEGeneral)
	src.SetLinkSecurityEnabled(true)
	require.NoError(t, src.SetPriority(PriorityHigh))

	c, err := src.Clone()
	require.NoError(t, err)
	require.NotSame(t, src, c)
	require.Equal(t, ref, readAll(c))
	require.Equal(t, 16, c.Reserved())
	require.Equal(t, 40, c.Offset())
	require.Equal(t, int8(2), c.InterfaceID())
	require.Equal(t, SubTypeMLEGeneral, c.SubType())
	require.True(t, c.IsLinkSecurityEnabled())
	require.Equal(t, PriorityHigh, c.Priority())

	short, err := src.CloneLength(30)
	require.NoError(t, err)
	require.Equal(t, ref[:30], readAll(short))
	require.Equal(t, 30, short.Offset())

	src.Free()
	c.Free()
	short.Free()
	require.Equal(t, format.DefaultNumBuffers, p.FreeBuffers())
}

func Test_CloneFailsWhenPoolIsShort(t *testing.T) {
	p := newTestPool(t)
	// 60 + 30*124 bytes occupy 31 buffers, leaving 13
	src := newFilled(t, p, 0, make([]byte, p.HeadDataSize()+30*p.DataSize()))
	free := p.FreeBuffers()

	_, err := src.Clone()
	require.ErrorIs(t, err, types.ErrNoBufs)
	require.Equal(t, free, p.FreeBuffers())
}

func Test_PrependWithinReserved(t *testing.T) {
	p := newTestPool(t)
	payload := randomBytes(8, 40)
	m := newFilled(t, p, 16, payload)
	require.NoError(t, m.SetOffset(4))
	buffers := m.BufferCount()

	header := []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03, 0x04}
	require.NoError(t, m.Prepend(header))
	require.Equal(t, 8, m.Reserved())
	require.Equal(t, 48, m.Length())
	require.Equal(t, 12, m.Offset())
	require.Equal(t, buffers, m.BufferCount())
	require.Equal(t, append(append([]byte{}, header...), payload...), readAll(m))

	require.NoError(t, m.RemoveHeader(len(header)))
	require.Equal(t, 16, m.Reserved())
	require.Equal(t, payload, readAll(m))
	require.Equal(t, 4, m.Offset())
}

func Test_PrependGrowsChain(t *testing.T) {
	tests := []struct {
		name     string
		reserved int
		content  int
		header   int
	}{
		{"head only", 0, 10, 20},
		{"content spans head", 0, 100, 20},
		{"partial room", 12, 100, 30},
		{"two buffers", 0, 300, 200},
		{"room equals header", 30, 70, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPool(t)
			content := randomBytes(9, tt.content)
			header := randomBytes(10, tt.header)
			m := newFilled(t, p, tt.reserved, content)

			require.NoError(t, m.Prepend(header))
			require.Equal(t, tt.content+tt.header, m.Length())
			require.Equal(t, append(append([]byte{}, header...), content...), readAll(m))
			require.GreaterOrEqual(t, m.BufferCount()-1,
				format.ChainBuffers(m.Reserved()+m.Length(), p.BufferSize()))
			require.NoError(t, p.Check(nil))

			require.NoError(t, m.RemoveHeader(tt.header))
			require.Equal(t, content, readAll(m))

			m.Free()
			require.Equal(t, format.DefaultNumBuffers, p.FreeBuffers())
		})
	}
}

func Test_PrependFailsWithoutMutation(t *testing.T) {
	p := newTestPool(t)
	content := randomBytes(11, 50)
	m := newFilled(t, p, 0, content)
	hog := newFilled(t, p, 0, make([]byte, p.HeadDataSize()+42*p.DataSize()))
	require.Equal(t, 0, p.FreeBuffers())

	require.ErrorIs(t, m.Prepend([]byte{1}), types.ErrNoBufs)
	require.Equal(t, 0, m.Reserved())
	require.Equal(t, content, readAll(m))

	hog.Free()
	require.NoError(t, m.Prepend([]byte{1}))
}

func Test_RemoveHeaderBounds(t *testing.T) {
	p := newTestPool(t)
	m := newFilled(t, p, 0, []byte("abcdef"))
	require.NoError(t, m.SetOffset(2))

	require.ErrorIs(t, m.RemoveHeader(7), types.ErrInvalidArgs)
	require.NoError(t, m.RemoveHeader(4))
	require.Equal(t, []byte("ef"), readAll(m))
	require.Equal(t, 0, m.Offset())
	require.Equal(t, 4, m.Reserved())
}

// referenceChecksum folds bytes the way the IPv6 pseudo-header sum does.
func referenceChecksum(sum uint16, b []byte) uint16 {
	for i := 0; i < len(b); i += 2 {
		w := uint32(b[i]) << 8
		if i+1 < len(b) {
			w |= uint32(b[i+1])
		}
		s := uint32(sum) + w
		sum = uint16(s + s>>16)
	}
	return sum
}

func Test_UpdateChecksum(t *testing.T) {
	p := newTestPool(t)

	m := newFilled(t, p, 0, []byte{0x45, 0x00, 0x00, 0x1c})
	require.Equal(t, uint16(0x451c), m.UpdateChecksum(0, 0, 4))

	carry := newFilled(t, p, 0, []byte{0xff, 0xff, 0x00, 0x01})
	require.Equal(t, uint16(0x0001), carry.UpdateChecksum(0, 0, 4))

	data := randomBytes(12, 500)
	big := newFilled(t, p, 7, data)
	for _, tc := range []struct{ off, n int }{
		{0, 500}, {1, 499}, {59, 130}, {61, 3}, {200, 1000},
	} {
		end := min(tc.off+tc.n, len(data))
		require.Equal(t, referenceChecksum(0x1234, data[tc.off:end]),
			big.UpdateChecksum(0x1234, tc.off, tc.n), "offset %d length %d", tc.off, tc.n)
	}
	require.Equal(t, uint16(0x1234), big.UpdateChecksum(0x1234, 500, 4))
}
