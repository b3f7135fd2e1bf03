package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/nskit/internal/format"
)

func newTestHeap(t *testing.T) *Heap {
	t.Helper()
	h, err := New(format.DefaultHeapSize)
	require.NoError(t, err)
	require.True(t, h.IsClean())
	return h
}

func Test_NewRejectsBadSizes(t *testing.T) {
	for _, size := range []int{0, 8, 63, 100, format.MaxHeapSize + 8} {
		_, err := New(size)
		require.ErrorIs(t, err, ErrBadSize, "size %d", size)
	}

	h, err := New(format.MaxHeapSize)
	require.NoError(t, err)
	require.Equal(t, format.MaxHeapSize-20, h.Capacity())
}

func Test_Layout(t *testing.T) {
	h := newTestHeap(t)

	require.Equal(t, format.DefaultHeapSize-20, h.Capacity())
	require.Equal(t, h.Capacity(), h.FreeSize())
	require.Equal(t, superSize, h.size(superOff))
	require.Equal(t, firstOff, h.next(superOff))
	require.Equal(t, h.guardOff, h.next(firstOff))
	require.Equal(t, h.guardOff, h.right(firstOff))
	require.False(t, h.isFree(h.guardOff))
}

func Test_CallocZeroSize(t *testing.T) {
	h := newTestHeap(t)
	total := h.FreeSize()

	p := h.Calloc(1, 0)
	require.Nil(t, p)
	require.Equal(t, total, h.FreeSize())
	h.Free(p)

	p = h.Calloc(0, 1)
	require.Nil(t, p)
	require.Equal(t, total, h.FreeSize())
	h.Free(p)

	require.True(t, h.IsClean())
}

// Test_AllocateSingle allocates and frees every size up to capacity.
func Test_AllocateSingle(t *testing.T) {
	h := newTestHeap(t)
	total := h.FreeSize()

	for size := 1; size <= h.Capacity(); size++ {
		p := h.Calloc(1, size)
		require.NotNil(t, p, "size %d", size)
		require.Len(t, p, size)
		require.False(t, h.IsClean())
		require.LessOrEqual(t, h.FreeSize()+size, total)

		for i := range p {
			p[i] = 0xff
		}
		h.Free(p)

		require.True(t, h.IsClean(), "size %d", size)
		require.Equal(t, total, h.FreeSize(), "size %d", size)
	}
}

func Test_CallocTooLarge(t *testing.T) {
	h := newTestHeap(t)

	require.Nil(t, h.Calloc(1, h.Capacity()+1))
	require.Nil(t, h.Calloc(2, h.Capacity()))
	require.Nil(t, h.Calloc(-1, 4))
	require.True(t, h.IsClean())
	require.Equal(t, 3, h.Counters().Failures)
}

func Test_CallocZeroesPayload(t *testing.T) {
	h := newTestHeap(t)

	p := h.Calloc(1, 100)
	require.Len(t, p, 100)
	require.Equal(t, 100, cap(p))
	for i := range p {
		p[i] = 0xff
	}
	h.Free(p)

	q := h.Calloc(10, 10)
	require.Len(t, q, 100)
	for _, b := range q {
		require.Zero(t, b)
	}
	h.Free(q)
	require.True(t, h.IsClean())
}

func Test_PayloadAlignment(t *testing.T) {
	h := newTestHeap(t)

	var live [][]byte
	for _, n := range []int{1, 5, 13, 64, 100, 3} {
		p := h.Calloc(1, n)
		require.NotNil(t, p)
		off, err := h.blockOf(p)
		require.NoError(t, err)
		require.Zero(t, (off+2)%format.HeapAlign, "payload for %d not aligned", n)
		live = append(live, p)
	}
	for _, p := range live {
		h.Free(p)
	}
	require.True(t, h.IsClean())
}

func Test_RoundTripRestoresClean(t *testing.T) {
	for _, n := range []int{1, 4, 5, 100, 1000, 4096} {
		h := newTestHeap(t)
		p := h.Calloc(1, n)
		require.NotNil(t, p)
		h.Free(p)
		require.True(t, h.IsClean(), "n=%d", n)
		require.Equal(t, h.Capacity(), h.FreeSize())
	}
}

func Test_FreeIgnoresForeignAndDoubleFree(t *testing.T) {
	h := newTestHeap(t)

	a := h.Calloc(1, 32)
	b := h.Calloc(1, 32)
	free := h.FreeSize()

	h.Free(make([]byte, 32))
	require.Equal(t, free, h.FreeSize())

	// Interior of a live block.
	h.Free(a[8:])
	require.Equal(t, free, h.FreeSize())

	h.Free(a)
	afterA := h.FreeSize()
	h.Free(a)
	require.Equal(t, afterA, h.FreeSize())

	h.Free(b)
	require.True(t, h.IsClean())
	require.NoError(t, h.Check(nil))
}

func Test_Info(t *testing.T) {
	h := newTestHeap(t)

	p := h.Calloc(1, 100)
	info := h.Info()
	require.Equal(t, h.Capacity(), info.Capacity)
	require.Equal(t, 1, info.AllocatedBlocks)
	require.Equal(t, 100, info.AllocatedBytes)
	require.Equal(t, 1, info.FreeBlocks)
	require.Equal(t, h.Capacity()-100-overhead, info.LargestFree)
	require.Equal(t, info.LargestFree, info.FreeSize)
	require.Zero(t, info.Fragmentation())

	h.Free(p)
	info = h.Info()
	require.Zero(t, info.AllocatedBlocks)
	require.Equal(t, h.Capacity(), info.LargestFree)
}

func Test_InitResets(t *testing.T) {
	h := newTestHeap(t)
	for i := 0; i < 10; i++ {
		require.NotNil(t, h.Calloc(1, 50))
	}
	require.False(t, h.IsClean())

	h.Init()
	require.True(t, h.IsClean())
	require.Equal(t, h.Capacity(), h.FreeSize())
	require.Zero(t, h.Counters().Callocs)
}
