package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func permutations(n int) [][]int {
	if n == 1 {
		return [][]int{{0}}
	}
	var out [][]int
	for _, p := range permutations(n - 1) {
		for i := 0; i <= len(p); i++ {
			q := make([]int, 0, n)
			q = append(q, p[:i]...)
			q = append(q, n-1)
			q = append(q, p[i:]...)
			out = append(out, q)
		}
	}
	return out
}

// Test_CoalesceThreeBlocks frees three adjacent blocks in every order and
// expects a single free block spanning the arena afterwards.
func Test_CoalesceThreeBlocks(t *testing.T) {
	for _, order := range permutations(3) {
		h := newTestHeap(t)

		blocks := [][]byte{h.Calloc(1, 40), h.Calloc(1, 200), h.Calloc(1, 72)}
		for _, b := range blocks {
			require.NotNil(t, b)
		}

		for _, i := range order {
			h.Free(blocks[i])
			require.NoError(t, h.Check(nil), "order %v", order)
		}

		require.True(t, h.IsClean(), "order %v", order)
		require.Equal(t, h.Capacity(), h.FreeSize(), "order %v", order)
		require.Equal(t, 1, h.Info().FreeBlocks)
	}
}

// Test_CoalesceMiddleHole keeps a fence block after the three so the merged
// block is not absorbed by the tail free space.
func Test_CoalesceMiddleHole(t *testing.T) {
	for _, order := range permutations(3) {
		h := newTestHeap(t)

		a, b, c := h.Calloc(1, 60), h.Calloc(1, 60), h.Calloc(1, 60)
		fence := h.Calloc(1, 8)
		require.NotNil(t, fence)

		blocks := [][]byte{a, b, c}
		for _, i := range order {
			h.Free(blocks[i])
			require.NoError(t, h.Check(nil))
		}

		info := h.Info()
		require.Equal(t, 2, info.FreeBlocks, "order %v", order)
		// 3 x 60 bytes rounded to 60, plus two absorbed block headers.
		var merged int
		h.Walk(func(blk Block) bool {
			if blk.Free && blk.Offset == firstOff {
				merged = blk.Size
				return false
			}
			return true
		})
		require.Equal(t, 3*60+2*overhead, merged, "order %v", order)

		h.Free(fence)
		require.True(t, h.IsClean())
	}
}

func Test_FreeListStaysSorted(t *testing.T) {
	h := newTestHeap(t)

	sizes := []int{300, 20, 500, 12, 100, 36, 900, 4}
	var blocks [][]byte
	for _, n := range sizes {
		blocks = append(blocks, h.Calloc(1, n))
		blocks = append(blocks, h.Calloc(1, 8)) // fence
	}
	for i := 0; i < len(blocks); i += 2 {
		h.Free(blocks[i])
	}
	require.NoError(t, h.Check(nil))

	last := 0
	for cur := h.next(superOff); cur != h.guardOff; cur = h.next(cur) {
		require.GreaterOrEqual(t, h.size(cur), last)
		last = h.size(cur)
	}

	// The best fit for 97 bytes is the 100-byte hole.
	p := h.Calloc(1, 97)
	off, err := h.blockOf(p)
	require.NoError(t, err)
	require.Equal(t, 100, h.size(off))
}
