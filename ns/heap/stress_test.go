package heap

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// allocateRandomly allocates until the arena is exhausted, freeing a random
// live block about half the time, then frees everything.
func allocateRandomly(t *testing.T, h *Heap, rng *rand.Rand, limit int) {
	t.Helper()
	require.True(t, h.IsClean())
	total := h.FreeSize()

	var live [][]byte
	for {
		size := rng.IntN(limit) + 16
		p := h.Calloc(1, size)
		if p == nil {
			break
		}
		for i := range p {
			p[i] = byte(size)
		}
		live = append(live, p)

		idx := rng.IntN(len(live) * 2)
		if idx >= len(live) {
			idx /= 2
			h.Free(live[idx])
			live = append(live[:idx], live[idx+1:]...)
		}
	}
	require.NoError(t, h.Check(nil))

	for _, p := range live {
		// Payloads must survive neighbouring frees and splits.
		for _, b := range p {
			require.Equal(t, byte(len(p)), b)
		}
		h.Free(p)
	}

	require.True(t, h.IsClean())
	require.Equal(t, total, h.FreeSize())
}

func Test_AllocateMultiple(t *testing.T) {
	h := newTestHeap(t)
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 10; i++ {
		allocateRandomly(t, h, rng, 1<<i)
	}
}

func Test_CheckAfterEveryStep(t *testing.T) {
	h, err := New(2048)
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(7, 7))

	var live [][]byte
	for step := 0; step < 2000; step++ {
		if len(live) > 0 && rng.IntN(3) == 0 {
			i := rng.IntN(len(live))
			h.Free(live[i])
			live = append(live[:i], live[i+1:]...)
		} else if p := h.Calloc(1, rng.IntN(120)+1); p != nil {
			live = append(live, p)
		}
		require.NoError(t, h.Check(nil), "step %d", step)
	}
	for _, p := range live {
		h.Free(p)
	}
	require.True(t, h.IsClean())
}
