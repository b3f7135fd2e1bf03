package heap

import (
	"fmt"

	"github.com/joshuapare/nskit/pkg/types"
)

// Block describes one physical block for Walk.
type Block struct {
	Offset int // offset of the size field
	Size   int // payload bytes
	Free   bool
}

// Walk visits every physical block from the first block up to the guard.
// Returning false stops the walk.
func (h *Heap) Walk(fn func(Block) bool) {
	for b := firstOff; b < h.guardOff; b = h.right(b) {
		if !fn(Block{Offset: b, Size: h.size(b), Free: h.isFree(b)}) {
			return
		}
	}
}

// Info summarizes the arena by walking the physical block chain.
func (h *Heap) Info() types.HeapInfo {
	info := types.HeapInfo{
		Capacity: h.firstSize,
		FreeSize: h.freeSize,
	}
	h.Walk(func(b Block) bool {
		if b.Free {
			info.FreeBlocks++
			if b.Size > info.LargestFree {
				info.LargestFree = b.Size
			}
		} else {
			info.AllocatedBlocks++
			info.AllocatedBytes += b.Size
		}
		return true
	})
	return info
}

// Check verifies the block chain ends exactly at the guard, the free list is
// size-ordered and terminated by the guard, no two free blocks are adjacent,
// and the free counter matches the free list. Findings go to report when it
// is non-nil. The returned error wraps ErrCorrupt.
func (h *Heap) Check(report *types.DiagnosticReport) error {
	if report == nil {
		report = types.NewDiagnosticReport()
	}
	before := report.Summary.Errors

	physicalFree := 0
	prevFree := false
	b := firstOff
	for b < h.guardOff {
		free := h.isFree(b)
		if free {
			physicalFree++
			if prevFree {
				report.Addf(types.SevError, "heap", b, "adjacent free blocks were not coalesced")
			}
		}
		prevFree = free
		b = h.right(b)
	}
	if b != h.guardOff {
		report.Add(types.Diagnostic{
			Severity:  types.SevCritical,
			Component: "heap",
			Offset:    b,
			Issue:     "block chain does not end at the guard",
			Expected:  h.guardOff,
			Actual:    b,
		})
		return fmt.Errorf("%w: chain overruns guard", ErrCorrupt)
	}

	listed, sum, last := 0, 0, 0
	for cur := h.next(superOff); cur != h.guardOff; cur = h.next(cur) {
		if cur < firstOff || cur >= h.guardOff || listed > physicalFree {
			report.Addf(types.SevCritical, "heap", cur, "free list leaves the arena or cycles")
			return fmt.Errorf("%w: free list broken at %d", ErrCorrupt, cur)
		}
		if h.size(cur) < last {
			report.Addf(types.SevError, "heap", cur, "free list not sorted: %d after %d", h.size(cur), last)
		}
		last = h.size(cur)
		sum += last
		listed++
	}

	if listed != physicalFree {
		report.Add(types.Diagnostic{
			Severity: types.SevError, Component: "heap", Offset: -1,
			Issue: "free list length differs from free blocks", Expected: physicalFree, Actual: listed,
		})
	}
	if sum != h.freeSize {
		report.Add(types.Diagnostic{
			Severity: types.SevError, Component: "heap", Offset: -1,
			Issue: "free size counter differs from free list", Expected: sum, Actual: h.freeSize,
		})
	}

	if n := report.Summary.Errors - before; n > 0 {
		return fmt.Errorf("%w: %d inconsistencies", ErrCorrupt, n)
	}
	return nil
}
