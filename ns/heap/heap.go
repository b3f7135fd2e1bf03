package heap

import (
	"unsafe"

	"github.com/joshuapare/nskit/internal/buf"
	"github.com/joshuapare/nskit/internal/format"
	"github.com/joshuapare/nskit/internal/logger"
)

// Heap is a fixed arena allocator with an intrusive size-ordered free list.
type Heap struct {
	mem       []byte
	firstSize int
	guardOff  int
	freeSize  int

	stats Stats
}

// Stats counts allocator calls since the last Init.
type Stats struct {
	Callocs  int
	Frees    int
	Failures int
	Merges   int
}

// New creates a heap over a zeroed arena of size bytes and initializes it.
func New(size int) (*Heap, error) {
	if size < format.MinHeapSize || size > format.MaxHeapSize || size%format.HeapAlign != 0 {
		return nil, ErrBadSize
	}
	h := &Heap{
		mem:       make([]byte, size),
		firstSize: size - format.HeapAlign*3 + format.HeapRemainder,
		guardOff:  size - 2,
	}
	h.Init()
	return h, nil
}

// Init resets the arena to a single free block spanning all capacity.
// Every outstanding allocation is invalidated.
func (h *Heap) Init() {
	clear(h.mem)

	h.setSize(superOff, superSize)
	h.setSize(firstOff, h.firstSize)
	h.setSize(h.guardOff, guardSize)

	h.setNext(superOff, firstOff)
	h.setNext(firstOff, h.guardOff)

	h.freeSize = h.firstSize
	h.stats = Stats{}
}

// Calloc allocates count*size zeroed bytes. It returns nil when the request
// is zero, overflows, or no free block is large enough.
//
// The returned slice has len count*size; its capacity is the block payload.
func (h *Heap) Calloc(count, size int) []byte {
	h.stats.Callocs++

	n, ok := buf.SizeProduct(count, size, h.firstSize)
	if !ok || n == 0 {
		h.stats.Failures++
		return nil
	}
	need := format.HeapRequestSize(n)

	prev := superOff
	curr := h.next(prev)
	for h.size(curr) < need {
		prev = curr
		curr = h.next(curr)
	}

	if !h.isFree(curr) {
		h.stats.Failures++
		logger.Debug("heap exhausted", "request", n, "free", h.freeSize)
		return nil
	}

	h.setNext(prev, h.next(curr))

	if h.size(curr) > need+overhead {
		rest := h.size(curr) - need - overhead
		h.setSize(curr, need)

		nb := h.right(curr)
		h.setSize(nb, rest)
		h.setNext(nb, 0)

		if h.size(prev) < rest {
			h.insert(prev, nb)
		} else {
			h.insert(superOff, nb)
		}
		h.freeSize -= overhead
	}

	h.freeSize -= h.size(curr)
	h.setNext(curr, 0)

	p := curr + 2
	payload := h.mem[p : p+h.size(curr) : p+h.size(curr)]
	clear(payload)
	return payload[:n]
}

// Free returns a block obtained from Calloc. Free(nil) is a no-op. Memory
// that is not a live allocation of this heap is ignored and logged.
func (h *Heap) Free(p []byte) {
	if cap(p) == 0 {
		return
	}
	b, err := h.blockOf(p)
	if err != nil {
		logger.Warn("heap free ignored", "error", err)
		return
	}
	h.stats.Frees++

	right := h.right(b)
	h.freeSize += h.size(b)

	if h.isLeftFree(b) {
		prev := superOff
		left := h.next(prev)
		h.freeSize += overhead
		h.stats.Merges++

		for target := h.leftNext(b); h.next(left) != target; left = h.next(left) {
			prev = left
		}

		h.setNext(prev, h.next(left))
		h.setNext(left, 0)

		if h.isFree(right) {
			h.freeSize += overhead
			h.stats.Merges++

			if h.size(right) > h.size(left) {
				for h.next(prev) != right {
					prev = h.next(prev)
				}
			} else {
				prev = h.prevOf(right)
			}

			h.setNext(prev, h.next(right))
			h.setNext(right, 0)
			h.setSize(left, h.size(left)+h.size(right)+overhead)
		}

		h.setSize(left, h.size(left)+h.size(b)+overhead)
		h.insert(prev, left)
		return
	}

	if h.isFree(right) {
		prev := h.prevOf(right)
		h.setNext(prev, h.next(right))
		h.setSize(b, h.size(b)+h.size(right)+overhead)
		h.insert(prev, b)
		h.freeSize += overhead
		h.stats.Merges++
		return
	}

	h.insert(superOff, b)
}

// blockOf maps a payload slice back to its block offset.
func (h *Heap) blockOf(p []byte) (int, error) {
	base := uintptr(unsafe.Pointer(unsafe.SliceData(h.mem)))
	ptr := uintptr(unsafe.Pointer(unsafe.SliceData(p)))
	if ptr < base || ptr >= base+uintptr(len(h.mem)) {
		return 0, ErrForeignPointer
	}

	want := int(ptr-base) - 2
	for b := firstOff; b < h.guardOff; b = h.right(b) {
		if b == want {
			if h.next(b) != 0 {
				return 0, ErrForeignPointer
			}
			return b, nil
		}
		if b > want {
			break
		}
	}
	return 0, ErrForeignPointer
}

// IsClean reports whether the arena is back to its initial single free block.
func (h *Heap) IsClean() bool {
	return h.next(superOff) == firstOff && h.size(firstOff) == h.firstSize
}

// Capacity returns the payload bytes of the initial free block.
func (h *Heap) Capacity() int { return h.firstSize }

// FreeSize returns the payload bytes currently on the free list.
func (h *Heap) FreeSize() int { return h.freeSize }

// Size returns the arena size.
func (h *Heap) Size() int { return len(h.mem) }

// Counters returns the call counters since the last Init.
func (h *Heap) Counters() Stats { return h.stats }
