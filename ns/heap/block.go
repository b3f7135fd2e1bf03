package heap

import (
	"github.com/joshuapare/nskit/internal/buf"
	"github.com/joshuapare/nskit/internal/format"
)

const (
	overhead  = format.HeapBlockOverhead
	superOff  = format.HeapAlign - 2
	firstOff  = format.HeapAlign*2 - 2
	superSize = format.HeapAlign - overhead
	guardSize = format.HeapGuardSize
)

// Block fields are addressed by the offset of the block's size field.

func (h *Heap) size(b int) int {
	return int(buf.U16LE(h.mem[b:]))
}

func (h *Heap) setSize(b, size int) {
	buf.PutU16LE(h.mem[b:], uint16(size))
}

func (h *Heap) next(b int) int {
	return int(buf.U16LE(h.mem[b+2+h.size(b):]))
}

func (h *Heap) setNext(b, next int) {
	buf.PutU16LE(h.mem[b+2+h.size(b):], uint16(next))
}

// leftNext reads the next field of the physically preceding block, which is
// stored in the two bytes right before b's size field.
func (h *Heap) leftNext(b int) int {
	return int(buf.U16LE(h.mem[b-2:]))
}

func (h *Heap) isFree(b int) bool {
	return h.size(b) != guardSize && h.next(b) != 0
}

func (h *Heap) isLeftFree(b int) bool {
	return b != firstOff && h.leftNext(b) != 0
}

func (h *Heap) right(b int) int {
	return b + overhead + h.size(b)
}

// prevOf returns the free-list predecessor of b.
func (h *Heap) prevOf(b int) int {
	prev := superOff
	for h.next(prev) != b {
		prev = h.next(prev)
	}
	return prev
}

// insert links b into the free list, scanning forward from prev for the
// first block at least as large as b.
func (h *Heap) insert(prev, b int) {
	for cur := h.next(prev); h.size(cur) < h.size(b); cur = h.next(cur) {
		prev = cur
	}
	h.setNext(b, h.next(prev))
	h.setNext(prev, b)
}
