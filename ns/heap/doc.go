// Package heap implements the runtime's fixed arena allocator.
//
// # Overview
//
// A Heap owns one contiguous byte arena and never grows it. The arena is
// split into blocks; every block is a little-endian uint16 size, the payload,
// and a uint16 "next" field directly after the payload:
//
//	| size | payload (size bytes) | next |
//
// Free blocks are threaded through their next fields into a single list
// sorted by ascending size, rooted at a zero-payload "super" block placed at
// the start of the arena. A "guard" block whose size is 0xffff terminates
// both the physical block chain and the free list. An allocated block has
// next == 0.
//
// # Layout
//
// With 8-byte alignment:
//
//	offset 6            super block (size 4)
//	offset 14           first block (size = arena - 20)
//	offset arena-2      guard block (size 0xffff)
//
// Payloads are 8-byte aligned and every block including its overhead is a
// multiple of 8 bytes, so a request is rounded to 8k+4 bytes.
//
// # Allocation
//
// Calloc walks the size-ordered list and takes the first block that fits,
// which is the best fit. When the block is larger than the request plus one
// block of overhead it is split and the remainder is reinserted. The payload
// is zeroed.
//
// Free coalesces immediately with a free left neighbour (found through the
// left block's next field, which sits right before this block's size) and a
// free right neighbour, then reinserts the merged block in sorted position.
// Locating the left neighbour's predecessor scans the free list from the super
// block, which is the dominant cost of Free.
//
// # Usage Example
//
//	h, err := heap.New(format.DefaultHeapSize)
//	if err != nil {
//	    return err
//	}
//	p := h.Calloc(4, 16)
//	if p == nil {
//	    return types.ErrNoBufs
//	}
//	defer h.Free(p)
//
// A Heap is not safe for concurrent use; it belongs to the main loop.
package heap
