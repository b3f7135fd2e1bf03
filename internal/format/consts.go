// Package format holds the layout constants shared by the runtime arenas:
// message buffer geometry, heap block geometry and their defaults. Keeping
// them in one place lets the CLI and tests reason about footprints without
// importing the packages that own the arenas.
package format

// Message buffer geometry.
//
// A buffer is BufferSize bytes of arena. Every buffer gives up LinkSize bytes
// for its chain link; the head buffer of a message additionally gives up
// InfoSize bytes for the message header.
//
//	head:         | info (InfoSize) | payload (HeadDataSize) | link |
//	continuation: | payload (DataSize)                        | link |
const (
	// DefaultNumBuffers is the number of buffers in a pool.
	DefaultNumBuffers = 44

	// DefaultBufferSize is the size of one buffer in bytes.
	DefaultBufferSize = 128

	// LinkSize is the per-buffer chain link footprint.
	LinkSize = 4

	// InfoSize is the message header footprint charged to the head buffer.
	InfoSize = 64

	// MinBufferSize leaves at least 8 payload bytes in a head buffer.
	MinBufferSize = LinkSize + InfoSize + 8

	// MaxNumBuffers bounds the pool so buffer indices fit a uint16.
	MaxNumBuffers = 0xfffe
)

// Heap block geometry.
//
// Every block is a uint16 size, the payload, and a uint16 next-free offset
// stored right after the payload. Payloads are HeapAlign-aligned.
const (
	// HeapAlign is the alignment of every block payload.
	HeapAlign = 8

	// HeapBlockOverhead is the size prefix plus next suffix of one block.
	HeapBlockOverhead = 4

	// HeapRemainder is what a block payload carries beyond a multiple of HeapAlign.
	HeapRemainder = HeapAlign - HeapBlockOverhead

	// DefaultHeapSize is the arena size in bytes.
	DefaultHeapSize = 3072 * 8

	// MinHeapSize leaves room for the super, first and guard blocks.
	MinHeapSize = 64

	// MaxHeapSize keeps every offset representable in a uint16.
	MaxHeapSize = 1 << 16

	// HeapGuardSize marks the guard block terminating the arena.
	HeapGuardSize = 0xffff
)

// DataSize returns the payload bytes of a continuation buffer.
func DataSize(bufferSize int) int { return bufferSize - LinkSize }

// HeadDataSize returns the payload bytes of a head buffer.
func HeadDataSize(bufferSize int) int { return bufferSize - LinkSize - InfoSize }
