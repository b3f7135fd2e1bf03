package format

// AlignUp returns n rounded up to a multiple of align, which must be a power of two.
//
// Example:
//
//	AlignUp(1, 8)  = 8
//	AlignUp(8, 8)  = 8
//	AlignUp(9, 8)  = 16
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// CeilDiv returns ceil(n/d) for n >= 0 and d > 0.
func CeilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n-1)/d + 1
}

// HeapRequestSize rounds a payload request to the size a heap block must
// carry: a multiple of HeapAlign plus HeapRemainder, so the block including
// its 4 bytes of overhead stays a multiple of HeapAlign.
//
// Example:
//
//	HeapRequestSize(1)  = 4
//	HeapRequestSize(4)  = 4
//	HeapRequestSize(5)  = 12
//	HeapRequestSize(12) = 12
func HeapRequestSize(n int) int {
	n += HeapAlign - 1 - HeapRemainder
	n &^= HeapAlign - 1
	return n + HeapRemainder
}

// ChainBuffers returns how many buffers a message needs to hold total bytes
// (reserved header plus payload) beyond its head buffer.
func ChainBuffers(total, bufferSize int) int {
	head := HeadDataSize(bufferSize)
	if total <= head {
		return 0
	}
	return CeilDiv(total-head, DataSize(bufferSize))
}
