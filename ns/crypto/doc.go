// Package crypto provides the key derivation and MAC primitives the stack
// needs, with all working memory taken from the instance heap rather than
// the Go allocator. A heap too small or too fragmented for a call makes it
// fail with types.ErrNoBufs, the same way buffer exhaustion surfaces in the
// message pool.
//
// Scratch memory is zeroed before it goes back to the heap.
package crypto
