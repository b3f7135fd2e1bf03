package crypto

import (
	"fmt"
	"log/slog"

	"github.com/joshuapare/nskit/internal/logger"
	"github.com/joshuapare/nskit/pkg/types"
)

// Allocator is the heap interface the engine draws scratch memory from.
// *heap.Heap satisfies it.
type Allocator interface {
	Calloc(count, size int) []byte
	Free(p []byte)
}

// Engine runs crypto operations on scratch memory from an Allocator. It is
// not safe for concurrent use; the heap it draws from is owned by the main
// loop.
type Engine struct {
	alloc Allocator
	log   *slog.Logger
}

// New returns an engine drawing from alloc.
func New(alloc Allocator) *Engine {
	return &Engine{alloc: alloc, log: logger.For("crypto")}
}

func (e *Engine) scratch(n int) ([]byte, error) {
	p := e.alloc.Calloc(1, n)
	if p == nil {
		e.log.Debug("scratch allocation failed", "bytes", n)
		return nil, fmt.Errorf("crypto: %d bytes of scratch: %w", n, types.ErrNoBufs)
	}
	return p, nil
}

func (e *Engine) release(p []byte) {
	clear(p)
	e.alloc.Free(p)
}

func xorInto(dst, src []byte) {
	for i := range src {
		dst[i] ^= src[i]
	}
}
