package heap

import "errors"

var (
	// ErrBadSize indicates an arena size outside [64, 65536] or not a multiple of 8.
	ErrBadSize = errors.New("heap: arena size must be a multiple of 8 within [64, 65536]")

	// ErrForeignPointer indicates Free was given memory that is not an allocated block of this heap.
	ErrForeignPointer = errors.New("heap: pointer does not address an allocated block")

	// ErrCorrupt indicates Check found the block chain or free list inconsistent.
	ErrCorrupt = errors.New("heap: corrupt block structure")
)
