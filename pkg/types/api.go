package types

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindNoBufs      ErrKind = iota // pool or heap exhausted; back off or drop
	ErrKindAlready                    // duplicate post/enqueue
	ErrKindNotFound                   // dequeue of an unlinked message
	ErrKindFailed                     // invariant violation surfaced by a self-check
	ErrKindInvalidArgs                // argument out of range
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNoBufs:
		return "NoBufs"
	case ErrKindAlready:
		return "Already"
	case ErrKindNotFound:
		return "NotFound"
	case ErrKindFailed:
		return "Failed"
	case ErrKindInvalidArgs:
		return "InvalidArgs"
	default:
		return "Unknown"
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so a wrapped detail error still
// satisfies errors.Is(err, ErrNoBufs).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels returned by the runtime.
var (
	// ErrNoBufs indicates the message pool or heap cannot satisfy the request.
	ErrNoBufs = &Error{Kind: ErrKindNoBufs, Msg: "insufficient buffers"}
	// ErrAlready indicates the item is already queued or posted.
	ErrAlready = &Error{Kind: ErrKindAlready, Msg: "already queued"}
	// ErrNotFound indicates the item is not linked into the given queue.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "not found"}
	// ErrFailed indicates a structural invariant did not hold.
	ErrFailed = &Error{Kind: ErrKindFailed, Msg: "operation failed"}
	// ErrInvalidArgs indicates an argument outside its valid range.
	ErrInvalidArgs = &Error{Kind: ErrKindInvalidArgs, Msg: "invalid arguments"}
)

// Errorf builds an *Error of the given kind with a formatted message.
// The result matches the corresponding sentinel under errors.Is.
func Errorf(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// -----------------------------------------------------------------------------
// Introspection records
// -----------------------------------------------------------------------------

// PoolInfo summarizes message buffer usage.
type PoolInfo struct {
	TotalBuffers  int `json:"total_buffers"`
	FreeBuffers   int `json:"free_buffers"`
	BufferSize    int `json:"buffer_size"`
	QueuedMsgs    int `json:"queued_messages"`
	QueuedBuffers int `json:"queued_buffers"`
}

// InUse returns the number of buffers owned by messages.
func (p PoolInfo) InUse() int { return p.TotalBuffers - p.FreeBuffers }

// QueueInfo is the result of a full traversal of a message queue.
type QueueInfo struct {
	Messages int `json:"messages"`
	Buffers  int `json:"buffers"`
}

// HeapInfo summarizes heap arena usage.
type HeapInfo struct {
	Capacity        int `json:"capacity"`
	FreeSize        int `json:"free_size"`
	FreeBlocks      int `json:"free_blocks"`
	LargestFree     int `json:"largest_free"`
	AllocatedBlocks int `json:"allocated_blocks"`
	AllocatedBytes  int `json:"allocated_bytes"`
}

// Used returns the number of capacity bytes not counted as free.
func (h HeapInfo) Used() int { return h.Capacity - h.FreeSize }

// Fragmentation returns 1 - largest/free, or 0 for an empty free list.
func (h HeapInfo) Fragmentation() float64 {
	if h.FreeSize == 0 {
		return 0
	}
	return 1 - float64(h.LargestFree)/float64(h.FreeSize)
}
