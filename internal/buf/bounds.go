package buf

import "math"

// SizeProduct returns count*size for allocation requests. ok is false when
// either operand is negative, the product overflows int, or it exceeds limit.
func SizeProduct(count, size, limit int) (int, bool) {
	if count < 0 || size < 0 {
		return 0, false
	}
	if count == 0 || size == 0 {
		return 0, true
	}
	if count > math.MaxInt/size {
		return 0, false
	}
	n := count * size
	if n > limit {
		return 0, false
	}
	return n, true
}
