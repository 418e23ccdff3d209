package vesting

import (
	"math/bits"

	"github.com/pkg/errors"
)

// ErrOverflow indicates that an arithmetic operation would overflow the
// integer width in use. Amount math never silently wraps around.
var ErrOverflow = errors.New("arithmetic overflow")

func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrOverflow
	}
	return diff, nil
}

// MulDiv computes floor(a * b / den) with a 128-bit intermediate, so the
// product of two u64 values never overflows before the division.
func MulDiv(a, b, den uint64) (uint64, error) {
	if den == 0 {
		return 0, ErrOverflow
	}

	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		// The quotient wouldn't fit in 64 bits
		return 0, ErrOverflow
	}

	quo, _ := bits.Div64(hi, lo, den)
	return quo, nil
}
