package engine

import (
	"math/bits"

	"github.com/poolbet/poolbet/internal/domain"
)

// checkedAdd returns a+b or domain.ErrOverflow on wraparound.
func checkedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, domain.ErrOverflow
	}
	return sum, nil
}

// checkedSub returns a-b or domain.ErrUnderflow when b > a.
func checkedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, domain.ErrUnderflow
	}
	return diff, nil
}

// checkedMul returns a*b or domain.ErrOverflow when the product does not fit
// in 64 bits.
func checkedMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, domain.ErrOverflow
	}
	return lo, nil
}

// mulDiv computes floor(a*b/den) with a 128-bit intermediate product, so the
// multiplication cannot wrap even when a*b exceeds 64 bits. It returns
// domain.ErrOverflow when the quotient does not fit in 64 bits, and also when
// den is zero (callers gate the zero-divisor case separately).
func mulDiv(a, b, den uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if den == 0 || hi >= den {
		return 0, domain.ErrOverflow
	}
	quo, _ := bits.Div64(hi, lo, den)
	return quo, nil
}
