package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/poolbet/poolbet/internal/domain"
)

func TestCheckedAdd(t *testing.T) {
	if v, err := checkedAdd(1, 2); err != nil || v != 3 {
		t.Fatalf("expected 3, got %d (%v)", v, err)
	}
	if _, err := checkedAdd(math.MaxUint64, 1); !errors.Is(err, domain.ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if v, err := checkedAdd(math.MaxUint64, 0); err != nil || v != math.MaxUint64 {
		t.Fatalf("max+0 should not overflow, got %v", err)
	}
}

func TestCheckedSub(t *testing.T) {
	if v, err := checkedSub(5, 3); err != nil || v != 2 {
		t.Fatalf("expected 2, got %d (%v)", v, err)
	}
	if _, err := checkedSub(3, 5); !errors.Is(err, domain.ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow, got %v", err)
	}
	if v, err := checkedSub(7, 7); err != nil || v != 0 {
		t.Fatalf("equal sub should be 0, got %d (%v)", v, err)
	}
}

func TestCheckedMul(t *testing.T) {
	if v, err := checkedMul(6, 7); err != nil || v != 42 {
		t.Fatalf("expected 42, got %d (%v)", v, err)
	}
	if _, err := checkedMul(math.MaxUint64, 2); !errors.Is(err, domain.ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestMulDiv(t *testing.T) {
	cases := []struct {
		a, b, den, want uint64
	}{
		{1000, 4000, 1000, 4000},
		{1, 3, 2, 1},         // floors
		{0, 12345, 7, 0},
		{math.MaxUint64, math.MaxUint64, math.MaxUint64, math.MaxUint64},
	}
	for _, c := range cases {
		got, err := mulDiv(c.a, c.b, c.den)
		if err != nil {
			t.Fatalf("mulDiv(%d,%d,%d) failed: %v", c.a, c.b, c.den, err)
		}
		if got != c.want {
			t.Fatalf("mulDiv(%d,%d,%d) = %d, want %d", c.a, c.b, c.den, got, c.want)
		}
	}
}

func TestMulDiv_QuotientOverflow(t *testing.T) {
	_, err := mulDiv(math.MaxUint64, 2, 1)
	if !errors.Is(err, domain.ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestMulDiv_ZeroDivisor(t *testing.T) {
	_, err := mulDiv(1, 1, 0)
	if !errors.Is(err, domain.ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}
