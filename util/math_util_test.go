package util

import (
	"math"
	"testing"
)

func TestSafeAdd(t *testing.T) {
	t.Parallel()

	t.Run("OK", func(t *testing.T) {
		cases := []struct {
			a, b   uint64
			result uint64
		}{
			{0, 0, 0},
			{0, 1, 1},
			{1, 2, 3},
			{math.MaxUint64, 0, math.MaxUint64},
			{math.MaxUint64 - 1, 1, math.MaxUint64},
		}

		for x, tt := range cases {
			sum, ok := SafeAdd(tt.a, tt.b)
			if !ok {
				t.Errorf("unexpected overflow for test case %d", x)
				continue
			}
			if sum != tt.result {
				t.Errorf("[%d] expected sum %d, got %d", x, tt.result, sum)
			}
		}
	})

	t.Run("overflow", func(t *testing.T) {
		cases := []struct {
			a, b uint64
		}{
			{math.MaxUint64, 1},
			{1, math.MaxUint64},
			{math.MaxUint64, math.MaxUint64},
		}

		for x, tt := range cases {
			if sum, ok := SafeAdd(tt.a, tt.b); ok {
				t.Errorf("expected overflow for test case %d, got %d", x, sum)
			}
		}
	})
}

func TestSafeSub(t *testing.T) {
	t.Parallel()

	t.Run("OK", func(t *testing.T) {
		cases := []struct {
			a, b   uint64
			result uint64
		}{
			{0, 0, 0},
			{1, 0, 1},
			{3, 2, 1},
			{math.MaxUint64, math.MaxUint64, 0},
		}

		for x, tt := range cases {
			diff, ok := SafeSub(tt.a, tt.b)
			if !ok {
				t.Errorf("unexpected underflow for test case %d", x)
				continue
			}
			if diff != tt.result {
				t.Errorf("[%d] expected diff %d, got %d", x, tt.result, diff)
			}
		}
	})

	t.Run("underflow", func(t *testing.T) {
		cases := []struct {
			a, b uint64
		}{
			{0, 1},
			{1, 2},
			{math.MaxUint64 - 1, math.MaxUint64},
		}

		for x, tt := range cases {
			if diff, ok := SafeSub(tt.a, tt.b); ok {
				t.Errorf("expected underflow for test case %d, got %d", x, diff)
			}
		}
	})
}

func TestSafeMul(t *testing.T) {
	t.Parallel()

	t.Run("OK", func(t *testing.T) {
		cases := []struct {
			a, b   uint64
			result uint64
		}{
			{0, 0, 0},
			{0, math.MaxUint64, 0},
			{math.MaxUint64, 0, 0},
			{1, math.MaxUint64, math.MaxUint64},
			{2, 3, 6},
			{200, 101, 20200},
			{math.MaxUint64 / 2, 2, math.MaxUint64 - 1},
		}

		for x, tt := range cases {
			prod, ok := SafeMul(tt.a, tt.b)
			if !ok {
				t.Errorf("unexpected overflow for test case %d", x)
				continue
			}
			if prod != tt.result {
				t.Errorf("[%d] expected product %d, got %d", x, tt.result, prod)
			}
		}
	})

	t.Run("overflow", func(t *testing.T) {
		cases := []struct {
			a, b uint64
		}{
			{math.MaxUint64, 2},
			{2, math.MaxUint64},
			{math.MaxUint64/2 + 1, 2},
		}

		for x, tt := range cases {
			if prod, ok := SafeMul(tt.a, tt.b); ok {
				t.Errorf("expected overflow for test case %d, got %d", x, prod)
			}
		}
	})
}
