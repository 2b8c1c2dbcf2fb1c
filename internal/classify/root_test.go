package classify

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

// repeatedDigitSum reduces the decimal digits of a non-negative n by hand.
func repeatedDigitSum(n int64) int {
	s := strconv.FormatInt(n, 10)
	for len(s) > 1 {
		sum := 0
		for i := 0; i < len(s); i++ {
			sum += int(s[i] - '0')
		}
		s = strconv.Itoa(sum)
	}
	return int(s[0] - '0')
}

func TestDigitalRoot(t *testing.T) {
	tests := []struct {
		n        int64
		expected int
	}{
		{0, 0},
		{1, 1},
		{9, 9},
		{10, 1},
		{18, 9},
		{1009, 1},
		{493193, 2},
		{-1, 8},
		{-9, 9},
		{-1009, 8},
	}

	for _, tt := range tests {
		t.Run(strconv.FormatInt(tt.n, 10), func(t *testing.T) {
			assert.Equal(t, tt.expected, DigitalRoot(tt.n))
		})
	}
}

func TestDigitalRoot_MatchesRepeatedDigitSum(t *testing.T) {
	for n := int64(0); n <= 5000; n++ {
		assert.Equal(t, repeatedDigitSum(n), DigitalRoot(n), "n=%d", n)
	}
	assert.Equal(t, repeatedDigitSum(math.MaxInt64), DigitalRoot(math.MaxInt64))
}

func TestDigitalRoot_RangeAtExtremes(t *testing.T) {
	for _, n := range []int64{math.MinInt64, math.MinInt64 + 1, math.MaxInt64, -2, 2} {
		root := DigitalRoot(n)
		assert.GreaterOrEqual(t, root, 1, "n=%d", n)
		assert.LessOrEqual(t, root, 9, "n=%d", n)
	}
}
