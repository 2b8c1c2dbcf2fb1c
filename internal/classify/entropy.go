package classify

import (
	"math"
	"strconv"
	"strings"
)

// digits returns the decimal digits of |n|. The sign is stripped from the
// formatted string so math.MinInt64 needs no negation.
func digits(n int64) string {
	return strings.TrimPrefix(strconv.FormatInt(n, 10), "-")
}

func digitCounts(s string) [10]int {
	var counts [10]int
	for i := 0; i < len(s); i++ {
		counts[s[i]-'0']++
	}
	return counts
}

// DigitCount returns the number of decimal digits of |n|.
func DigitCount(n int64) int {
	return len(digits(n))
}

// DistinctDigits returns how many different digits appear in |n|.
func DistinctDigits(n int64) int {
	return distinct(digits(n))
}

// DigitEntropy is the base-2 Shannon entropy of the digit frequencies of |n|,
// rounded half-to-even to four decimal places.
func DigitEntropy(n int64) float64 {
	return shannon(digits(n))
}

func shannon(s string) float64 {
	total := float64(len(s))
	h := 0.0
	for _, c := range digitCounts(s) {
		if c == 0 {
			continue
		}
		p := float64(c) / total
		h -= p * math.Log2(p)
	}
	return round4(h)
}

func round4(x float64) float64 {
	r := math.RoundToEven(x*1e4) / 1e4
	// -0 from a single-symbol distribution
	if r == 0 {
		return 0
	}
	return r
}
