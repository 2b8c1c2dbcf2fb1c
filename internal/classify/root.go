package classify

// DigitalRoot returns the repeated digit sum of n: 0 for zero, otherwise
// 1 + ((n-1) mod 9) with a non-negative modulo, so negative inputs also land
// in [1, 9].
func DigitalRoot(n int64) int {
	if n == 0 {
		return 0
	}
	// (n-1) mod 9 from n%9 keeps math.MinInt64 from overflowing.
	r := (n%9 - 1) % 9
	if r < 0 {
		r += 9
	}
	return int(1 + r)
}
