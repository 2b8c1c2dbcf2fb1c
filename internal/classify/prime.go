package classify

import (
	"math/bits"
	"math/rand/v2"
)

// DefaultRounds is the number of Miller-Rabin witnesses drawn per test. A
// composite survives all rounds with probability at most 4^-DefaultRounds.
const DefaultRounds = 5

var smallPrimes = [...]int64{2, 3, 5, 7, 11, 13, 17, 19, 23}

// WitnessSource yields uniform integers in [0, n) for n > 0. Implementations
// shared between goroutines must be safe for concurrent use.
type WitnessSource interface {
	Int64N(n int64) int64
}

type globalWitnesses struct{}

func (globalWitnesses) Int64N(n int64) int64 {
	return rand.Int64N(n)
}

// DefaultWitnesses returns the process-wide math/rand/v2 generator, which is
// safe for concurrent use.
func DefaultWitnesses() WitnessSource {
	return globalWitnesses{}
}

// IsProbablePrime runs MillerRabin with DefaultRounds.
func IsProbablePrime(n int64, src WitnessSource) bool {
	return MillerRabin(n, DefaultRounds, src)
}

// MillerRabin reports whether n is probably prime. Values below 2 are never
// prime and primes never fail; composites pass with probability at most 4^-k.
func MillerRabin(n int64, k int, src WitnessSource) bool {
	if n < 2 {
		return false
	}
	for _, p := range smallPrimes {
		if n%p == 0 {
			return n == p
		}
	}
	if src == nil {
		src = DefaultWitnesses()
	}

	m := uint64(n)
	d := m - 1
	r := bits.TrailingZeros64(d)
	d >>= uint(r)

	for range k {
		// a uniform in [2, n-2]
		a := uint64(2 + src.Int64N(n-3))
		x := powMod(a, d, m)
		if x == 1 || x == m-1 {
			continue
		}
		witnessed := true
		for i := 1; i < r; i++ {
			x = mulMod(x, x, m)
			if x == m-1 {
				witnessed = false
				break
			}
		}
		if witnessed {
			return false
		}
	}
	return true
}

// mulMod computes a*b mod m through a 128-bit product.
func mulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	return bits.Rem64(hi, lo, m)
}

func powMod(base, exp, m uint64) uint64 {
	result := uint64(1)
	base %= m
	for exp > 0 {
		if exp&1 == 1 {
			result = mulMod(result, base, m)
		}
		base = mulMod(base, base, m)
		exp >>= 1
	}
	return result
}
