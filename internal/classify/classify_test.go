package classify

import (
	"math"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Examples(t *testing.T) {
	c := New(WithWitnessSource(seeded()))

	t.Run("1009 is a low entropy PIN", func(t *testing.T) {
		v := c.Classify(1009)

		assert.Equal(t, int64(1009), v.Number)
		assert.Equal(t, IDTypeOTP, v.IDType)
		assert.InDelta(t, 1.5, v.Entropy, 1e-9)
		assert.Equal(t, 1, v.DigitalRoot)
		assert.Equal(t, StrengthLow, v.CryptoStrength)
		assert.Equal(t, OriginHuman, v.Origin)
		assert.Equal(t, []FraudFlag{FlagLowDiversity, FlagLowEntropy}, v.FraudFlags)
	})

	t.Run("zero raises both fraud flags", func(t *testing.T) {
		v := c.Classify(0)

		assert.Equal(t, IDTypeGeneric, v.IDType)
		assert.Zero(t, v.Entropy)
		assert.Zero(t, v.DigitalRoot)
		assert.Equal(t, StrengthLow, v.CryptoStrength)
		assert.Equal(t, OriginHuman, v.Origin)
		assert.Equal(t, []FraudFlag{FlagLowDiversity, FlagLowEntropy}, v.FraudFlags)
		assert.True(t, v.Flagged())
	})

	t.Run("all ten digits reads as a random phone or account", func(t *testing.T) {
		v := c.Classify(1234567890)

		assert.Equal(t, IDTypePhone, v.IDType)
		assert.Equal(t, StrengthMedium, v.CryptoStrength)
		assert.Equal(t, OriginRandom, v.Origin)
		assert.Equal(t, []FraudFlag{FlagNone}, v.FraudFlags)
		assert.False(t, v.Flagged())
	})

	t.Run("five distinct digits is a generic system id", func(t *testing.T) {
		v := c.Classify(12345)

		assert.Equal(t, IDTypeGeneric, v.IDType)
		assert.Equal(t, StrengthLow, v.CryptoStrength)
		assert.Equal(t, OriginSystem, v.Origin)
		assert.Equal(t, []FraudFlag{FlagNone}, v.FraudFlags)
	})

	t.Run("six digits is an OTP with medium strength", func(t *testing.T) {
		v := c.Classify(123456)

		assert.Equal(t, IDTypeOTP, v.IDType)
		assert.Equal(t, StrengthMedium, v.CryptoStrength)
		assert.Equal(t, OriginSystem, v.Origin)
	})

	t.Run("negative numbers use their magnitude", func(t *testing.T) {
		v := c.Classify(-1009)

		assert.Equal(t, int64(-1009), v.Number)
		assert.Equal(t, IDTypeOTP, v.IDType)
		assert.InDelta(t, 1.5, v.Entropy, 1e-9)
		assert.Equal(t, 8, v.DigitalRoot)
		assert.Equal(t, StrengthLow, v.CryptoStrength)
	})

	t.Run("extremes do not overflow", func(t *testing.T) {
		for _, n := range []int64{math.MinInt64, math.MaxInt64} {
			v := c.Classify(n)
			assert.Equal(t, IDTypeToken, v.IDType, "n=%d", n)
			assert.Equal(t, n, v.Number)
		}
	})
}

func TestClassify_IDTypeByLength(t *testing.T) {
	c := New(WithWitnessSource(seeded()))
	tests := []struct {
		n        int64
		expected IDType
	}{
		{7, IDTypeGeneric},
		{123, IDTypeGeneric},
		{1234, IDTypeOTP},
		{12345, IDTypeGeneric},
		{123456, IDTypeOTP},
		{1234567, IDTypeGeneric},
		{123456789, IDTypeGeneric},
		{1234567890, IDTypePhone},
		{12345678901, IDTypePhone},
		{123456789012, IDTypeGeneric},
		{123456789012345, IDTypeGeneric},
		{1234567890123456, IDTypeToken},
		{-1234567890123456, IDTypeToken},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, c.Classify(tt.n).IDType, "n=%d", tt.n)
	}
}

func TestClassify_HighStrengthToken(t *testing.T) {
	// First 16-digit prime at or above a high-diversity seed whose entropy
	// clears the High threshold.
	var candidate int64
	for n := int64(1234567890123457); n < 1234567890123457+200000; n += 2 {
		if DigitEntropy(n) > highStrengthEntropy && big.NewInt(n).ProbablyPrime(0) {
			candidate = n
			break
		}
	}
	require.NotZero(t, candidate, "no high-entropy prime found in search window")

	for range 10 {
		v := Classify(candidate)
		assert.Equal(t, IDTypeToken, v.IDType)
		assert.Equal(t, StrengthHigh, v.CryptoStrength)
		assert.Equal(t, OriginRandom, v.Origin)
		assert.Equal(t, []FraudFlag{FlagNone}, v.FraudFlags)
	}
}

func TestClassify_HighEntropyCompositeIsMedium(t *testing.T) {
	// Even, so trial division rules primality out deterministically.
	v := Classify(1234567890123456)
	assert.Greater(t, v.Entropy, highStrengthEntropy)
	assert.Equal(t, StrengthMedium, v.CryptoStrength)
}

func TestClassify_Idempotent(t *testing.T) {
	for _, n := range []int64{0, 7, 1009, 98765432, 1234567890123457, math.MaxInt64} {
		a, b := Classify(n), Classify(n)
		assert.Equal(t, a.Number, b.Number)
		assert.Equal(t, a.Entropy, b.Entropy)
		assert.Equal(t, a.DigitalRoot, b.DigitalRoot)
		assert.Equal(t, a.IDType, b.IDType)
		assert.Equal(t, a.Origin, b.Origin)
		assert.Equal(t, a.FraudFlags, b.FraudFlags)
	}
}

func TestClassify_ConcurrentUse(t *testing.T) {
	c := New()
	want := c.Classify(1234567890)

	var wg sync.WaitGroup
	results := make([]Verdict, 64)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.Classify(1234567890)
		}()
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestOptions(t *testing.T) {
	c := New(WithWitnessSource(nil), WithRounds(0))
	assert.NotNil(t, c.witnesses)
	assert.Equal(t, DefaultRounds, c.rounds)

	c = New(WithRounds(12))
	assert.Equal(t, 12, c.rounds)
}

func FuzzClassify(f *testing.F) {
	for _, seed := range []int64{0, 1, -1, 9, 1009, 1234567890, math.MaxInt64, math.MinInt64} {
		f.Add(seed)
	}

	c := New(WithWitnessSource(seeded()))
	f.Fuzz(func(t *testing.T, n int64) {
		v := c.Classify(n)

		if v.Number != n {
			t.Fatalf("number changed: %d -> %d", n, v.Number)
		}
		if v.Entropy < 0 {
			t.Fatalf("negative entropy %v for %d", v.Entropy, n)
		}
		if (n == 0) != (v.DigitalRoot == 0) || v.DigitalRoot > 9 || v.DigitalRoot < 0 {
			t.Fatalf("digital root %d out of range for %d", v.DigitalRoot, n)
		}
		if !v.IDType.IsValid() {
			t.Fatalf("invalid id type %q", v.IDType)
		}
		if len(v.FraudFlags) == 0 {
			t.Fatalf("empty fraud flags for %d", n)
		}
		for i, flag := range v.FraudFlags {
			if flag == FlagNone && (i > 0 || len(v.FraudFlags) > 1) {
				t.Fatalf("None mixed with other flags: %v", v.FraudFlags)
			}
		}
		if v.CryptoStrength == StrengthHigh && n < 2 {
			t.Fatalf("non-positive %d classified as High", n)
		}
	})
}
