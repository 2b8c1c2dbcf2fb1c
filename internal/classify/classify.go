// Package classify labels an integer from the statistics of its decimal
// digits: entropy, diversity, digital root and primality.
//
// Everything here is pure apart from the Miller-Rabin witness draws, which
// come from an injected WitnessSource. A Classifier holds no mutable state and
// may be shared between goroutines whenever its source can.
package classify

// Classifier applies the rule ladders to integers.
type Classifier struct {
	witnesses WitnessSource
	rounds    int
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithWitnessSource replaces the random source used for primality witnesses.
func WithWitnessSource(src WitnessSource) Option {
	return func(c *Classifier) {
		if src != nil {
			c.witnesses = src
		}
	}
}

// WithRounds sets the number of Miller-Rabin rounds. Non-positive values are
// ignored.
func WithRounds(k int) Option {
	return func(c *Classifier) {
		if k > 0 {
			c.rounds = k
		}
	}
}

// New builds a Classifier using DefaultWitnesses and DefaultRounds unless
// overridden.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		witnesses: DefaultWitnesses(),
		rounds:    DefaultRounds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify builds the verdict for n. Every field except CryptoStrength is a
// deterministic function of n; CryptoStrength may differ between calls only
// when a composite slips through every Miller-Rabin round.
func (c *Classifier) Classify(n int64) Verdict {
	s := digits(n)
	f := features{
		length:   len(s),
		distinct: distinct(s),
		entropy:  shannon(s),
		prime:    MillerRabin(n, c.rounds, c.witnesses),
	}

	return Verdict{
		Number:         n,
		Entropy:        f.entropy,
		DigitalRoot:    DigitalRoot(n),
		IDType:         idTypeFor(f),
		CryptoStrength: strengthFor(f),
		Origin:         originFor(f),
		FraudFlags:     flagsFor(f),
	}
}

// Classify uses a default Classifier.
func Classify(n int64) Verdict {
	return defaultClassifier.Classify(n)
}

var defaultClassifier = New()

func distinct(s string) int {
	n := 0
	for _, c := range digitCounts(s) {
		if c > 0 {
			n++
		}
	}
	return n
}
