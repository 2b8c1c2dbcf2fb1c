package classify

// Thresholds used by the rule ladders.
const (
	highStrengthEntropy = 3.2
	lowStrengthEntropy  = 2.4
	humanEntropy        = 2.3
	systemEntropy       = 3.0
	lowEntropyFlag      = 2.2
	lowDiversityMax     = 3
)

// features holds everything the rule ladders look at.
type features struct {
	length   int
	distinct int
	entropy  float64
	prime    bool
}

// Each ladder is evaluated top to bottom; the first matching guard wins, so
// the order of entries is part of the rule set.
type idTypeRule struct {
	match func(f features) bool
	value IDType
}

type strengthRule struct {
	match func(f features) bool
	value Strength
}

type originRule struct {
	match func(f features) bool
	value Origin
}

type flagRule struct {
	match func(f features) bool
	value FraudFlag
}

var idTypeRules = []idTypeRule{
	{func(f features) bool { return f.length == 4 || f.length == 6 }, IDTypeOTP},
	{func(f features) bool { return f.length == 10 || f.length == 11 }, IDTypePhone},
	{func(f features) bool { return f.length >= 16 }, IDTypeToken},
}

var strengthRules = []strengthRule{
	{func(f features) bool { return f.prime && f.entropy > highStrengthEntropy }, StrengthHigh},
	{func(f features) bool { return f.entropy < lowStrengthEntropy }, StrengthLow},
}

var originRules = []originRule{
	{func(f features) bool { return f.entropy < humanEntropy }, OriginHuman},
	{func(f features) bool { return f.entropy < systemEntropy }, OriginSystem},
}

// flagRules are all evaluated; every match is reported in this order.
var flagRules = []flagRule{
	{func(f features) bool { return f.distinct <= lowDiversityMax }, FlagLowDiversity},
	{func(f features) bool { return f.entropy < lowEntropyFlag }, FlagLowEntropy},
}

func idTypeFor(f features) IDType {
	for _, r := range idTypeRules {
		if r.match(f) {
			return r.value
		}
	}
	return IDTypeGeneric
}

func strengthFor(f features) Strength {
	for _, r := range strengthRules {
		if r.match(f) {
			return r.value
		}
	}
	return StrengthMedium
}

func originFor(f features) Origin {
	for _, r := range originRules {
		if r.match(f) {
			return r.value
		}
	}
	return OriginRandom
}

func flagsFor(f features) []FraudFlag {
	flags := make([]FraudFlag, 0, len(flagRules))
	for _, r := range flagRules {
		if r.match(f) {
			flags = append(flags, r.value)
		}
	}
	if len(flags) == 0 {
		return []FraudFlag{FlagNone}
	}
	return flags
}
