package classify

// IDType is the likely identifier family, derived from digit count alone.
type IDType string

const (
	IDTypeOTP     IDType = "OTP / PIN"
	IDTypePhone   IDType = "Phone / Account"
	IDTypeToken   IDType = "Token / Key"
	IDTypeGeneric IDType = "Generic ID"
)

// IsValid checks if the id type is one of the supported enum values.
func (t IDType) IsValid() bool {
	switch t {
	case IDTypeOTP, IDTypePhone, IDTypeToken, IDTypeGeneric:
		return true
	}
	return false
}

// ParseIDType validates a raw id type label.
func ParseIDType(s string) (IDType, bool) {
	t := IDType(s)
	return t, t.IsValid()
}

// Strength is the apparent cryptographic strength of a number.
type Strength string

const (
	StrengthLow    Strength = "Low"
	StrengthMedium Strength = "Medium"
	StrengthHigh   Strength = "High"
)

// Origin guesses who produced the number.
type Origin string

const (
	OriginHuman  Origin = "Human"
	OriginSystem Origin = "System"
	OriginRandom Origin = "Random"
)

// FraudFlag labels a fraud-risk signal.
type FraudFlag string

const (
	FlagLowDiversity FraudFlag = "Low digit diversity"
	FlagLowEntropy   FraudFlag = "Low entropy"
	FlagNone         FraudFlag = "None"
)

// Verdict is the fixed-shape classification of a single integer. It is built
// once by Classify and never mutated.
type Verdict struct {
	Number         int64       `json:"number"`
	Entropy        float64     `json:"entropy"`
	DigitalRoot    int         `json:"digital_root"`
	IDType         IDType      `json:"id_type"`
	CryptoStrength Strength    `json:"crypto_strength"`
	Origin         Origin      `json:"origin"`
	FraudFlags     []FraudFlag `json:"fraud_flags"`
}

// Flagged reports whether any fraud signal fired.
func (v Verdict) Flagged() bool {
	return len(v.FraudFlags) > 0 && v.FraudFlags[0] != FlagNone
}
