package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"numintel/internal/classify"
)

func TestFlags_RoundTrip(t *testing.T) {
	both := []classify.FraudFlag{classify.FlagLowDiversity, classify.FlagLowEntropy}

	assert.Equal(t, "Low digit diversity,Low entropy", JoinFlags(both))
	assert.Equal(t, both, SplitFlags(JoinFlags(both)))
	assert.Equal(t, []classify.FraudFlag{classify.FlagNone}, SplitFlags(JoinFlags([]classify.FraudFlag{classify.FlagNone})))
}

func TestSplitFlags_Lenient(t *testing.T) {
	assert.Equal(t, []classify.FraudFlag{classify.FlagNone}, SplitFlags(""))
	assert.Equal(t, []classify.FraudFlag{classify.FlagNone}, SplitFlags(" , "))
	assert.Equal(t,
		[]classify.FraudFlag{classify.FlagLowDiversity, classify.FlagLowEntropy},
		SplitFlags("Low digit diversity, Low entropy"))
}

func TestRecentFilter_Normalize(t *testing.T) {
	assert.Equal(t, DefaultRecentLimit, RecentFilter{}.Normalize().Limit)
	assert.Equal(t, DefaultRecentLimit, RecentFilter{Limit: -3}.Normalize().Limit)
	assert.Equal(t, 7, RecentFilter{Limit: 7}.Normalize().Limit)
	assert.Equal(t, MaxRecentLimit, RecentFilter{Limit: MaxRecentLimit + 1}.Normalize().Limit)
}

func TestRecentFilter_Matches(t *testing.T) {
	otp := &Record{Verdict: classify.Verdict{IDType: classify.IDTypeOTP}}
	token := &Record{Verdict: classify.Verdict{IDType: classify.IDTypeToken}}

	assert.True(t, RecentFilter{}.Matches(otp))

	f := RecentFilter{IDTypes: []classify.IDType{classify.IDTypeOTP, classify.IDTypePhone}}
	assert.True(t, f.Matches(otp))
	assert.False(t, f.Matches(token))
	assert.Equal(t, []string{"OTP / PIN", "Phone / Account"}, f.IDTypeStrings())
}

func TestNewRecord(t *testing.T) {
	at := time.Date(2024, 10, 16, 12, 0, 0, 0, time.FixedZone("X", 3600))
	r := NewRecord(classify.Verdict{Number: 42}, at)

	assert.False(t, r.ID.IsNil())
	assert.Equal(t, time.UTC, r.AnalyzedAt.Location())
	assert.True(t, at.Equal(r.AnalyzedAt))
	assert.Equal(t, int64(42), r.Verdict.Number)
}
