package models

import (
	"strings"
	"time"

	"numintel/internal/classify"
	id "numintel/pkg/domain"
)

// Record is one stored classification.
type Record struct {
	ID         id.AnalysisID    `json:"id"`
	Verdict    classify.Verdict `json:"verdict"`
	AnalyzedAt time.Time        `json:"analyzed_at"`
}

// NewRecord stamps a verdict with a fresh ID and the given time, in UTC at
// microsecond precision so every store round-trips it exactly.
func NewRecord(v classify.Verdict, at time.Time) *Record {
	return &Record{
		ID:         id.NewAnalysisID(),
		Verdict:    v,
		AnalyzedAt: at.UTC().Truncate(time.Microsecond),
	}
}

// flagSeparator joins fraud flags in the numbers.db fraud_flags column.
const flagSeparator = ","

// JoinFlags renders fraud flags as the single text column stored in SQL.
func JoinFlags(flags []classify.FraudFlag) string {
	parts := make([]string, len(flags))
	for i, f := range flags {
		parts[i] = string(f)
	}
	return strings.Join(parts, flagSeparator)
}

// SplitFlags parses the fraud_flags column. An empty column reads as
// ["None"] so stored records keep the non-empty invariant.
func SplitFlags(s string) []classify.FraudFlag {
	var flags []classify.FraudFlag
	for part := range strings.SplitSeq(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			flags = append(flags, classify.FraudFlag(p))
		}
	}
	if len(flags) == 0 {
		return []classify.FraudFlag{classify.FlagNone}
	}
	return flags
}

// DefaultRecentLimit applies when a caller asks for no particular size.
const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 500
)

// RecentFilter selects the newest records, optionally restricted to a set of
// id types.
type RecentFilter struct {
	Limit   int
	IDTypes []classify.IDType
}

// Normalize clamps Limit into [1, MaxRecentLimit].
func (f RecentFilter) Normalize() RecentFilter {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultRecentLimit
	case f.Limit > MaxRecentLimit:
		f.Limit = MaxRecentLimit
	}
	return f
}

// Matches reports whether r passes the id type restriction.
func (f RecentFilter) Matches(r *Record) bool {
	if len(f.IDTypes) == 0 {
		return true
	}
	for _, t := range f.IDTypes {
		if r.Verdict.IDType == t {
			return true
		}
	}
	return false
}

// IDTypeStrings returns the filter's id types as plain strings for SQL
// parameters.
func (f RecentFilter) IDTypeStrings() []string {
	out := make([]string, len(f.IDTypes))
	for i, t := range f.IDTypes {
		out[i] = string(t)
	}
	return out
}
