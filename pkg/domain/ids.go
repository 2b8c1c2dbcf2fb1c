// Package domain holds typed primitives parsed at trust boundaries.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "numintel/pkg/domain-errors"
)

// AnalysisID identifies a persisted classification.
type AnalysisID uuid.UUID

// NewAnalysisID returns a fresh random ID.
func NewAnalysisID() AnalysisID {
	return AnalysisID(uuid.New())
}

// ParseAnalysisID parses a non-nil UUID.
func ParseAnalysisID(s string) (AnalysisID, error) {
	if strings.TrimSpace(s) == "" {
		return AnalysisID{}, dErrors.New(dErrors.CodeInvalidInput, "analysis id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return AnalysisID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid analysis id")
	}
	if parsed == uuid.Nil {
		return AnalysisID{}, dErrors.New(dErrors.CodeInvalidInput, "analysis id cannot be nil")
	}
	return AnalysisID(parsed), nil
}

func (id AnalysisID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the ID is the zero UUID.
func (id AnalysisID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// MarshalText renders the canonical UUID form so JSON carries a string.
func (id AnalysisID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses with the same rules as ParseAnalysisID.
func (id *AnalysisID) UnmarshalText(b []byte) error {
	parsed, err := ParseAnalysisID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
