package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "numintel/pkg/domain-errors"
)

// TestParseAnalysisID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseAnalysisID_Invariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE analysis;--", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Empty string", "", true},
		{"Whitespace only", "   ", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAnalysisID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewAnalysisID(t *testing.T) {
	a, b := NewAnalysisID(), NewAnalysisID()
	assert.False(t, a.IsNil())
	assert.NotEqual(t, a, b)

	parsed, err := ParseAnalysisID(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)
}

func TestAnalysisID_JSON(t *testing.T) {
	a := NewAnalysisID()

	raw, err := json.Marshal(map[string]AnalysisID{"id": a})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+a.String()+`"}`, string(raw))

	var back map[string]AnalysisID
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, a, back["id"])

	assert.Error(t, json.Unmarshal([]byte(`{"id":"nope"}`), &back))
}
