package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	dErrors "numintel/pkg/domain-errors"
)

// maxNumberLen bounds raw input before parsing; int64 needs at most 20 runes.
const maxNumberLen = 32

// ParseNumber parses a base-10 integer that fits in int64. Surrounding spaces
// and a leading sign are accepted; fractions, exponents, separators and
// anything out of range are not.
func ParseNumber(s string) (int64, error) {
	if len(s) > maxNumberLen {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "number is too long")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "number is required")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return 0, dErrors.New(dErrors.CodeInvalidInput, "number is out of range")
		}
		return 0, dErrors.New(dErrors.CodeInvalidInput, "number must be an integer")
	}
	return n, nil
}

// Number is an int64 that decodes from either a JSON integer or a JSON string
// holding one.
type Number int64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return dErrors.New(dErrors.CodeInvalidInput, "number is required")
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return dErrors.New(dErrors.CodeInvalidInput, "number must be an integer")
		}
		raw = s
	}
	v, err := ParseNumber(raw)
	if err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

// Int64 returns the underlying value.
func (n Number) Int64() int64 {
	return int64(n)
}
