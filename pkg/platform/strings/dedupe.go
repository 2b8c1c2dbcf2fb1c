// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each value and drops empties and repeats, keeping the
// first occurrence. It is used for repeated query parameters such as
// ?id_type=OTP%20/%20PIN&id_type=Generic%20ID.
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// DedupeAndCollapse is like DedupeAndTrim but also collapses inner runs of
// whitespace to one space, so "OTP  /  PIN" and "OTP / PIN" compare equal.
func DedupeAndCollapse(values []string) []string {
	return dedupe(values, func(s string) string {
		return strings.Join(strings.Fields(s), " ")
	})
}

func dedupe(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		n := normalize(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		result = append(result, n)
	}
	return result
}
