package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, publishers and limiters
// return these (optionally wrapped) so services can translate them into
// domain errors:
//   - ErrNotFound: record does not exist in store
//   - ErrConflict: record ID already stored
//   - ErrUnavailable: backing service unreachable or closed
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
