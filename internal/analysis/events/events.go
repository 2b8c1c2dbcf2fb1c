// Package events announces stored analyses to downstream consumers.
package events

import (
	"context"
	"strconv"
	"time"

	"numintel/internal/analysis/models"
	"numintel/internal/classify"
)

// TypeAnalysisRecorded is emitted once per stored record.
const TypeAnalysisRecorded = "analysis.recorded"

// Event is the wire shape published for each stored record. Number is a
// decimal string so consumers with float-only JSON keep every digit.
type Event struct {
	ID             string               `json:"id"`
	Type           string               `json:"type"`
	Number         string               `json:"number"`
	Entropy        float64              `json:"entropy"`
	DigitalRoot    int                  `json:"digital_root"`
	IDType         classify.IDType      `json:"id_type"`
	CryptoStrength classify.Strength    `json:"crypto_strength"`
	Origin         classify.Origin      `json:"origin"`
	FraudFlags     []classify.FraudFlag `json:"fraud_flags"`
	AnalyzedAt     time.Time            `json:"analyzed_at"`
}

// FromRecord builds the event for a stored record.
func FromRecord(r *models.Record) Event {
	v := r.Verdict
	return Event{
		ID:             r.ID.String(),
		Type:           TypeAnalysisRecorded,
		Number:         strconv.FormatInt(v.Number, 10),
		Entropy:        v.Entropy,
		DigitalRoot:    v.DigitalRoot,
		IDType:         v.IDType,
		CryptoStrength: v.CryptoStrength,
		Origin:         v.Origin,
		FraudFlags:     v.FraudFlags,
		AnalyzedAt:     r.AnalyzedAt,
	}
}

//go:generate mockgen -source=events.go -destination=mocks/mocks.go -package=mocks Publisher

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, ...Event) error { return nil }
