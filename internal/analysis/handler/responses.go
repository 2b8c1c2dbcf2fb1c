package handler

import (
	"time"

	"numintel/internal/analysis/models"
	"numintel/internal/classify"
)

// AnalysisResponse is the verdict with the stored record's identity.
type AnalysisResponse struct {
	classify.Verdict
	ID         string    `json:"id"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// ListResponse wraps GET /analyses results.
type ListResponse struct {
	Analyses []AnalysisResponse `json:"analyses"`
	Count    int                `json:"count"`
}

// FromRecord maps a stored record to its response shape.
func FromRecord(r *models.Record) AnalysisResponse {
	return AnalysisResponse{
		Verdict:    r.Verdict,
		ID:         r.ID.String(),
		AnalyzedAt: r.AnalyzedAt,
	}
}

func fromRecords(records []*models.Record) []AnalysisResponse {
	out := make([]AnalysisResponse, len(records))
	for i, r := range records {
		out[i] = FromRecord(r)
	}
	return out
}
