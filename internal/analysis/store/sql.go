package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"numintel/internal/analysis/models"
	"numintel/internal/classify"
	id "numintel/pkg/domain"
)

const selectColumns = `id, number, entropy, digital_root, id_type, crypto_strength, origin, fraud_flags, analyzed_at`

// row is the column layout shared by the SQL stores. Numbers are kept as
// TEXT so every int64 round-trips exactly.
type row struct {
	id             string
	number         string
	entropy        float64
	digitalRoot    int
	idType         string
	cryptoStrength string
	origin         string
	fraudFlags     string
}

func toRow(r *models.Record) row {
	v := r.Verdict
	return row{
		id:             r.ID.String(),
		number:         strconv.FormatInt(v.Number, 10),
		entropy:        v.Entropy,
		digitalRoot:    v.DigitalRoot,
		idType:         string(v.IDType),
		cryptoStrength: string(v.CryptoStrength),
		origin:         string(v.Origin),
		fraudFlags:     models.JoinFlags(v.FraudFlags),
	}
}

func (w row) toRecord() (*models.Record, error) {
	analysisID, err := id.ParseAnalysisID(w.id)
	if err != nil {
		return nil, fmt.Errorf("scan analysis id %q: %w", w.id, err)
	}
	n, err := strconv.ParseInt(w.number, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("scan number %q: %w", w.number, err)
	}
	return &models.Record{
		ID: analysisID,
		Verdict: classify.Verdict{
			Number:         n,
			Entropy:        w.entropy,
			DigitalRoot:    w.digitalRoot,
			IDType:         classify.IDType(w.idType),
			CryptoStrength: classify.Strength(w.cryptoStrength),
			Origin:         classify.Origin(w.origin),
			FraudFlags:     models.SplitFlags(w.fraudFlags),
		},
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row; scanTime converts the analyzed_at destination
// after the scan since the drivers hand it back in different shapes.
func scanRecord[T any](s scanner, scanTime func(T) (time.Time, error)) (*models.Record, error) {
	var (
		w  row
		at T
	)
	if err := s.Scan(&w.id, &w.number, &w.entropy, &w.digitalRoot, &w.idType,
		&w.cryptoStrength, &w.origin, &w.fraudFlags, &at); err != nil {
		return nil, err
	}
	rec, err := w.toRecord()
	if err != nil {
		return nil, err
	}
	if rec.AnalyzedAt, err = scanTime(at); err != nil {
		return nil, err
	}
	return rec, nil
}

func collect[T any](rows *sql.Rows, scanTime func(T) (time.Time, error)) ([]*models.Record, error) {
	defer rows.Close()
	out := make([]*models.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows, scanTime)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
