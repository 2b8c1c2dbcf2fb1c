package store

import (
	"context"
	"slices"
	"sync"

	"numintel/internal/analysis/models"
	id "numintel/pkg/domain"
	"numintel/pkg/platform/sentinel"
)

// InMemoryStore keeps records in insertion order. Intended for tests and
// STORE_DRIVER=memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []*models.Record
	byID    map[id.AnalysisID]int
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{byID: make(map[id.AnalysisID]int)}
}

// Save stores a copy of r. Returns sentinel.ErrConflict if the ID exists.
func (s *InMemoryStore) Save(ctx context.Context, r *models.Record) error {
	return s.SaveAll(ctx, []*models.Record{r})
}

// SaveAll stores every record or none.
func (s *InMemoryStore) SaveAll(_ context.Context, records []*models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[id.AnalysisID]struct{}, len(records))
	for _, r := range records {
		if _, ok := s.byID[r.ID]; ok {
			return sentinel.ErrConflict
		}
		if _, ok := seen[r.ID]; ok {
			return sentinel.ErrConflict
		}
		seen[r.ID] = struct{}{}
	}
	for _, r := range records {
		s.byID[r.ID] = len(s.records)
		s.records = append(s.records, clone(r))
	}
	return nil
}

// FindByID returns the record or sentinel.ErrNotFound.
func (s *InMemoryStore) FindByID(_ context.Context, analysisID id.AnalysisID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[analysisID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.records[i]), nil
}

// Recent returns up to filter.Limit matching records, newest first.
func (s *InMemoryStore) Recent(_ context.Context, filter models.RecentFilter) ([]*models.Record, error) {
	filter = filter.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Walk newest-inserted first so the stable sort keeps insertion order
	// as the tie-break, matching the SQL stores.
	out := make([]*models.Record, 0)
	for i := len(s.records) - 1; i >= 0; i-- {
		if filter.Matches(s.records[i]) {
			out = append(out, s.records[i])
		}
	}
	slices.SortStableFunc(out, func(a, b *models.Record) int {
		return b.AnalyzedAt.Compare(a.AnalyzedAt)
	})
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	for i, r := range out {
		out[i] = clone(r)
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func clone(r *models.Record) *models.Record {
	c := *r
	c.Verdict.FraudFlags = slices.Clone(r.Verdict.FraudFlags)
	return &c
}

// Health always succeeds.
func (s *InMemoryStore) Health(context.Context) error {
	return nil
}

// Close is a no-op.
func (s *InMemoryStore) Close() error {
	return nil
}
