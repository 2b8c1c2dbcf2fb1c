package store

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"numintel/internal/analysis/models"
	"numintel/internal/classify"
	id "numintel/pkg/domain"
	"numintel/pkg/platform/sentinel"
)

// analysisStore is the surface every implementation shares.
type analysisStore interface {
	Save(ctx context.Context, r *models.Record) error
	SaveAll(ctx context.Context, records []*models.Record) error
	FindByID(ctx context.Context, analysisID id.AnalysisID) (*models.Record, error)
	Recent(ctx context.Context, filter models.RecentFilter) ([]*models.Record, error)
	Count(ctx context.Context) (int, error)
}

// storeContractSuite runs the same behaviour checks against each store.
// Embedding suites set newStore in SetupTest.
type storeContractSuite struct {
	suite.Suite
	store analysisStore
	base  time.Time
}

func (s *storeContractSuite) record(n int64, offset time.Duration) *models.Record {
	return models.NewRecord(classify.Classify(n), s.base.Add(offset))
}

func (s *storeContractSuite) TestSaveAndFindRoundTrip() {
	ctx := context.Background()
	for _, n := range []int64{0, 1009, -1009, 1234567890, math.MaxInt64, math.MinInt64} {
		r := s.record(n, 0)
		s.Require().NoError(s.store.Save(ctx, r))

		got, err := s.store.FindByID(ctx, r.ID)
		s.Require().NoError(err)
		s.Equal(r.ID, got.ID)
		s.Equal(r.Verdict, got.Verdict, "n=%d", n)
		s.True(r.AnalyzedAt.Equal(got.AnalyzedAt), "n=%d: %s vs %s", n, r.AnalyzedAt, got.AnalyzedAt)
	}
}

func (s *storeContractSuite) TestFindMissing() {
	_, err := s.store.FindByID(context.Background(), id.NewAnalysisID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *storeContractSuite) TestDuplicateIDConflicts() {
	ctx := context.Background()
	r := s.record(42, 0)
	s.Require().NoError(s.store.Save(ctx, r))
	s.ErrorIs(s.store.Save(ctx, r), sentinel.ErrConflict)
}

func (s *storeContractSuite) TestSaveAllIsAtomic() {
	ctx := context.Background()
	existing := s.record(7, 0)
	s.Require().NoError(s.store.Save(ctx, existing))

	batch := []*models.Record{s.record(1, time.Second), s.record(2, time.Second), existing}
	s.ErrorIs(s.store.SaveAll(ctx, batch), sentinel.ErrConflict)

	count, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *storeContractSuite) TestRecentNewestFirst() {
	ctx := context.Background()
	old := s.record(1111, 0)
	s.Require().NoError(s.store.Save(ctx, old))

	// One batch shares a timestamp; insertion order breaks the tie.
	batch := []*models.Record{s.record(2222, time.Minute), s.record(3333, time.Minute), s.record(4444, time.Minute)}
	s.Require().NoError(s.store.SaveAll(ctx, batch))

	got, err := s.store.Recent(ctx, models.RecentFilter{Limit: 3})
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal(int64(4444), got[0].Verdict.Number)
	s.Equal(int64(3333), got[1].Verdict.Number)
	s.Equal(int64(2222), got[2].Verdict.Number)

	all, err := s.store.Recent(ctx, models.RecentFilter{})
	s.Require().NoError(err)
	s.Len(all, 4)
	s.Equal(int64(1111), all[3].Verdict.Number)
}

func (s *storeContractSuite) TestRecentFiltersByIDType() {
	ctx := context.Background()
	s.Require().NoError(s.store.SaveAll(ctx, []*models.Record{
		s.record(1009, 0),                  // OTP / PIN
		s.record(1234567890, time.Second),  // Phone / Account
		s.record(123456, 2*time.Second),    // OTP / PIN
		s.record(12345, 3*time.Second),     // Generic ID
	}))

	got, err := s.store.Recent(ctx, models.RecentFilter{IDTypes: []classify.IDType{classify.IDTypeOTP}})
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(int64(123456), got[0].Verdict.Number)
	s.Equal(int64(1009), got[1].Verdict.Number)

	got, err = s.store.Recent(ctx, models.RecentFilter{IDTypes: []classify.IDType{classify.IDTypePhone, classify.IDTypeGeneric}})
	s.Require().NoError(err)
	s.Len(got, 2)

	got, err = s.store.Recent(ctx, models.RecentFilter{IDTypes: []classify.IDType{classify.IDTypeToken}})
	s.Require().NoError(err)
	s.NotNil(got)
	s.Empty(got)
}

func (s *storeContractSuite) TestEmptyStore() {
	ctx := context.Background()
	got, err := s.store.Recent(ctx, models.RecentFilter{})
	s.Require().NoError(err)
	s.NotNil(got)
	s.Empty(got)

	count, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *storeContractSuite) TestConcurrentSaves() {
	ctx := context.Background()
	const writers = 20

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.store.Save(ctx, s.record(int64(1000+i), time.Duration(i)*time.Millisecond))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	count, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.Equal(writers, count)
}
