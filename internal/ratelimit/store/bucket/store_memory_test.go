package bucket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	testLimit  = 10
	testWindow = time.Minute
)

type InMemoryBucketStoreSuite struct {
	suite.Suite
	store *InMemoryBucketStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryBucketStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryBucketStoreSuite))
}

func (s *InMemoryBucketStoreSuite) SetupTest() {
	s.now = time.Date(2024, 10, 16, 12, 0, 0, 0, time.UTC)
	s.store = NewInMemoryBucketStore(WithClock(func() time.Time { return s.now }))
	s.ctx = context.Background()
}

func (s *InMemoryBucketStoreSuite) TestAllowN() {
	s.Run("first unit allowed", func() {
		result, err := s.store.AllowN(s.ctx, "k:first", 1, testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit, result.Limit)
		s.Equal(testLimit-1, result.Remaining)
		s.Equal(s.now.Add(testWindow), result.ResetAt)
	})

	s.Run("cost consumes that many units", func() {
		result, err := s.store.AllowN(s.ctx, "k:cost", 7, testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(3, result.Remaining)
	})

	s.Run("exactly reaching the limit is allowed", func() {
		result, err := s.store.AllowN(s.ctx, "k:exact", testLimit, testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(0, result.Remaining)
	})

	s.Run("cost over remaining is denied and consumes nothing", func() {
		_, err := s.store.AllowN(s.ctx, "k:deny", 7, testLimit, testWindow)
		s.Require().NoError(err)

		result, err := s.store.AllowN(s.ctx, "k:deny", 4, testLimit, testWindow)
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal(3, result.Remaining)
		s.Equal(60, result.RetryAfter)

		count, err := s.store.CurrentCount(s.ctx, "k:deny")
		s.Require().NoError(err)
		s.Equal(7, count)

		result, err = s.store.AllowN(s.ctx, "k:deny", 3, testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
	})

	s.Run("a single request larger than the limit never fits", func() {
		result, err := s.store.AllowN(s.ctx, "k:huge", testLimit+1, testLimit, testWindow)
		s.Require().NoError(err)
		s.False(result.Allowed)
	})
}

func (s *InMemoryBucketStoreSuite) TestWindowSlides() {
	start := s.now
	_, err := s.store.AllowN(s.ctx, "k:slide", 6, testLimit, testWindow)
	s.Require().NoError(err)

	s.now = start.Add(30 * time.Second)
	_, err = s.store.AllowN(s.ctx, "k:slide", 4, testLimit, testWindow)
	s.Require().NoError(err)

	result, err := s.store.AllowN(s.ctx, "k:slide", 1, testLimit, testWindow)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Equal(start.Add(testWindow), result.ResetAt)
	s.Equal(30, result.RetryAfter)

	// the first six expire, the later four remain
	s.now = start.Add(testWindow + time.Second)
	result, err = s.store.AllowN(s.ctx, "k:slide", 6, testLimit, testWindow)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(0, result.Remaining)
}

func (s *InMemoryBucketStoreSuite) TestReset() {
	_, err := s.store.AllowN(s.ctx, "k:reset", testLimit, testLimit, testWindow)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Reset(s.ctx, "k:reset"))

	result, err := s.store.AllowN(s.ctx, "k:reset", testLimit, testLimit, testWindow)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *InMemoryBucketStoreSuite) TestSweep() {
	_, err := s.store.AllowN(s.ctx, "k:old", 1, testLimit, testWindow)
	s.Require().NoError(err)
	s.now = s.now.Add(45 * time.Second)
	_, err = s.store.AllowN(s.ctx, "k:new", 1, testLimit, testWindow)
	s.Require().NoError(err)

	s.now = s.now.Add(20 * time.Second)
	s.Equal(1, s.store.Sweep())

	count, err := s.store.CurrentCount(s.ctx, "k:new")
	s.Require().NoError(err)
	s.Equal(1, count)
}

func TestInMemoryBucketStore_Concurrent(t *testing.T) {
	store := NewInMemoryBucketStore()
	ctx := context.Background()
	const limit = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for range 200 {
		wg.Go(func() {
			result, err := store.AllowN(ctx, "k:concurrent", 1, limit, testWindow)
			require.NoError(t, err)
			if result.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	require.Equal(t, limit, allowed)
}
