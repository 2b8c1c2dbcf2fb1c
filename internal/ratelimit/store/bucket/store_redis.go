package bucket

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"numintel/internal/ratelimit/models"
)

// RedisBucketStore keeps each window as a sorted set of unit members scored by
// their millisecond timestamp, so every replica sees the same limit.
//
// AllowN adds its members optimistically inside MULTI/EXEC and removes them
// again when the resulting cardinality exceeds the limit. Concurrent callers
// can therefore be denied slightly early but never over-admitted.
type RedisBucketStore struct {
	client redis.Cmdable
	now    func() time.Time
}

// NewRedis creates a store on top of any go-redis client.
func NewRedis(client redis.Cmdable) *RedisBucketStore {
	return &RedisBucketStore{client: client, now: time.Now}
}

func (s *RedisBucketStore) AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (*models.Result, error) {
	now := s.now()
	nowMs := now.UnixMilli()
	cutoff := nowMs - window.Milliseconds()

	members := make([]redis.Z, cost)
	names := make([]any, cost)
	batch := uuid.NewString()
	for i := range members {
		name := batch + ":" + strconv.Itoa(i)
		members[i] = redis.Z{Score: float64(nowMs), Member: name}
		names[i] = name
	}

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))
	if cost > 0 {
		pipe.ZAdd(ctx, key, members...)
	}
	card := pipe.ZCard(ctx, key)
	oldest := pipe.ZRangeWithScores(ctx, key, 0, 0)
	pipe.PExpire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rate limit check for %s: %w", key, err)
	}

	count := int(card.Val())
	resetAt := now.Add(window)
	if first := oldest.Val(); len(first) > 0 {
		resetAt = time.UnixMilli(int64(first[0].Score)).Add(window)
	}

	if count > limit {
		if cost > 0 {
			if err := s.client.ZRem(ctx, key, names...).Err(); err != nil {
				return nil, fmt.Errorf("rate limit rollback for %s: %w", key, err)
			}
		}
		return &models.Result{
			Allowed:    false,
			Limit:      limit,
			Remaining:  max(limit-(count-cost), 0),
			ResetAt:    resetAt,
			RetryAfter: models.RetryAfterSeconds(now, resetAt),
		}, nil
	}

	return &models.Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - count,
		ResetAt:   resetAt,
	}, nil
}

// Reset clears the window for key.
func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// CurrentCount returns the unit count stored for key. Expired members linger
// until the next AllowN on the key trims them.
func (s *RedisBucketStore) CurrentCount(ctx context.Context, key string) (int, error) {
	n, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", key, err)
	}
	return int(n), nil
}
