package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore exposes Redis' atomic increment for the rate limiter's
// window counters. Atomicity of INCR is what keeps concurrent requests
// from overshooting a ceiling.
type CounterStore struct {
	client *redis.Client
}

func NewCounterStore(client *redis.Client) *CounterStore {
	return &CounterStore{client: client}
}

// Increment atomically bumps the counter and returns the post-increment
// value. When the returned value is 1 the bucket was just created and its
// expiration is set to the window length, so idle buckets clean themselves
// up without a sweep.
func (s *CounterStore) Increment(ctx context.Context, key string, windowTTL time.Duration) (int64, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis error incrementing counter %s: %w", key, err)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, windowTTL).Err(); err != nil {
			return 0, fmt.Errorf("redis error setting counter ttl %s: %w", key, err)
		}
	}
	return count, nil
}
