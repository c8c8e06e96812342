package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const analysisCachePrefix = "analysis:"

// AnalysisCache keeps finished analysis payloads keyed by content hash so
// identical documents are not re-analyzed within the cache window.
type AnalysisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAnalysisCache(client *redis.Client, ttl time.Duration) *AnalysisCache {
	return &AnalysisCache{client: client, ttl: ttl}
}

func (c *AnalysisCache) Get(ctx context.Context, contentHash string) ([]byte, error) {
	payload, err := c.client.Get(ctx, analysisCachePrefix+contentHash).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis error reading analysis cache: %w", err)
	}
	return payload, nil
}

func (c *AnalysisCache) Set(ctx context.Context, contentHash string, payload []byte) error {
	if err := c.client.Set(ctx, analysisCachePrefix+contentHash, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis error writing analysis cache: %w", err)
	}
	return nil
}
