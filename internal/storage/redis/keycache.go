package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/domain/apikey"
)

const keyCachePrefix = "apikey:"

// KeyCache stores validated key records keyed by credential hash for the
// authenticator's short-TTL lookup path.
type KeyCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewKeyCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *KeyCache {
	return &KeyCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("KeyCache"),
	}
}

// Get returns the cached record for the hash, or (nil, nil) on a miss.
func (c *KeyCache) Get(ctx context.Context, keyHash string) (*apikey.APIKey, error) {
	payload, err := c.client.Get(ctx, keyCachePrefix+keyHash).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis error reading key cache: %w", err)
	}

	var key apikey.APIKey
	if err := json.Unmarshal(payload, &key); err != nil {
		// A corrupt entry behaves like a miss; the store lookup will
		// overwrite it.
		c.logger.Warn("Dropping undecodable key cache entry", zap.Error(err))
		return nil, nil
	}
	return &key, nil
}

func (c *KeyCache) Set(ctx context.Context, keyHash string, key *apikey.APIKey) error {
	payload, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("failed to encode key record for cache: %w", err)
	}
	if err := c.client.Set(ctx, keyCachePrefix+keyHash, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis error writing key cache: %w", err)
	}
	return nil
}

// Evict removes the cached record. Revocation calls this synchronously so a
// revoked key cannot keep authenticating for the rest of the TTL.
func (c *KeyCache) Evict(ctx context.Context, keyHash string) error {
	if err := c.client.Del(ctx, keyCachePrefix+keyHash).Err(); err != nil {
		return fmt.Errorf("redis error evicting key cache: %w", err)
	}
	return nil
}
