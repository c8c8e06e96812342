package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/domain/apikey"
	"github.com/contentlens/analyzer-api/internal/ierr"
	"github.com/contentlens/analyzer-api/internal/util"
)

// KeyCache is the short-TTL credential cache consulted before the key
// store. Get returns (nil, nil) on a miss.
type KeyCache interface {
	Get(ctx context.Context, keyHash string) (*apikey.APIKey, error)
	Set(ctx context.Context, keyHash string, key *apikey.APIKey) error
	Evict(ctx context.Context, keyHash string) error
}

// Authenticator turns a bearer credential into a validated key record or a
// precise rejection. It has no side effects: aggregates and last-used are
// the recorder's job, which keeps this path idempotent and cacheable.
type Authenticator struct {
	repo   apikey.Repository
	cache  KeyCache
	logger *zap.Logger
}

func NewAuthenticator(repo apikey.Repository, cache KeyCache, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		repo:   repo,
		cache:  cache,
		logger: logger.Named("Authenticator"),
	}
}

func (a *Authenticator) Authenticate(ctx context.Context, credential string) (*apikey.APIKey, error) {
	// Structural check first: garbage input never costs a hash or a
	// store round-trip.
	if !util.MatchesCredentialFormat(credential) {
		return nil, fmt.Errorf("%w: credential does not match expected format", ierr.ErrAPIKeyMalformed)
	}

	keyHash := util.HashAPIKey(credential)

	key, err := a.cache.Get(ctx, keyHash)
	if err != nil {
		// Cache trouble is not fatal for authentication; fall through
		// to the store.
		a.logger.Warn("Key cache lookup failed, falling back to store", zap.Error(err))
		key = nil
	}

	if key == nil {
		key, err = a.repo.FindByHash(ctx, keyHash)
		if err != nil {
			if errors.Is(err, apikey.ErrAPIKeyNotFound) {
				return nil, ierr.ErrAPIKeyInvalid
			}
			a.logger.Error("Key store lookup failed", zap.Error(err))
			return nil, fmt.Errorf("%w: key store lookup failed", ierr.ErrInternalServer)
		}

		if cacheErr := a.cache.Set(ctx, keyHash, key); cacheErr != nil {
			a.logger.Warn("Failed to populate key cache", zap.String("key_id", key.ID.String()), zap.Error(cacheErr))
		}
	}

	if !key.IsActive || key.RevokedAt != nil {
		a.logger.Warn("Rejected revoked api key", zap.String("key_id", key.ID.String()))
		return nil, ierr.ErrAPIKeyRevoked
	}

	if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now().UTC()) {
		a.logger.Warn("Rejected expired api key", zap.String("key_id", key.ID.String()), zap.Time("expires_at", *key.ExpiresAt))
		return nil, ierr.ErrAPIKeyExpired
	}

	return key, nil
}
