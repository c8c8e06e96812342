package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/domain/apikey"
	"github.com/contentlens/analyzer-api/internal/gateway"
	"github.com/contentlens/analyzer-api/internal/handler/dto"
	"github.com/contentlens/analyzer-api/internal/ierr"
	"github.com/contentlens/analyzer-api/internal/util"
)

type APIKeyService struct {
	repo   apikey.Repository
	cache  gateway.KeyCache
	logger *zap.Logger
}

func NewAPIKeyService(repo apikey.Repository, cache gateway.KeyCache, logger *zap.Logger) *APIKeyService {
	return &APIKeyService{
		repo:   repo,
		cache:  cache,
		logger: logger.Named("APIKeyService"),
	}
}

// CreateAPIKey mints a credential for the account and persists its record.
// The plaintext key exists only in the returned response; afterwards only
// the hash remains.
func (s *APIKeyService) CreateAPIKey(ctx context.Context, accountID uuid.UUID, req *dto.CreateAPIKeyRequest) (*dto.CreateAPIKeyResponse, error) {
	tier := apikey.Tier(req.Tier)
	if !apikey.ValidTier(tier) {
		return nil, fmt.Errorf("%w: unknown tier %q", ierr.ErrValidation, req.Tier)
	}

	env := apikey.EnvProduction
	if req.Environment != "" {
		env = apikey.Environment(req.Environment)
	}

	fullKey, prefix, lastFour, keyHash, err := util.GenerateAPIKey(env)
	if err != nil {
		s.logger.Error("Failed to generate api key components", zap.Error(err))
		return nil, fmt.Errorf("%w: failed generating key: %v", ierr.ErrInternalServer, err)
	}

	limits := apikey.LimitsForTier(tier)
	newKey := &apikey.APIKey{
		AccountID:          accountID,
		Name:               req.Name,
		KeyHash:            keyHash,
		KeyPrefix:          prefix,
		LastFour:           lastFour,
		Tier:               tier,
		Environment:        env,
		RateLimitPerMinute: limits.PerMinute,
		RateLimitPerDay:    limits.PerDay,
		RateLimitPerMonth:  limits.PerMonth,
		IsActive:           true,
		ExpiresAt:          req.ExpiresAt,
		IPAllowlist:        req.IPAllowlist,
	}

	insertedID, err := s.repo.Create(ctx, newKey)
	if err != nil {
		s.logger.Error("Failed to save new api key", zap.Error(err))
		return nil, fmt.Errorf("repository error creating api key: %w", err)
	}

	s.logger.Info("API key created",
		zap.String("id", insertedID.String()),
		zap.String("account_id", accountID.String()),
		zap.String("tier", string(tier)),
	)

	return &dto.CreateAPIKeyResponse{
		ID:        insertedID,
		FullKey:   fullKey,
		KeyPrefix: prefix,
		LastFour:  lastFour,
		Name:      req.Name,
		Tier:      tier,
		Limits: dto.LimitsPayload{
			PerMinute: limits.PerMinute,
			PerDay:    limits.PerDay,
			PerMonth:  limits.PerMonth,
		},
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (s *APIKeyService) ListAPIKeys(ctx context.Context, accountID uuid.UUID) ([]*dto.APIKeyResponse, error) {
	keys, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		s.logger.Error("Failed to list api keys from repository", zap.Error(err))
		return nil, fmt.Errorf("repository error listing api keys: %w", err)
	}

	responses := make([]*dto.APIKeyResponse, len(keys))
	for i, key := range keys {
		responses[i] = dto.NewAPIKeyResponse(key)
	}
	return responses, nil
}

// RevokeAPIKey soft-deletes the key and then evicts its cache entry. The
// eviction is synchronous: returning success while the old record is still
// cached would let a revoked key authenticate until the TTL runs out.
func (s *APIKeyService) RevokeAPIKey(ctx context.Context, id uuid.UUID, reason string) error {
	if reason == "" {
		reason = "revoked by owner"
	}

	key, err := s.repo.Revoke(ctx, id, reason, time.Now().UTC())
	if err != nil {
		if errors.Is(err, apikey.ErrAPIKeyNotFound) {
			return fmt.Errorf("%w: %w", ierr.ErrNotFound, err)
		}
		s.logger.Error("Failed to revoke api key via repository", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("repository error revoking api key %s: %w", id, err)
	}

	if err := s.cache.Evict(ctx, key.KeyHash); err != nil {
		s.logger.Error("Failed to evict revoked key from cache", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("cache eviction failed for revoked key %s: %w", id, err)
	}

	s.logger.Info("API key revoked and cache evicted", zap.String("id", id.String()), zap.String("reason", reason))
	return nil
}
