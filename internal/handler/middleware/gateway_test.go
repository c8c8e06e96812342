package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/domain/apikey"
	"github.com/contentlens/analyzer-api/internal/gateway"
	"github.com/contentlens/analyzer-api/internal/handler/dto"
	"github.com/contentlens/analyzer-api/internal/util"
)

type stubKeyRepo struct {
	mu     sync.Mutex
	byHash map[string]*apikey.APIKey
}

func (r *stubKeyRepo) Create(ctx context.Context, key *apikey.APIKey) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byHash[key.KeyHash] = key
	return key.ID, nil
}

func (r *stubKeyRepo) FindByHash(ctx context.Context, keyHash string) (*apikey.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.byHash[keyHash]
	if !ok {
		return nil, apikey.ErrAPIKeyNotFound
	}
	keyCopy := *key
	return &keyCopy, nil
}

func (r *stubKeyRepo) FindByID(ctx context.Context, id uuid.UUID) (*apikey.APIKey, error) {
	return nil, apikey.ErrAPIKeyNotFound
}

func (r *stubKeyRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*apikey.APIKey, error) {
	return nil, nil
}

func (r *stubKeyRepo) Revoke(ctx context.Context, id uuid.UUID, reason string, revokedAt time.Time) (*apikey.APIKey, error) {
	return nil, apikey.ErrAPIKeyNotFound
}

func (r *stubKeyRepo) RecordUsage(ctx context.Context, id uuid.UUID, success bool, usedAt time.Time) error {
	return nil
}

func (r *stubKeyRepo) ResetDailyUsage(ctx context.Context) (int64, error)   { return 0, nil }
func (r *stubKeyRepo) ResetMonthlyUsage(ctx context.Context) (int64, error) { return 0, nil }
func (r *stubKeyRepo) ExpireActiveKeys(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type noopKeyCache struct{}

func (noopKeyCache) Get(ctx context.Context, keyHash string) (*apikey.APIKey, error) { return nil, nil }
func (noopKeyCache) Set(ctx context.Context, keyHash string, key *apikey.APIKey) error {
	return nil
}
func (noopKeyCache) Evict(ctx context.Context, keyHash string) error { return nil }

type stubCounterStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (s *stubCounterStore) Increment(ctx context.Context, key string, windowTTL time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
	return s.counts[key], nil
}

type gatewayFixture struct {
	router  *gin.Engine
	repo    *stubKeyRepo
	fullKey string
	key     *apikey.APIKey
}

func newGatewayFixture(t *testing.T, mutate func(*apikey.APIKey)) *gatewayFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fullKey, prefix, lastFour, keyHash, err := util.GenerateAPIKey(apikey.EnvProduction)
	require.NoError(t, err)

	limits := apikey.LimitsForTier(apikey.TierStarter)
	key := &apikey.APIKey{
		ID:                 uuid.New(),
		AccountID:          uuid.New(),
		Name:               "gateway test key",
		KeyHash:            keyHash,
		KeyPrefix:          prefix,
		LastFour:           lastFour,
		Tier:               apikey.TierStarter,
		Environment:        apikey.EnvProduction,
		RateLimitPerMinute: limits.PerMinute,
		RateLimitPerDay:    limits.PerDay,
		RateLimitPerMonth:  limits.PerMonth,
		IsActive:           true,
	}
	if mutate != nil {
		mutate(key)
	}

	repo := &stubKeyRepo{byHash: map[string]*apikey.APIKey{keyHash: key}}
	auth := gateway.NewAuthenticator(repo, noopKeyCache{}, zap.NewNop())
	limiter := gateway.NewRateLimiter(&stubCounterStore{counts: make(map[string]int64)}, zap.NewNop())

	router := gin.New()
	router.Use(APIKeyGateway(auth, limiter, zap.NewNop()))
	router.POST("/api/v1/analyze", func(c *gin.Context) {
		gotKey := GetAPIKey(c)
		result := GetRateLimitResult(c)
		if gotKey == nil || result == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "missing gateway context"})
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessEnvelope(gin.H{
			"key_id":     gotKey.ID.String(),
			"request_id": GetRequestID(c),
			"client_ip":  GetClientIP(c),
		}, &dto.Usage{
			DailyRemaining:   result.DailyRemaining,
			MonthlyRemaining: result.MonthlyRemaining,
		}))
	})

	return &gatewayFixture{router: router, repo: repo, fullKey: fullKey, key: key}
}

func (f *gatewayFixture) do(headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", nil)
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeErrorEnvelope(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorEnvelope {
	t.Helper()
	var envelope dto.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestGatewayMissingAuthorizationHeader(t *testing.T) {
	fixture := newGatewayFixture(t, nil)

	rec := fixture.do(nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	envelope := decodeErrorEnvelope(t, rec)
	assert.False(t, envelope.Success)
	assert.Equal(t, "INVALID_API_KEY", envelope.Error.Code)
}

func TestGatewayNonBearerAuthorizationHeader(t *testing.T) {
	fixture := newGatewayFixture(t, nil)

	rec := fixture.do(map[string]string{"Authorization": "Basic dXNlcjpwYXNz"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_API_KEY", decodeErrorEnvelope(t, rec).Error.Code)
}

func TestGatewayMalformedCredential(t *testing.T) {
	fixture := newGatewayFixture(t, nil)

	rec := fixture.do(map[string]string{"Authorization": "Bearer not-a-real-key"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	envelope := decodeErrorEnvelope(t, rec)
	assert.Equal(t, "INVALID_API_KEY", envelope.Error.Code)
	assert.Equal(t, "Invalid API key format", envelope.Error.Message)
}

func TestGatewayUnknownCredential(t *testing.T) {
	fixture := newGatewayFixture(t, nil)

	unknown, _, _, _, err := util.GenerateAPIKey(apikey.EnvProduction)
	require.NoError(t, err)

	rec := fixture.do(map[string]string{"Authorization": "Bearer " + unknown})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid API key", decodeErrorEnvelope(t, rec).Error.Message)
}

func TestGatewayRevokedCredential(t *testing.T) {
	fixture := newGatewayFixture(t, func(key *apikey.APIKey) {
		now := time.Now().UTC()
		key.IsActive = false
		key.RevokedAt = &now
	})

	rec := fixture.do(map[string]string{"Authorization": "Bearer " + fixture.fullKey})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "API key has been revoked", decodeErrorEnvelope(t, rec).Error.Message)
}

func TestGatewayIPAllowlist(t *testing.T) {
	fixture := newGatewayFixture(t, func(key *apikey.APIKey) {
		key.IPAllowlist = []string{"203.0.113.7"}
	})

	rec := fixture.do(map[string]string{
		"Authorization":   "Bearer " + fixture.fullKey,
		"X-Forwarded-For": "198.51.100.20, 10.0.0.1",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	envelope := decodeErrorEnvelope(t, rec)
	assert.Equal(t, "IP_NOT_WHITELISTED", envelope.Error.Code)

	rec = fixture.do(map[string]string{
		"Authorization":   "Bearer " + fixture.fullKey,
		"X-Forwarded-For": "203.0.113.7",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGatewayEmptyAllowlistAdmitsAnyIP(t *testing.T) {
	fixture := newGatewayFixture(t, nil)

	rec := fixture.do(map[string]string{
		"Authorization": "Bearer " + fixture.fullKey,
		"X-Real-IP":     "198.51.100.20",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGatewayRateLimitSequence(t *testing.T) {
	fixture := newGatewayFixture(t, nil)
	headers := map[string]string{"Authorization": "Bearer " + fixture.fullKey}

	for i := 1; i <= fixture.key.RateLimitPerMinute; i++ {
		rec := fixture.do(headers)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		remaining := fixture.key.RateLimitPerMinute - i
		assert.Equal(t, strconv.Itoa(remaining), rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec := fixture.do(headers)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	envelope := decodeErrorEnvelope(t, rec)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", envelope.Error.Code)
	assert.Equal(t, fmt.Sprintf("Rate limit exceeded: %d requests per minute", fixture.key.RateLimitPerMinute), envelope.Error.Message)
	assert.Equal(t, fixture.key.RateLimitPerMinute, envelope.Error.Limit)
	require.NotNil(t, envelope.Error.Remaining)
	assert.Equal(t, 0, *envelope.Error.Remaining)

	resetAt, err := time.Parse(time.RFC3339, envelope.Error.ResetAt)
	require.NoError(t, err)
	assert.True(t, resetAt.After(time.Now().UTC().Add(-time.Minute)))
}

func TestGatewayContextPropagation(t *testing.T) {
	fixture := newGatewayFixture(t, nil)

	rec := fixture.do(map[string]string{
		"Authorization":   "Bearer " + fixture.fullKey,
		"X-Forwarded-For": "203.0.113.7",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			KeyID     string `json:"key_id"`
			RequestID string `json:"request_id"`
			ClientIP  string `json:"client_ip"`
		} `json:"data"`
		Usage *dto.Usage `json:"usage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))

	assert.True(t, envelope.Success)
	assert.Equal(t, fixture.key.ID.String(), envelope.Data.KeyID)
	assert.Equal(t, rec.Header().Get("X-Request-Id"), envelope.Data.RequestID)
	assert.Equal(t, "203.0.113.7", envelope.Data.ClientIP)
	require.NotNil(t, envelope.Usage)
	assert.Equal(t, fixture.key.RateLimitPerDay-1, envelope.Usage.DailyRemaining)
}
