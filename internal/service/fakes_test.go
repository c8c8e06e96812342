package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/contentlens/analyzer-api/internal/analyzer"
	"github.com/contentlens/analyzer-api/internal/domain/apikey"
)

type fakeKeyRepo struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*apikey.APIKey
	created []*apikey.APIKey
}

func newFakeKeyRepo() *fakeKeyRepo {
	return &fakeKeyRepo{byID: make(map[uuid.UUID]*apikey.APIKey)}
}

var _ apikey.Repository = (*fakeKeyRepo)(nil)

func (r *fakeKeyRepo) Create(ctx context.Context, key *apikey.APIKey) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	r.byID[key.ID] = key
	r.created = append(r.created, key)
	return key.ID, nil
}

func (r *fakeKeyRepo) FindByHash(ctx context.Context, keyHash string) (*apikey.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range r.byID {
		if key.KeyHash == keyHash {
			keyCopy := *key
			return &keyCopy, nil
		}
	}
	return nil, apikey.ErrAPIKeyNotFound
}

func (r *fakeKeyRepo) FindByID(ctx context.Context, id uuid.UUID) (*apikey.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.byID[id]
	if !ok {
		return nil, apikey.ErrAPIKeyNotFound
	}
	keyCopy := *key
	return &keyCopy, nil
}

func (r *fakeKeyRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*apikey.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []*apikey.APIKey
	for _, key := range r.created {
		if key.AccountID == accountID {
			keyCopy := *key
			keys = append(keys, &keyCopy)
		}
	}
	return keys, nil
}

func (r *fakeKeyRepo) Revoke(ctx context.Context, id uuid.UUID, reason string, revokedAt time.Time) (*apikey.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.byID[id]
	if !ok {
		return nil, apikey.ErrAPIKeyNotFound
	}
	key.IsActive = false
	key.RevokedAt = &revokedAt
	key.RevokedReason = &reason
	keyCopy := *key
	return &keyCopy, nil
}

func (r *fakeKeyRepo) RecordUsage(ctx context.Context, id uuid.UUID, success bool, usedAt time.Time) error {
	return nil
}

func (r *fakeKeyRepo) ResetDailyUsage(ctx context.Context) (int64, error)   { return 0, nil }
func (r *fakeKeyRepo) ResetMonthlyUsage(ctx context.Context) (int64, error) { return 0, nil }
func (r *fakeKeyRepo) ExpireActiveKeys(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type fakeKeyCache struct {
	mu       sync.Mutex
	evicted  []string
	evictErr error
}

func (c *fakeKeyCache) Get(ctx context.Context, keyHash string) (*apikey.APIKey, error) {
	return nil, nil
}

func (c *fakeKeyCache) Set(ctx context.Context, keyHash string, key *apikey.APIKey) error {
	return nil
}

func (c *fakeKeyCache) Evict(ctx context.Context, keyHash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.evictErr != nil {
		return c.evictErr
	}
	c.evicted = append(c.evicted, keyHash)
	return nil
}

type fakeAnalyzer struct {
	mu       sync.Mutex
	calls    int
	lastReq  analyzer.Request
	result   *analyzer.Result
	analyzeE error
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, req analyzer.Request) (*analyzer.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.lastReq = req
	if a.analyzeE != nil {
		return nil, a.analyzeE
	}
	resultCopy := *a.result
	return &resultCopy, nil
}

type fakeAnalysisCache struct {
	mu       sync.Mutex
	payloads map[string][]byte
	setCalls int
}

func newFakeAnalysisCache() *fakeAnalysisCache {
	return &fakeAnalysisCache{payloads: make(map[string][]byte)}
}

func (c *fakeAnalysisCache) Get(ctx context.Context, contentHash string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payloads[contentHash], nil
}

func (c *fakeAnalysisCache) Set(ctx context.Context, contentHash string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads[contentHash] = payload
	c.setCalls++
	return nil
}
