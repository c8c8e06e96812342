package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/contentlens/analyzer-api/internal/domain/apikey"
	"github.com/contentlens/analyzer-api/internal/domain/usagelog"
)

// In-memory stand-ins for the Redis/Postgres backed stores.

type memCounterStore struct {
	mu     sync.Mutex
	counts map[string]int64
	ttls   map[string]time.Duration
}

func newMemCounterStore() *memCounterStore {
	return &memCounterStore{
		counts: make(map[string]int64),
		ttls:   make(map[string]time.Duration),
	}
}

func (s *memCounterStore) Increment(ctx context.Context, key string, windowTTL time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
	if s.counts[key] == 1 {
		s.ttls[key] = windowTTL
	}
	return s.counts[key], nil
}

type failingCounterStore struct {
	err error
}

func (s *failingCounterStore) Increment(ctx context.Context, key string, windowTTL time.Duration) (int64, error) {
	return 0, s.err
}

type memKeyCache struct {
	mu       sync.Mutex
	entries  map[string]*apikey.APIKey
	getCalls int
	evicted  []string
}

func newMemKeyCache() *memKeyCache {
	return &memKeyCache{entries: make(map[string]*apikey.APIKey)}
}

func (c *memKeyCache) Get(ctx context.Context, keyHash string) (*apikey.APIKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getCalls++
	return c.entries[keyHash], nil
}

func (c *memKeyCache) Set(ctx context.Context, keyHash string, key *apikey.APIKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[keyHash] = key
	return nil
}

func (c *memKeyCache) Evict(ctx context.Context, keyHash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, keyHash)
	c.evicted = append(c.evicted, keyHash)
	return nil
}

type failingKeyCache struct{}

func (c *failingKeyCache) Get(ctx context.Context, keyHash string) (*apikey.APIKey, error) {
	return nil, errors.New("cache unavailable")
}

func (c *failingKeyCache) Set(ctx context.Context, keyHash string, key *apikey.APIKey) error {
	return errors.New("cache unavailable")
}

func (c *failingKeyCache) Evict(ctx context.Context, keyHash string) error {
	return errors.New("cache unavailable")
}

type memKeyRepo struct {
	mu        sync.Mutex
	byHash    map[string]*apikey.APIKey
	findCalls int

	usage struct {
		total   int64
		success int64
		failed  int64
	}
	recordErr error
}

func newMemKeyRepo() *memKeyRepo {
	return &memKeyRepo{byHash: make(map[string]*apikey.APIKey)}
}

var _ apikey.Repository = (*memKeyRepo)(nil)

func (r *memKeyRepo) Create(ctx context.Context, key *apikey.APIKey) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	r.byHash[key.KeyHash] = key
	return key.ID, nil
}

func (r *memKeyRepo) FindByHash(ctx context.Context, keyHash string) (*apikey.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	key, ok := r.byHash[keyHash]
	if !ok {
		return nil, apikey.ErrAPIKeyNotFound
	}
	keyCopy := *key
	return &keyCopy, nil
}

func (r *memKeyRepo) FindByID(ctx context.Context, id uuid.UUID) (*apikey.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range r.byHash {
		if key.ID == id {
			keyCopy := *key
			return &keyCopy, nil
		}
	}
	return nil, apikey.ErrAPIKeyNotFound
}

func (r *memKeyRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*apikey.APIKey, error) {
	return nil, nil
}

func (r *memKeyRepo) Revoke(ctx context.Context, id uuid.UUID, reason string, revokedAt time.Time) (*apikey.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range r.byHash {
		if key.ID == id {
			key.IsActive = false
			key.RevokedAt = &revokedAt
			key.RevokedReason = &reason
			keyCopy := *key
			return &keyCopy, nil
		}
	}
	return nil, apikey.ErrAPIKeyNotFound
}

func (r *memKeyRepo) RecordUsage(ctx context.Context, id uuid.UUID, success bool, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recordErr != nil {
		return r.recordErr
	}
	r.usage.total++
	if success {
		r.usage.success++
	} else {
		r.usage.failed++
	}
	return nil
}

func (r *memKeyRepo) ResetDailyUsage(ctx context.Context) (int64, error)   { return 0, nil }
func (r *memKeyRepo) ResetMonthlyUsage(ctx context.Context) (int64, error) { return 0, nil }
func (r *memKeyRepo) ExpireActiveKeys(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type memLogRepo struct {
	mu        sync.Mutex
	entries   []*usagelog.Entry
	insertErr error
	inserted  chan struct{}
}

func newMemLogRepo() *memLogRepo {
	return &memLogRepo{inserted: make(chan struct{}, 100)}
}

var _ usagelog.Repository = (*memLogRepo)(nil)

func (r *memLogRepo) Insert(ctx context.Context, entry *usagelog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() { r.inserted <- struct{}{} }()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memLogRepo) StatsForKey(ctx context.Context, apiKeyID uuid.UUID) (*usagelog.KeyStats, error) {
	return &usagelog.KeyStats{}, nil
}

func (r *memLogRepo) SummaryForAccount(ctx context.Context, accountID uuid.UUID, days int) ([]usagelog.DailyCount, error) {
	return nil, nil
}
