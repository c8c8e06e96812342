package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/domain/apikey"
	"github.com/contentlens/analyzer-api/internal/ierr"
)

func newTestLimiter(store CounterStore, at time.Time) *RateLimiter {
	limiter := NewRateLimiter(store, zap.NewNop())
	limiter.now = func() time.Time { return at }
	return limiter
}

func starterLimits() apikey.Limits {
	return apikey.Limits{PerMinute: 10, PerDay: 100, PerMonth: 3000}
}

func TestRateLimiterAllowsUpToMinuteCeiling(t *testing.T) {
	store := newMemCounterStore()
	at := time.Date(2024, 5, 10, 12, 30, 15, 0, time.UTC)
	limiter := newTestLimiter(store, at)

	for i := 1; i <= 10; i++ {
		result, err := limiter.CheckAndConsume(context.Background(), "key-1", starterLimits())
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i)
		assert.Equal(t, 10-i, result.Remaining)
		assert.Equal(t, 100-i, result.DailyRemaining)
		assert.Equal(t, 3000-i, result.MonthlyRemaining)
	}

	result, err := limiter.CheckAndConsume(context.Background(), "key-1", starterLimits())
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, WindowMinute, result.Window)
	assert.Equal(t, 10, result.Limit)
	assert.Equal(t, time.Date(2024, 5, 10, 12, 31, 0, 0, time.UTC), result.ResetAt)
}

func TestRateLimiterRecoversInNextMinuteBucket(t *testing.T) {
	store := newMemCounterStore()
	at := time.Date(2024, 5, 10, 12, 30, 59, 0, time.UTC)
	limiter := newTestLimiter(store, at)

	for i := 0; i < 11; i++ {
		_, err := limiter.CheckAndConsume(context.Background(), "key-1", starterLimits())
		require.NoError(t, err)
	}

	// Next minute bucket: minute counter starts fresh, day/month carry on.
	limiter.now = func() time.Time { return at.Add(time.Second) }
	result, err := limiter.CheckAndConsume(context.Background(), "key-1", starterLimits())
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 9, result.Remaining)
	assert.Equal(t, 100-12, result.DailyRemaining)
}

func TestRateLimiterRejectedBurstStillConsumesQuota(t *testing.T) {
	store := newMemCounterStore()
	at := time.Date(2024, 5, 10, 12, 30, 0, 0, time.UTC)
	limiter := newTestLimiter(store, at)

	for i := 0; i < 25; i++ {
		_, err := limiter.CheckAndConsume(context.Background(), "key-1", starterLimits())
		require.NoError(t, err)
	}

	// All three counters were incremented on every call, rejected or not.
	dayKey := "ratelimit:key-1:day:2024-05-10"
	monthKey := "ratelimit:key-1:month:2024-05"
	assert.Equal(t, int64(25), store.counts[dayKey])
	assert.Equal(t, int64(25), store.counts[monthKey])
}

func TestRateLimiterDayAndMonthWindows(t *testing.T) {
	store := newMemCounterStore()
	at := time.Date(2024, 5, 10, 12, 30, 0, 0, time.UTC)
	limiter := newTestLimiter(store, at)

	limits := apikey.Limits{PerMinute: 1000, PerDay: 3, PerMonth: 5}

	for i := 0; i < 3; i++ {
		result, err := limiter.CheckAndConsume(context.Background(), "key-1", limits)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := limiter.CheckAndConsume(context.Background(), "key-1", limits)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, WindowDay, result.Window)
	assert.Equal(t, 3, result.Limit)
	assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), result.ResetAt)

	// Force the month window by rolling the day forward past the daily
	// ceiling reset.
	limiter.now = func() time.Time { return time.Date(2024, 5, 11, 1, 0, 0, 0, time.UTC) }
	for i := 0; i < 2; i++ {
		result, err = limiter.CheckAndConsume(context.Background(), "key-1", limits)
		require.NoError(t, err)
	}
	assert.False(t, result.Allowed)
	assert.Equal(t, WindowMonth, result.Window)
	assert.Equal(t, 5, result.Limit)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), result.ResetAt)
}

func TestRateLimiterSetsTTLOnFirstIncrementOnly(t *testing.T) {
	store := newMemCounterStore()
	at := time.Date(2024, 5, 10, 12, 30, 0, 0, time.UTC)
	limiter := newTestLimiter(store, at)

	_, err := limiter.CheckAndConsume(context.Background(), "key-1", starterLimits())
	require.NoError(t, err)

	assert.Equal(t, time.Minute, store.ttls["ratelimit:key-1:minute:28589070"])
	assert.Equal(t, 24*time.Hour, store.ttls["ratelimit:key-1:day:2024-05-10"])
	assert.Equal(t, 30*24*time.Hour, store.ttls["ratelimit:key-1:month:2024-05"])
}

func TestRateLimiterConcurrencyNeverOvershootsCeiling(t *testing.T) {
	store := newMemCounterStore()
	at := time.Date(2024, 5, 10, 12, 30, 0, 0, time.UTC)
	limiter := newTestLimiter(store, at)

	limits := apikey.Limits{PerMinute: 10, PerDay: 1000, PerMonth: 10000}

	const n = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := limiter.CheckAndConsume(context.Background(), "key-1", limits)
			if !assert.NoError(t, err) {
				return
			}
			if result.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limits.PerMinute, allowed)
}

func TestRateLimiterFailsClosedOnCounterStoreError(t *testing.T) {
	limiter := newTestLimiter(&failingCounterStore{err: errors.New("connection refused")}, time.Now())

	result, err := limiter.CheckAndConsume(context.Background(), "key-1", starterLimits())
	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, ierr.ErrInternalServer)
}
