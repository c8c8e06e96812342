package gateway

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/domain/apikey"
	"github.com/contentlens/analyzer-api/internal/ierr"
)

type Window string

const (
	WindowMinute Window = "minute"
	WindowDay    Window = "day"
	WindowMonth  Window = "month"
)

const (
	minuteWindowTTL = time.Minute
	dayWindowTTL    = 24 * time.Hour
	monthWindowTTL  = 30 * 24 * time.Hour
)

// CounterStore is the atomic increment-then-read primitive the limiter is
// built on. Implementations must set the TTL when the post-increment value
// is 1 so buckets expire on their own.
type CounterStore interface {
	Increment(ctx context.Context, key string, windowTTL time.Duration) (int64, error)
}

// Result reports one rate-limit decision. On rejection Window/Limit/ResetAt
// describe the exceeded ceiling; on success the remaining counts feed
// response headers and the usage envelope field.
type Result struct {
	Allowed          bool
	Window           Window
	Limit            int
	Remaining        int
	ResetAt          time.Time
	DailyRemaining   int
	MonthlyRemaining int
}

// RateLimiter enforces the three per-key ceilings. It never queues or
// delays a request: every call is an immediate allow-or-reject.
type RateLimiter struct {
	counters CounterStore
	logger   *zap.Logger
	now      func() time.Time
}

func NewRateLimiter(counters CounterStore, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		counters: counters,
		logger:   logger.Named("RateLimiter"),
		now:      time.Now,
	}
}

// CheckAndConsume increments all three window counters and compares each
// post-increment value against its ceiling, minute first. All three are
// incremented even when an earlier window already failed, so a rejected
// burst still consumes quota and probing the limit is never free.
//
// Increment-then-check (rather than check-then-increment) is what makes the
// ceiling exact under concurrency: two racing requests can never both
// observe "under limit" for the same slot.
func (l *RateLimiter) CheckAndConsume(ctx context.Context, keyID string, limits apikey.Limits) (*Result, error) {
	now := l.now().UTC()

	minuteKey := fmt.Sprintf("ratelimit:%s:minute:%d", keyID, now.Unix()/60)
	dayKey := fmt.Sprintf("ratelimit:%s:day:%s", keyID, now.Format("2006-01-02"))
	monthKey := fmt.Sprintf("ratelimit:%s:month:%s", keyID, now.Format("2006-01"))

	minuteCount, err := l.counters.Increment(ctx, minuteKey, minuteWindowTTL)
	if err != nil {
		return nil, l.failClosed(err)
	}
	dayCount, err := l.counters.Increment(ctx, dayKey, dayWindowTTL)
	if err != nil {
		return nil, l.failClosed(err)
	}
	monthCount, err := l.counters.Increment(ctx, monthKey, monthWindowTTL)
	if err != nil {
		return nil, l.failClosed(err)
	}

	if minuteCount > int64(limits.PerMinute) {
		return &Result{
			Allowed: false,
			Window:  WindowMinute,
			Limit:   limits.PerMinute,
			ResetAt: nextMinute(now),
		}, nil
	}

	if dayCount > int64(limits.PerDay) {
		return &Result{
			Allowed: false,
			Window:  WindowDay,
			Limit:   limits.PerDay,
			ResetAt: nextMidnightUTC(now),
		}, nil
	}

	if monthCount > int64(limits.PerMonth) {
		return &Result{
			Allowed: false,
			Window:  WindowMonth,
			Limit:   limits.PerMonth,
			ResetAt: firstOfNextMonthUTC(now),
		}, nil
	}

	return &Result{
		Allowed:          true,
		Limit:            limits.PerMinute,
		Remaining:        limits.PerMinute - int(minuteCount),
		ResetAt:          nextMinute(now),
		DailyRemaining:   limits.PerDay - int(dayCount),
		MonthlyRemaining: limits.PerMonth - int(monthCount),
	}, nil
}

// Counter store failures deny the request. The enforcement path prefers
// safety over availability.
func (l *RateLimiter) failClosed(err error) error {
	l.logger.Error("Counter store failure during rate limit check", zap.Error(err))
	return fmt.Errorf("%w: counter store unavailable", ierr.ErrInternalServer)
}

func nextMinute(now time.Time) time.Time {
	return now.Truncate(time.Minute).Add(time.Minute)
}

func nextMidnightUTC(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

func firstOfNextMonthUTC(now time.Time) time.Time {
	y, m, _ := now.Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
}
