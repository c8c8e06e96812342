package apikey

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrAPIKeyNotFound = errors.New("api key not found")

type Repository interface {
	Create(ctx context.Context, key *APIKey) (uuid.UUID, error)
	FindByHash(ctx context.Context, keyHash string) (*APIKey, error)
	FindByID(ctx context.Context, id uuid.UUID) (*APIKey, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*APIKey, error)

	// Revoke is a soft delete: the row is never removed, only flagged.
	Revoke(ctx context.Context, id uuid.UUID, reason string, revokedAt time.Time) (*APIKey, error)

	// RecordUsage bumps the monotonic aggregates and the calendar display
	// counters for one completed request. Increments are commutative, so
	// callers never need to serialize.
	RecordUsage(ctx context.Context, id uuid.UUID, success bool, usedAt time.Time) error

	ResetDailyUsage(ctx context.Context) (int64, error)
	ResetMonthlyUsage(ctx context.Context) (int64, error)

	// ExpireActiveKeys deactivates keys whose expiration has passed.
	ExpireActiveKeys(ctx context.Context, now time.Time) (int64, error)
}
