package usagelog

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Insert(ctx context.Context, entry *Entry) error
	StatsForKey(ctx context.Context, apiKeyID uuid.UUID) (*KeyStats, error)
	SummaryForAccount(ctx context.Context, accountID uuid.UUID, days int) ([]DailyCount, error)
}
