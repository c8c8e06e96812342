package tasks

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/domain/apikey"
)

// UsageResetHandler zeroes the calendar display counters on their
// boundaries. Only the daily_usage/monthly_usage columns are touched; the
// rate-limit window counters in Redis expire on their own and are never
// reconciled against these.
type UsageResetHandler struct {
	repo   apikey.Repository
	logger *zap.Logger
}

func NewUsageResetHandler(repo apikey.Repository, logger *zap.Logger) *UsageResetHandler {
	return &UsageResetHandler{
		repo:   repo,
		logger: logger.Named("UsageResetHandler"),
	}
}

func (h *UsageResetHandler) ProcessDailyReset(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeDailyUsageReset {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	affected, err := h.repo.ResetDailyUsage(ctx)
	if err != nil {
		h.logger.Error("Daily usage reset failed", zap.Error(err))
		return fmt.Errorf("repository error resetting daily usage: %w", err)
	}

	h.logger.Info("Daily usage counters reset", zap.Int64("keys_affected", affected))
	return nil
}

func (h *UsageResetHandler) ProcessMonthlyReset(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeMonthlyUsageReset {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	affected, err := h.repo.ResetMonthlyUsage(ctx)
	if err != nil {
		h.logger.Error("Monthly usage reset failed", zap.Error(err))
		return fmt.Errorf("repository error resetting monthly usage: %w", err)
	}

	h.logger.Info("Monthly usage counters reset", zap.Int64("keys_affected", affected))
	return nil
}
