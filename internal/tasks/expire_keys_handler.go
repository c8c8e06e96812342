package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/domain/apikey"
)

// KeyExpireHandler sweeps keys whose expiration timestamp has passed and
// flags them inactive. The authenticator already rejects expired keys on
// its own; the sweep keeps the store state and dashboards honest.
type KeyExpireHandler struct {
	repo   apikey.Repository
	logger *zap.Logger
}

func NewKeyExpireHandler(repo apikey.Repository, logger *zap.Logger) *KeyExpireHandler {
	return &KeyExpireHandler{
		repo:   repo,
		logger: logger.Named("KeyExpireHandler"),
	}
}

func (h *KeyExpireHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeAPIKeyExpire {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	expired, err := h.repo.ExpireActiveKeys(ctx, time.Now().UTC())
	if err != nil {
		h.logger.Error("API key expiration sweep failed", zap.Error(err))
		return fmt.Errorf("repository error expiring api keys: %w", err)
	}

	if expired > 0 {
		h.logger.Info("Expired api keys deactivated", zap.Int64("count", expired))
	} else {
		h.logger.Debug("No api keys to expire")
	}
	return nil
}
