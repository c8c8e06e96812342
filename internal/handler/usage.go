package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/domain/usagelog"
	"github.com/contentlens/analyzer-api/internal/handler/dto"
	"github.com/contentlens/analyzer-api/internal/handler/middleware"
	"github.com/contentlens/analyzer-api/internal/ierr"
)

type UsageHandler struct {
	logs   usagelog.Repository
	logger *zap.Logger
}

func NewUsageHandler(logs usagelog.Repository, logger *zap.Logger) *UsageHandler {
	return &UsageHandler{
		logs:   logs,
		logger: logger.Named("UsageHandler"),
	}
}

// Get reports the calling key's limits, current display counters and
// lifetime statistics. The counters here are the dashboard aggregates, not
// the enforcement windows.
func (h *UsageHandler) Get(c *gin.Context) {
	key := middleware.GetAPIKey(c)
	if key == nil {
		_ = c.Error(fmt.Errorf("%w: request reached handler without gateway context", ierr.ErrInternalServer))
		return
	}

	stats, err := h.logs.StatsForKey(c.Request.Context(), key.ID)
	if err != nil {
		h.logger.Error("Failed to load usage stats", zap.String("key_id", key.ID.String()), zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: usage stats unavailable", ierr.ErrInternalServer))
		return
	}

	resp := dto.UsageResponse{
		APIKey: dto.UsageKeyInfo{
			Name:      key.Name,
			Tier:      key.Tier,
			CreatedAt: key.CreatedAt,
		},
		Limits: dto.LimitsPayload{
			PerMinute: key.RateLimitPerMinute,
			PerDay:    key.RateLimitPerDay,
			PerMonth:  key.RateLimitPerMonth,
		},
		Usage: dto.UsageCounters{
			Today:            key.DailyUsage,
			ThisMonth:        key.MonthlyUsage,
			DailyRemaining:   int64(key.RateLimitPerDay) - key.DailyUsage,
			MonthlyRemaining: int64(key.RateLimitPerMonth) - key.MonthlyUsage,
		},
		Statistics: dto.UsageStatistics{
			TotalRequests:       key.TotalRequests,
			SuccessfulRequests:  key.SuccessfulRequests,
			FailedRequests:      key.FailedRequests,
			AvgProcessingTimeMs: stats.AvgProcessingMs,
			TotalTokensUsed:     stats.TotalTokensUsed,
		},
	}

	c.JSON(http.StatusOK, dto.NewSuccessEnvelope(resp, nil))
}
