package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/domain/usagelog"
	"github.com/contentlens/analyzer-api/internal/handler/dto"
	"github.com/contentlens/analyzer-api/internal/ierr"
)

const dashboardSummaryDays = 30

type DashboardHandler struct {
	logs   usagelog.Repository
	logger *zap.Logger
}

func NewDashboardHandler(logs usagelog.Repository, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		logs:   logs,
		logger: logger.Named("DashboardHandler"),
	}
}

// GetSummary returns per-day request volume for the account's dashboard.
func (h *DashboardHandler) GetSummary(c *gin.Context) {
	accountID, err := accountIDFromClaims(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	counts, err := h.logs.SummaryForAccount(c.Request.Context(), accountID, dashboardSummaryDays)
	if err != nil {
		h.logger.Error("Failed to get dashboard summary", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: dashboard summary unavailable", ierr.ErrInternalServer))
		return
	}

	days := make([]dto.DashboardDay, len(counts))
	for i, dc := range counts {
		days[i] = dto.DashboardDay{
			Day:      dc.Day.UTC().Format(time.DateOnly),
			Requests: dc.Requests,
			Failures: dc.Failures,
		}
	}

	c.JSON(http.StatusOK, dto.NewSuccessEnvelope(dto.DashboardSummaryResponse{
		PeriodDays: dashboardSummaryDays,
		Days:       days,
	}, nil))
}
