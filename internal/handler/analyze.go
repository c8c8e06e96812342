package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/gateway"
	"github.com/contentlens/analyzer-api/internal/handler/dto"
	"github.com/contentlens/analyzer-api/internal/handler/middleware"
	"github.com/contentlens/analyzer-api/internal/ierr"
	"github.com/contentlens/analyzer-api/internal/service"
)

const cacheHeader = "X-Cache"

type AnalyzeHandler struct {
	analysis *service.AnalysisService
	recorder *gateway.Recorder
	logger   *zap.Logger
}

func NewAnalyzeHandler(analysis *service.AnalysisService, recorder *gateway.Recorder, logger *zap.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		analysis: analysis,
		recorder: recorder,
		logger:   logger.Named("AnalyzeHandler"),
	}
}

func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	start := time.Now()
	key := middleware.GetAPIKey(c)
	rateResult := middleware.GetRateLimitResult(c)
	if key == nil || rateResult == nil {
		_ = c.Error(fmt.Errorf("%w: request reached handler without gateway context", ierr.ErrInternalServer))
		return
	}

	var req dto.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.analysis.CheckQuota(key); err != nil {
		_ = c.Error(err)
		return
	}

	result, cached, err := h.analysis.Analyze(c.Request.Context(), &req)
	if err != nil {
		h.recordOutcome(c, start, http.StatusInternalServerError, nil, nil, strPtr(err.Error()))
		_ = c.Error(err)
		return
	}

	if cached {
		c.Header(cacheHeader, "HIT")
	} else {
		c.Header(cacheHeader, "MISS")
	}

	h.recordOutcome(c, start, http.StatusOK, &result.TokensUsed, &result.WordCount, nil)

	c.JSON(http.StatusOK, dto.NewSuccessEnvelope(result, &dto.Usage{
		DailyRemaining:   rateResult.DailyRemaining,
		MonthlyRemaining: rateResult.MonthlyRemaining,
	}))
}

func (h *AnalyzeHandler) BatchAnalyze(c *gin.Context) {
	start := time.Now()
	key := middleware.GetAPIKey(c)
	rateResult := middleware.GetRateLimitResult(c)
	if key == nil || rateResult == nil {
		_ = c.Error(fmt.Errorf("%w: request reached handler without gateway context", ierr.ErrInternalServer))
		return
	}

	var req dto.BatchAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.analysis.CheckQuota(key); err != nil {
		_ = c.Error(err)
		return
	}

	results := make([]dto.BatchAnalyzeItemResult, len(req.Items))
	totalTokens := 0
	totalWords := 0
	for i := range req.Items {
		item := req.Items[i]
		result, _, err := h.analysis.Analyze(c.Request.Context(), &item)
		if err != nil {
			h.logger.Warn("Batch item analysis failed", zap.Int("index", i), zap.Error(err))
			results[i] = dto.BatchAnalyzeItemResult{
				Index: i,
				Error: &dto.ErrorBody{Code: "INTERNAL_ERROR", Message: "Analysis failed"},
			}
			continue
		}
		totalTokens += result.TokensUsed
		totalWords += result.WordCount
		results[i] = dto.BatchAnalyzeItemResult{Index: i, Result: result}
	}

	h.recordOutcome(c, start, http.StatusOK, &totalTokens, &totalWords, nil)

	c.JSON(http.StatusOK, dto.NewSuccessEnvelope(dto.BatchAnalyzeResponse{Results: results}, &dto.Usage{
		DailyRemaining:   rateResult.DailyRemaining,
		MonthlyRemaining: rateResult.MonthlyRemaining,
	}))
}

func (h *AnalyzeHandler) recordOutcome(c *gin.Context, start time.Time, status int, tokens, words *int, errMsg *string) {
	err := h.recorder.Record(c.Request.Context(), gateway.RecordParams{
		Key:              middleware.GetAPIKey(c),
		Endpoint:         c.FullPath(),
		Method:           c.Request.Method,
		StatusCode:       status,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		TokensUsed:       tokens,
		WordCount:        words,
		ErrorMessage:     errMsg,
		RequestID:        middleware.GetRequestID(c),
		IPAddress:        middleware.GetClientIP(c),
	})
	if err != nil {
		// The response is already decided; aggregate drift is logged,
		// not surfaced.
		h.logger.Error("Failed to record usage", zap.Error(err))
	}
}

func strPtr(s string) *string {
	return &s
}
