package dto

import (
	"time"

	"github.com/contentlens/analyzer-api/internal/domain/apikey"
)

type UsageKeyInfo struct {
	Name      string      `json:"name"`
	Tier      apikey.Tier `json:"tier"`
	CreatedAt time.Time   `json:"created_at"`
}

type UsageCounters struct {
	Today            int64 `json:"today"`
	ThisMonth        int64 `json:"this_month"`
	DailyRemaining   int64 `json:"daily_remaining"`
	MonthlyRemaining int64 `json:"monthly_remaining"`
}

type UsageStatistics struct {
	TotalRequests       int64 `json:"total_requests"`
	SuccessfulRequests  int64 `json:"successful_requests"`
	FailedRequests      int64 `json:"failed_requests"`
	AvgProcessingTimeMs int64 `json:"avg_processing_time_ms"`
	TotalTokensUsed     int64 `json:"total_tokens_used"`
}

type UsageResponse struct {
	APIKey     UsageKeyInfo    `json:"api_key"`
	Limits     LimitsPayload   `json:"limits"`
	Usage      UsageCounters   `json:"usage"`
	Statistics UsageStatistics `json:"statistics"`
}

type DashboardDay struct {
	Day      string `json:"day"`
	Requests int64  `json:"requests"`
	Failures int64  `json:"failures"`
}

type DashboardSummaryResponse struct {
	PeriodDays int            `json:"period_days"`
	Days       []DashboardDay `json:"days"`
}
