package dto

import "time"

// Every gated endpoint answers with one of these two envelopes, regardless
// of which layer produced the outcome.

type Usage struct {
	DailyRemaining   int `json:"daily_remaining"`
	MonthlyRemaining int `json:"monthly_remaining"`
}

type SuccessEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Usage   *Usage      `json:"usage,omitempty"`
}

type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Remaining *int   `json:"remaining,omitempty"`
	ResetAt   string `json:"reset_at,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

func NewSuccessEnvelope(data interface{}, usage *Usage) SuccessEnvelope {
	return SuccessEnvelope{Success: true, Data: data, Usage: usage}
}

func NewErrorEnvelope(code, message string) ErrorEnvelope {
	return ErrorEnvelope{Success: false, Error: ErrorBody{Code: code, Message: message}}
}

func NewRateLimitEnvelope(code, message string, limit int, resetAt time.Time) ErrorEnvelope {
	zero := 0
	return ErrorEnvelope{
		Success: false,
		Error: ErrorBody{
			Code:      code,
			Message:   message,
			Limit:     limit,
			Remaining: &zero,
			ResetAt:   resetAt.UTC().Format(time.RFC3339),
		},
	}
}
