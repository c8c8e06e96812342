package usagelog

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one append-only record of a completed gated request. Entries are
// never mutated or deleted by the gateway.
type Entry struct {
	ID               uuid.UUID `db:"id"`
	APIKeyID         uuid.UUID `db:"api_key_id"`
	AccountID        uuid.UUID `db:"account_id"`
	Endpoint         string    `db:"endpoint"`
	Method           string    `db:"method"`
	StatusCode       int       `db:"status_code"`
	ProcessingTimeMs int64     `db:"processing_time_ms"`
	TokensUsed       *int      `db:"tokens_used"`
	WordCount        *int      `db:"word_count"`
	ErrorMessage     *string   `db:"error_message"`
	RequestID        string    `db:"request_id"`
	IPAddress        string    `db:"ip_address"`
	CreatedAt        time.Time `db:"created_at"`
}

// KeyStats are the per-key aggregates served by the usage endpoint.
type KeyStats struct {
	RequestCount    int64
	AvgProcessingMs int64
	TotalTokensUsed int64
}

// DailyCount is one day of request volume for the dashboard summary.
type DailyCount struct {
	Day      time.Time
	Requests int64
	Failures int64
}
