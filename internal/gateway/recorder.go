package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/domain/apikey"
	"github.com/contentlens/analyzer-api/internal/domain/usagelog"
)

// RecordParams describe one completed gated request.
type RecordParams struct {
	Key              *apikey.APIKey
	Endpoint         string
	Method           string
	StatusCode       int
	ProcessingTimeMs int64
	TokensUsed       *int
	WordCount        *int
	ErrorMessage     *string
	RequestID        string
	IPAddress        string
}

// Recorder keeps key-level aggregates current and appends one usage-log row
// per request. The aggregate update is synchronous; the log write is
// detached and best-effort, so usage analytics can never fail a request.
type Recorder struct {
	keys       apikey.Repository
	logs       usagelog.Repository
	logger     *zap.Logger
	logTimeout time.Duration
}

func NewRecorder(keys apikey.Repository, logs usagelog.Repository, logger *zap.Logger) *Recorder {
	return &Recorder{
		keys:       keys,
		logs:       logs,
		logger:     logger.Named("UsageRecorder"),
		logTimeout: 5 * time.Second,
	}
}

func (r *Recorder) Record(ctx context.Context, params RecordParams) error {
	success := params.StatusCode < 400

	if err := r.keys.RecordUsage(ctx, params.Key.ID, success, time.Now().UTC()); err != nil {
		r.logger.Error("Failed to update api key aggregates",
			zap.String("key_id", params.Key.ID.String()),
			zap.Error(err),
		)
		return err
	}

	entry := &usagelog.Entry{
		ID:               uuid.New(),
		APIKeyID:         params.Key.ID,
		AccountID:        params.Key.AccountID,
		Endpoint:         params.Endpoint,
		Method:           params.Method,
		StatusCode:       params.StatusCode,
		ProcessingTimeMs: params.ProcessingTimeMs,
		TokensUsed:       params.TokensUsed,
		WordCount:        params.WordCount,
		ErrorMessage:     params.ErrorMessage,
		RequestID:        params.RequestID,
		IPAddress:        params.IPAddress,
	}

	// Detached on purpose: the response must not wait for, or fail on,
	// the log sink.
	go func(entry *usagelog.Entry) {
		logCtx, cancel := context.WithTimeout(context.Background(), r.logTimeout)
		defer cancel()
		if err := r.logs.Insert(logCtx, entry); err != nil {
			r.logger.Error("Failed to write usage log entry",
				zap.String("request_id", entry.RequestID),
				zap.Error(err),
			)
		}
	}(entry)

	return nil
}
