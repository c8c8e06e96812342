package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/domain/usagelog"
)

type UsageLogRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewUsageLogRepository(db *pgxpool.Pool, logger *zap.Logger) *UsageLogRepository {
	return &UsageLogRepository{
		db:     db,
		logger: logger.Named("UsageLogRepository"),
	}
}

var _ usagelog.Repository = (*UsageLogRepository)(nil)

func (r *UsageLogRepository) Insert(ctx context.Context, entry *usagelog.Entry) error {
	query := `
		INSERT INTO usage_logs (
			api_key_id, account_id, endpoint, method, status_code,
			processing_time_ms, tokens_used, word_count, error_message,
			request_id, ip_address
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query,
		entry.APIKeyID,
		entry.AccountID,
		entry.Endpoint,
		entry.Method,
		entry.StatusCode,
		entry.ProcessingTimeMs,
		entry.TokensUsed,
		entry.WordCount,
		entry.ErrorMessage,
		entry.RequestID,
		entry.IPAddress,
	)
	if err != nil {
		r.logger.Error("Failed to insert usage log entry",
			zap.String("api_key_id", entry.APIKeyID.String()),
			zap.String("request_id", entry.RequestID),
			zap.Error(err),
		)
		return fmt.Errorf("db error inserting usage log: %w", err)
	}
	return nil
}

func (r *UsageLogRepository) StatsForKey(ctx context.Context, apiKeyID uuid.UUID) (*usagelog.KeyStats, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(ROUND(AVG(processing_time_ms)), 0),
		       COALESCE(SUM(tokens_used), 0)
		FROM usage_logs
		WHERE api_key_id = $1
	`
	var stats usagelog.KeyStats
	err := r.db.QueryRow(ctx, query, apiKeyID).Scan(
		&stats.RequestCount,
		&stats.AvgProcessingMs,
		&stats.TotalTokensUsed,
	)
	if err != nil {
		r.logger.Error("Failed to aggregate usage stats", zap.String("api_key_id", apiKeyID.String()), zap.Error(err))
		return nil, fmt.Errorf("db error aggregating usage stats: %w", err)
	}
	return &stats, nil
}

func (r *UsageLogRepository) SummaryForAccount(ctx context.Context, accountID uuid.UUID, days int) ([]usagelog.DailyCount, error) {
	query := `
		SELECT date_trunc('day', created_at) AS day,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE status_code >= 400)
		FROM usage_logs
		WHERE account_id = $1 AND created_at >= now() - ($2 * INTERVAL '1 day')
		GROUP BY day
		ORDER BY day
	`
	rows, err := r.db.Query(ctx, query, accountID, days)
	if err != nil {
		r.logger.Error("Failed to query account usage summary", zap.String("account_id", accountID.String()), zap.Error(err))
		return nil, fmt.Errorf("db error querying usage summary: %w", err)
	}
	defer rows.Close()

	var counts []usagelog.DailyCount
	for rows.Next() {
		var dc usagelog.DailyCount
		if err := rows.Scan(&dc.Day, &dc.Requests, &dc.Failures); err != nil {
			return nil, fmt.Errorf("db error scanning usage summary row: %w", err)
		}
		counts = append(counts, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error iterating usage summary: %w", err)
	}

	return counts, nil
}
