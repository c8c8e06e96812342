package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/domain/apikey"
)

type APIKeyRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAPIKeyRepository(db *pgxpool.Pool, logger *zap.Logger) *APIKeyRepository {
	return &APIKeyRepository{
		db:     db,
		logger: logger.Named("APIKeyRepository"),
	}
}

var _ apikey.Repository = (*APIKeyRepository)(nil)

const apiKeyColumns = `
	id, account_id, name, key_hash, key_prefix, last_four, tier, environment,
	rate_limit_per_minute, rate_limit_per_day, rate_limit_per_month,
	is_active, revoked_at, revoked_reason, expires_at, ip_allowlist,
	total_requests, successful_requests, failed_requests,
	daily_usage, monthly_usage, last_used_at, created_at`

func (r *APIKeyRepository) scanKey(row pgx.Row) (*apikey.APIKey, error) {
	var key apikey.APIKey
	var revokedAt, expiresAt, lastUsedAt sql.NullTime
	var revokedReason sql.NullString

	err := row.Scan(
		&key.ID,
		&key.AccountID,
		&key.Name,
		&key.KeyHash,
		&key.KeyPrefix,
		&key.LastFour,
		&key.Tier,
		&key.Environment,
		&key.RateLimitPerMinute,
		&key.RateLimitPerDay,
		&key.RateLimitPerMonth,
		&key.IsActive,
		&revokedAt,
		&revokedReason,
		&expiresAt,
		&key.IPAllowlist,
		&key.TotalRequests,
		&key.SuccessfulRequests,
		&key.FailedRequests,
		&key.DailyUsage,
		&key.MonthlyUsage,
		&lastUsedAt,
		&key.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if revokedAt.Valid {
		key.RevokedAt = &revokedAt.Time
	}
	if revokedReason.Valid {
		key.RevokedReason = &revokedReason.String
	}
	if expiresAt.Valid {
		key.ExpiresAt = &expiresAt.Time
	}
	if lastUsedAt.Valid {
		key.LastUsedAt = &lastUsedAt.Time
	}

	return &key, nil
}

func (r *APIKeyRepository) Create(ctx context.Context, key *apikey.APIKey) (uuid.UUID, error) {
	query := `
		INSERT INTO api_keys (
			account_id, name, key_hash, key_prefix, last_four, tier, environment,
			rate_limit_per_minute, rate_limit_per_day, rate_limit_per_month,
			is_active, expires_at, ip_allowlist
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	var expiresAtArg interface{}
	if key.ExpiresAt != nil {
		expiresAtArg = *key.ExpiresAt
	}

	var insertedID uuid.UUID
	err := r.db.QueryRow(ctx, query,
		key.AccountID,
		key.Name,
		key.KeyHash,
		key.KeyPrefix,
		key.LastFour,
		key.Tier,
		key.Environment,
		key.RateLimitPerMinute,
		key.RateLimitPerDay,
		key.RateLimitPerMonth,
		key.IsActive,
		expiresAtArg,
		key.IPAllowlist,
	).Scan(&insertedID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Failed to create API key due to unique constraint violation",
				zap.String("constraint", pgErr.ConstraintName),
				zap.String("prefix", key.KeyPrefix),
			)
			return uuid.Nil, fmt.Errorf("api key constraint violation (%s)", pgErr.ConstraintName)
		}
		r.logger.Error("Failed to create api key in database", zap.Error(err))
		return uuid.Nil, fmt.Errorf("db error creating api key: %w", err)
	}

	r.logger.Info("API key created successfully", zap.String("id", insertedID.String()), zap.String("prefix", key.KeyPrefix))
	return insertedID, nil
}

func (r *APIKeyRepository) FindByHash(ctx context.Context, keyHash string) (*apikey.APIKey, error) {
	query := `SELECT` + apiKeyColumns + ` FROM api_keys WHERE key_hash = $1`

	key, err := r.scanKey(r.db.QueryRow(ctx, query, keyHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("API key not found by hash")
			return nil, apikey.ErrAPIKeyNotFound
		}
		r.logger.Error("Failed to find api key by hash", zap.Error(err))
		return nil, fmt.Errorf("db error finding api key: %w", err)
	}

	return key, nil
}

func (r *APIKeyRepository) FindByID(ctx context.Context, id uuid.UUID) (*apikey.APIKey, error) {
	query := `SELECT` + apiKeyColumns + ` FROM api_keys WHERE id = $1`

	key, err := r.scanKey(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apikey.ErrAPIKeyNotFound
		}
		r.logger.Error("Failed to find api key by id", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("db error finding api key: %w", err)
	}

	return key, nil
}

func (r *APIKeyRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*apikey.APIKey, error) {
	query := `SELECT` + apiKeyColumns + ` FROM api_keys WHERE account_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		r.logger.Error("Failed to list api keys", zap.String("account_id", accountID.String()), zap.Error(err))
		return nil, fmt.Errorf("db error listing api keys: %w", err)
	}
	defer rows.Close()

	var keys []*apikey.APIKey
	for rows.Next() {
		key, err := r.scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("db error scanning api key row: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error iterating api keys: %w", err)
	}

	return keys, nil
}

func (r *APIKeyRepository) Revoke(ctx context.Context, id uuid.UUID, reason string, revokedAt time.Time) (*apikey.APIKey, error) {
	query := `
		UPDATE api_keys
		SET is_active = FALSE, revoked_at = $2, revoked_reason = $3
		WHERE id = $1
		RETURNING` + apiKeyColumns

	key, err := r.scanKey(r.db.QueryRow(ctx, query, id, revokedAt, reason))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apikey.ErrAPIKeyNotFound
		}
		r.logger.Error("Failed to revoke api key", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("db error revoking api key: %w", err)
	}

	r.logger.Info("API key revoked", zap.String("id", id.String()), zap.String("reason", reason))
	return key, nil
}

func (r *APIKeyRepository) RecordUsage(ctx context.Context, id uuid.UUID, success bool, usedAt time.Time) error {
	query := `
		UPDATE api_keys
		SET total_requests = total_requests + 1,
		    successful_requests = successful_requests + CASE WHEN $2 THEN 1 ELSE 0 END,
		    failed_requests = failed_requests + CASE WHEN $2 THEN 0 ELSE 1 END,
		    daily_usage = daily_usage + 1,
		    monthly_usage = monthly_usage + 1,
		    last_used_at = $3
		WHERE id = $1
	`
	cmdTag, err := r.db.Exec(ctx, query, id, success, usedAt)
	if err != nil {
		r.logger.Error("Failed to record api key usage", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("db error recording api key usage: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("API key not found when recording usage", zap.String("id", id.String()))
	}
	return nil
}

func (r *APIKeyRepository) ResetDailyUsage(ctx context.Context) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `UPDATE api_keys SET daily_usage = 0 WHERE daily_usage <> 0`)
	if err != nil {
		r.logger.Error("Failed to reset daily usage counters", zap.Error(err))
		return 0, fmt.Errorf("db error resetting daily usage: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

func (r *APIKeyRepository) ResetMonthlyUsage(ctx context.Context) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `UPDATE api_keys SET monthly_usage = 0 WHERE monthly_usage <> 0`)
	if err != nil {
		r.logger.Error("Failed to reset monthly usage counters", zap.Error(err))
		return 0, fmt.Errorf("db error resetting monthly usage: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

func (r *APIKeyRepository) ExpireActiveKeys(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE api_keys
		SET is_active = FALSE, revoked_at = $1, revoked_reason = 'expired'
		WHERE is_active = TRUE AND expires_at IS NOT NULL AND expires_at < $1
	`
	cmdTag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		r.logger.Error("Failed to expire api keys", zap.Error(err))
		return 0, fmt.Errorf("db error expiring api keys: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}
