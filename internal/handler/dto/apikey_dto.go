package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/contentlens/analyzer-api/internal/domain/apikey"
)

type CreateAPIKeyRequest struct {
	Name        string     `json:"name" binding:"required"`
	Tier        string     `json:"tier" binding:"required,oneof=starter growth enterprise"`
	Environment string     `json:"environment" binding:"omitempty,oneof=production testing"`
	ExpiresAt   *time.Time `json:"expires_at" binding:"omitempty"`
	IPAllowlist []string   `json:"ip_allowlist" binding:"omitempty,dive,ip"`
}

type CreateAPIKeyResponse struct {
	ID        uuid.UUID     `json:"id"`
	FullKey   string        `json:"full_key"`
	KeyPrefix string        `json:"key_prefix"`
	LastFour  string        `json:"last_four"`
	Name      string        `json:"name"`
	Tier      apikey.Tier   `json:"tier"`
	Limits    LimitsPayload `json:"limits"`
	CreatedAt time.Time     `json:"created_at"`
}

type LimitsPayload struct {
	PerMinute int `json:"per_minute"`
	PerDay    int `json:"per_day"`
	PerMonth  int `json:"per_month"`
}

type APIKeyResponse struct {
	ID            uuid.UUID          `json:"id"`
	Name          string             `json:"name"`
	KeyPrefix     string             `json:"key_prefix"`
	LastFour      string             `json:"last_four"`
	Tier          apikey.Tier        `json:"tier"`
	Environment   apikey.Environment `json:"environment"`
	Limits        LimitsPayload      `json:"limits"`
	IsActive      bool               `json:"is_active"`
	RevokedAt     *time.Time         `json:"revoked_at,omitempty"`
	RevokedReason *string            `json:"revoked_reason,omitempty"`
	ExpiresAt     *time.Time         `json:"expires_at,omitempty"`
	IPAllowlist   []string           `json:"ip_allowlist,omitempty"`
	LastUsedAt    *time.Time         `json:"last_used_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

func NewAPIKeyResponse(key *apikey.APIKey) *APIKeyResponse {
	return &APIKeyResponse{
		ID:          key.ID,
		Name:        key.Name,
		KeyPrefix:   key.KeyPrefix,
		LastFour:    key.LastFour,
		Tier:        key.Tier,
		Environment: key.Environment,
		Limits: LimitsPayload{
			PerMinute: key.RateLimitPerMinute,
			PerDay:    key.RateLimitPerDay,
			PerMonth:  key.RateLimitPerMonth,
		},
		IsActive:      key.IsActive,
		RevokedAt:     key.RevokedAt,
		RevokedReason: key.RevokedReason,
		ExpiresAt:     key.ExpiresAt,
		IPAllowlist:   key.IPAllowlist,
		LastUsedAt:    key.LastUsedAt,
		CreatedAt:     key.CreatedAt,
	}
}

type RevokeAPIKeyRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=255"`
}
