package apikey

import (
	"time"

	"github.com/google/uuid"
)

type Tier string

const (
	TierStarter    Tier = "starter"
	TierGrowth     Tier = "growth"
	TierEnterprise Tier = "enterprise"
)

type Environment string

const (
	EnvProduction Environment = "production"
	EnvTesting    Environment = "testing"
)

// Limits are the three independent rate-limit ceilings assigned to a key
// at creation time from its tier.
type Limits struct {
	PerMinute int
	PerDay    int
	PerMonth  int
}

type APIKey struct {
	ID                 uuid.UUID   `db:"id" json:"id"`
	AccountID          uuid.UUID   `db:"account_id" json:"account_id"`
	Name               string      `db:"name" json:"name"`
	KeyHash            string      `db:"key_hash" json:"-"`
	KeyPrefix          string      `db:"key_prefix" json:"key_prefix"`
	LastFour           string      `db:"last_four" json:"last_four"`
	Tier               Tier        `db:"tier" json:"tier"`
	Environment        Environment `db:"environment" json:"environment"`
	RateLimitPerMinute int         `db:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	RateLimitPerDay    int         `db:"rate_limit_per_day" json:"rate_limit_per_day"`
	RateLimitPerMonth  int         `db:"rate_limit_per_month" json:"rate_limit_per_month"`
	IsActive           bool        `db:"is_active" json:"is_active"`
	RevokedAt          *time.Time  `db:"revoked_at" json:"revoked_at,omitempty"`
	RevokedReason      *string     `db:"revoked_reason" json:"revoked_reason,omitempty"`
	ExpiresAt          *time.Time  `db:"expires_at" json:"expires_at,omitempty"`
	IPAllowlist        []string    `db:"ip_allowlist" json:"ip_allowlist,omitempty"`
	TotalRequests      int64       `db:"total_requests" json:"total_requests"`
	SuccessfulRequests int64       `db:"successful_requests" json:"successful_requests"`
	FailedRequests     int64       `db:"failed_requests" json:"failed_requests"`
	DailyUsage         int64       `db:"daily_usage" json:"daily_usage"`
	MonthlyUsage       int64       `db:"monthly_usage" json:"monthly_usage"`
	LastUsedAt         *time.Time  `db:"last_used_at" json:"last_used_at,omitempty"`
	CreatedAt          time.Time   `db:"created_at" json:"created_at"`
}

func (k *APIKey) Limits() Limits {
	return Limits{
		PerMinute: k.RateLimitPerMinute,
		PerDay:    k.RateLimitPerDay,
		PerMonth:  k.RateLimitPerMonth,
	}
}

const (
	// Credential layout: ca_<live|test>_sk_<64 hex chars>.
	CredentialFormat = "ca_%s_sk_%s"
	SecretHexLength  = 64
	DisplayPrefixLen = 20
	EnvMarkerLive    = "live"
	EnvMarkerTest    = "test"
)

func EnvMarker(env Environment) string {
	if env == EnvTesting {
		return EnvMarkerTest
	}
	return EnvMarkerLive
}

// LimitsForTier is the tier -> ceilings table applied at key creation.
// Limits are immutable afterwards except by explicit reassignment.
func LimitsForTier(tier Tier) Limits {
	switch tier {
	case TierGrowth:
		return Limits{PerMinute: 60, PerDay: 1000, PerMonth: 30000}
	case TierEnterprise:
		return Limits{PerMinute: 300, PerDay: 10000, PerMonth: 300000}
	default:
		return Limits{PerMinute: 10, PerDay: 100, PerMonth: 3000}
	}
}

// MonthlyAllowanceForTier is the business-level monthly call allowance
// enforced by handlers (HTTP 402), distinct from the rate-limit windows.
// Negative means unlimited.
func MonthlyAllowanceForTier(tier Tier) int64 {
	switch tier {
	case TierGrowth:
		return 50000
	case TierEnterprise:
		return -1
	default:
		return 10000
	}
}

func ValidTier(t Tier) bool {
	switch t {
	case TierStarter, TierGrowth, TierEnterprise:
		return true
	}
	return false
}
