package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/domain/apikey"
	"github.com/contentlens/analyzer-api/internal/gateway"
	"github.com/contentlens/analyzer-api/internal/handler/dto"
	"github.com/contentlens/analyzer-api/internal/ierr"
	"github.com/contentlens/analyzer-api/internal/metrics"
)

const (
	authorizationHeader      = "Authorization"
	bearerPrefix             = "Bearer "
	forwardedForHeader       = "X-Forwarded-For"
	realIPHeader             = "X-Real-IP"
	RequestIDHeader          = "X-Request-Id"
	rateLimitRemainingHeader = "X-RateLimit-Remaining"

	apiKeyContextKey    = "gatewayAPIKey"
	rateLimitContextKey = "gatewayRateLimit"
	requestIDContextKey = "gatewayRequestID"
	clientIPContextKey  = "gatewayClientIP"
)

// APIKeyGateway is the single entry point in front of every protected
// handler: credential extraction, authentication, IP allowlist, then rate
// limiting, short-circuiting on the first failure with the uniform error
// envelope. Handlers behind it read the validated key and the rate-limit
// result from the gin context.
func APIKeyGateway(auth *gateway.Authenticator, limiter *gateway.RateLimiter, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("APIKeyGateway")
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Set(requestIDContextKey, requestID)
		c.Header(RequestIDHeader, requestID)

		clientIP := resolveClientIP(c)
		c.Set(clientIPContextKey, clientIP)

		authHeader := c.GetHeader(authorizationHeader)
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			metrics.GatewayRequests.WithLabelValues(metrics.OutcomeUnauthorized).Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorEnvelope("INVALID_API_KEY", "Missing or invalid Authorization header"))
			return
		}
		credential := strings.TrimPrefix(authHeader, bearerPrefix)

		key, err := auth.Authenticate(c.Request.Context(), credential)
		if err != nil {
			abortAuthFailure(c, log, err)
			return
		}

		if len(key.IPAllowlist) > 0 && !ipAllowed(key.IPAllowlist, clientIP) {
			log.Warn("Rejected request from non-allowlisted IP",
				zap.String("key_id", key.ID.String()),
				zap.String("client_ip", clientIP),
			)
			metrics.GatewayRequests.WithLabelValues(metrics.OutcomeForbiddenIP).Inc()
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorEnvelope("IP_NOT_WHITELISTED", "IP address not whitelisted"))
			return
		}

		rateResult, err := limiter.CheckAndConsume(c.Request.Context(), key.ID.String(), key.Limits())
		if err != nil {
			metrics.GatewayRequests.WithLabelValues(metrics.OutcomeInternalError).Inc()
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				dto.NewErrorEnvelope("INTERNAL_ERROR", "Internal server error"))
			return
		}

		if !rateResult.Allowed {
			log.Warn("Rate limit exceeded",
				zap.String("key_id", key.ID.String()),
				zap.String("window", string(rateResult.Window)),
				zap.Int("limit", rateResult.Limit),
			)
			metrics.GatewayRequests.WithLabelValues(metrics.OutcomeRateLimited).Inc()
			metrics.RateLimitRejections.WithLabelValues(string(rateResult.Window)).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewRateLimitEnvelope("RATE_LIMIT_EXCEEDED",
					fmt.Sprintf("Rate limit exceeded: %d requests per %s", rateResult.Limit, rateResult.Window),
					rateResult.Limit, rateResult.ResetAt))
			return
		}

		c.Header(rateLimitRemainingHeader, strconv.Itoa(rateResult.Remaining))
		c.Set(apiKeyContextKey, key)
		c.Set(rateLimitContextKey, rateResult)

		metrics.GatewayRequests.WithLabelValues(metrics.OutcomeAllowed).Inc()

		c.Next()

		metrics.RequestDuration.WithLabelValues(c.FullPath()).Observe(time.Since(start).Seconds())
	}
}

func abortAuthFailure(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, ierr.ErrAPIKeyMalformed):
		log.Debug("Malformed api key", zap.Error(err))
		metrics.GatewayRequests.WithLabelValues(metrics.OutcomeUnauthorized).Inc()
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			dto.NewErrorEnvelope("INVALID_API_KEY", "Invalid API key format"))
	case errors.Is(err, ierr.ErrAPIKeyRevoked):
		metrics.GatewayRequests.WithLabelValues(metrics.OutcomeUnauthorized).Inc()
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			dto.NewErrorEnvelope("INVALID_API_KEY", "API key has been revoked"))
	case errors.Is(err, ierr.ErrAPIKeyExpired):
		metrics.GatewayRequests.WithLabelValues(metrics.OutcomeUnauthorized).Inc()
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			dto.NewErrorEnvelope("INVALID_API_KEY", "API key has expired"))
	case errors.Is(err, ierr.ErrAPIKeyInvalid):
		metrics.GatewayRequests.WithLabelValues(metrics.OutcomeUnauthorized).Inc()
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			dto.NewErrorEnvelope("INVALID_API_KEY", "Invalid API key"))
	default:
		log.Error("Authentication failed with store error", zap.Error(err))
		metrics.GatewayRequests.WithLabelValues(metrics.OutcomeInternalError).Inc()
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			dto.NewErrorEnvelope("INTERNAL_ERROR", "Internal server error"))
	}
}

// resolveClientIP prefers the first forwarded-for hop, then the real-ip
// header, falling back to the "unknown" sentinel.
func resolveClientIP(c *gin.Context) string {
	if fwd := c.GetHeader(forwardedForHeader); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	if real := c.GetHeader(realIPHeader); real != "" {
		return real
	}
	return "unknown"
}

func ipAllowed(allowlist []string, clientIP string) bool {
	for _, ip := range allowlist {
		if ip == clientIP {
			return true
		}
	}
	return false
}

// GetAPIKey returns the validated key record placed by the gateway.
func GetAPIKey(c *gin.Context) *apikey.APIKey {
	value, exists := c.Get(apiKeyContextKey)
	if !exists {
		return nil
	}
	key, ok := value.(*apikey.APIKey)
	if !ok {
		return nil
	}
	return key
}

// GetRateLimitResult returns the rate-limit decision for this request.
func GetRateLimitResult(c *gin.Context) *gateway.Result {
	value, exists := c.Get(rateLimitContextKey)
	if !exists {
		return nil
	}
	result, ok := value.(*gateway.Result)
	if !ok {
		return nil
	}
	return result
}

// GetRequestID returns the correlation id generated for this request.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDContextKey)
}

// GetClientIP returns the caller IP resolved by the gateway.
func GetClientIP(c *gin.Context) string {
	ip := c.GetString(clientIPContextKey)
	if ip == "" {
		return "unknown"
	}
	return ip
}
