package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/ierr"
	"github.com/contentlens/analyzer-api/internal/service"
)

const userClaimsContextKey = "userClaims"

// AuthMiddleware guards the dashboard/key-management routes with a JWT
// issued by the auth service. Gated analysis routes use APIKeyGateway
// instead.
func AuthMiddleware(authService *service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("AuthMiddleware")
	return func(c *gin.Context) {
		authHeader := c.GetHeader(authorizationHeader)
		if authHeader == "" {
			log.Debug("Authorization header is missing")
			_ = c.Error(fmt.Errorf("%w: authorization header required", ierr.ErrUnauthorized))
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, bearerPrefix) {
			log.Debug("Authorization header format is invalid")
			_ = c.Error(fmt.Errorf("%w: invalid authorization header format", ierr.ErrUnauthorized))
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)
		if tokenString == "" {
			_ = c.Error(fmt.Errorf("%w: token missing", ierr.ErrUnauthorized))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(tokenString)
		if err != nil {
			log.Warn("Token validation failed", zap.Error(err))
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(userClaimsContextKey, claims)
		c.Next()
	}
}

func GetUserClaims(c *gin.Context) *service.UserClaims {
	value, exists := c.Get(userClaimsContextKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*service.UserClaims)
	if !ok {
		return nil
	}
	return claims
}
