package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/config"
	"github.com/contentlens/analyzer-api/internal/domain/user"
	"github.com/contentlens/analyzer-api/internal/ierr"
	"github.com/contentlens/analyzer-api/internal/storage/memstorage"
)

type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*user.User, error)
}

type UserClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	users  UserRepository
	cfg    *config.JWTConfig
	logger *zap.Logger
}

func NewAuthService(users UserRepository, cfg *config.JWTConfig, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		cfg:    cfg,
		logger: logger.Named("AuthService"),
	}
}

func (s *AuthService) Login(ctx context.Context, username, password string) (string, time.Duration, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		s.logger.Debug("Login attempt for unknown user", zap.String("username", username))
		return "", 0, ierr.ErrInvalidCredentials
	}

	if !memstorage.CheckPassword(u.PasswordHash, password) {
		s.logger.Warn("Login attempt with wrong password", zap.String("username", username))
		return "", 0, ierr.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	claims := UserClaims{
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		s.logger.Error("Failed to sign access token", zap.Error(err))
		return "", 0, fmt.Errorf("%w: failed to sign token", ierr.ErrInternalServer)
	}

	s.logger.Info("User logged in", zap.String("username", u.Username))
	return signed, s.cfg.TTL, nil
}

func (s *AuthService) ValidateToken(rawToken string) (*UserClaims, error) {
	claims := &UserClaims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithIssuer(s.cfg.Issuer), jwt.WithExpirationRequired())

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ierr.ErrInvalidToken, err)
	}

	return claims, nil
}
