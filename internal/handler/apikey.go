package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/handler/dto"
	"github.com/contentlens/analyzer-api/internal/handler/middleware"
	"github.com/contentlens/analyzer-api/internal/ierr"
	"github.com/contentlens/analyzer-api/internal/service"
)

type APIKeyHandler struct {
	service *service.APIKeyService
	logger  *zap.Logger
}

func NewAPIKeyHandler(service *service.APIKeyService, logger *zap.Logger) *APIKeyHandler {
	return &APIKeyHandler{
		service: service,
		logger:  logger.Named("APIKeyHandler"),
	}
}

func accountIDFromClaims(c *gin.Context) (uuid.UUID, error) {
	claims := middleware.GetUserClaims(c)
	if claims == nil {
		return uuid.Nil, fmt.Errorf("%w: missing user claims", ierr.ErrUnauthorized)
	}
	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid subject in token", ierr.ErrInvalidToken)
	}
	return accountID, nil
}

func (h *APIKeyHandler) Create(c *gin.Context) {
	accountID, err := accountIDFromClaims(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req dto.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind create api key request", zap.Error(err))
		_ = c.Error(err)
		return
	}

	resp, err := h.service.CreateAPIKey(c.Request.Context(), accountID, &req)
	if err != nil {
		h.logger.Error("Service failed to create api key", zap.Error(err))
		_ = c.Error(err)
		return
	}

	h.logger.Info("API Key created via handler", zap.String("id", resp.ID.String()))
	c.JSON(http.StatusCreated, dto.NewSuccessEnvelope(resp, nil))
}

func (h *APIKeyHandler) List(c *gin.Context) {
	accountID, err := accountIDFromClaims(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	keys, err := h.service.ListAPIKeys(c.Request.Context(), accountID)
	if err != nil {
		h.logger.Error("Service failed to list api keys", zap.Error(err))
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessEnvelope(keys, nil))
}

func (h *APIKeyHandler) Revoke(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Warn("Invalid UUID format for revoke api key", zap.String("id_param", idStr))
		_ = c.Error(fmt.Errorf("%w: invalid api key id format", ierr.ErrValidation))
		return
	}

	var req dto.RevokeAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		_ = c.Error(err)
		return
	}

	if err := h.service.RevokeAPIKey(c.Request.Context(), id, req.Reason); err != nil {
		h.logger.Error("Service failed to revoke api key", zap.String("id", id.String()), zap.Error(err))
		_ = c.Error(err)
		return
	}

	h.logger.Info("API Key revoked via handler", zap.String("id", id.String()))
	c.Status(http.StatusNoContent)
}
