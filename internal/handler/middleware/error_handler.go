package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/handler/dto"
	"github.com/contentlens/analyzer-api/internal/ierr"
)

// ErrorHandlerMiddleware converts errors attached to the gin context into
// the uniform error envelope. Nothing below this boundary writes a raw
// error to the wire.
func ErrorHandlerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("ErrorHandler")
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		log.Error("Request failed", zap.Error(err))

		status := http.StatusInternalServerError
		body := dto.ErrorBody{
			Code:    "INTERNAL_ERROR",
			Message: "An unexpected error occurred.",
		}

		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			status = http.StatusBadRequest
			body.Code = "INVALID_REQUEST"
			body.Message = validationErrorMsg(ve[0])
			body.Field = ve[0].Field()
		} else {
			switch {
			case errors.Is(err, ierr.ErrValidation):
				status = http.StatusBadRequest
				body.Code = "INVALID_REQUEST"
				body.Message = err.Error()
			case errors.Is(err, ierr.ErrUnauthorized), errors.Is(err, ierr.ErrInvalidCredentials), errors.Is(err, ierr.ErrInvalidToken):
				status = http.StatusUnauthorized
				body.Code = "UNAUTHENTICATED"
				body.Message = "Authentication required or failed."
			case errors.Is(err, ierr.ErrForbidden):
				status = http.StatusForbidden
				body.Code = "FORBIDDEN"
				body.Message = "Access denied."
			case errors.Is(err, ierr.ErrQuotaExceeded):
				status = http.StatusPaymentRequired
				body.Code = "QUOTA_EXCEEDED"
				body.Message = "Monthly quota exceeded for this API key's tier."
			case errors.Is(err, ierr.ErrNotFound), errors.Is(err, ierr.ErrUserNotFound):
				status = http.StatusNotFound
				body.Code = "NOT_FOUND"
				body.Message = "The requested resource was not found."
			case errors.Is(err, ierr.ErrConflict):
				status = http.StatusConflict
				body.Code = "CONFLICT"
				body.Message = err.Error()
			}
		}

		if requestID := GetRequestID(c); requestID != "" {
			body.RequestID = requestID
		}

		c.AbortWithStatusJSON(status, dto.ErrorEnvelope{Success: false, Error: body})
	}
}

func validationErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", fe.Field())
	case "min":
		return fmt.Sprintf("Field '%s' must have at least %s characters or items", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("Field '%s' must have at most %s characters or items", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("Field '%s' must be one of [%s]", fe.Field(), fe.Param())
	case "ip":
		return fmt.Sprintf("Field '%s' must contain valid IP addresses", fe.Field())
	default:
		return fmt.Sprintf("Field '%s' failed validation on the '%s' tag", fe.Field(), fe.Tag())
	}
}
