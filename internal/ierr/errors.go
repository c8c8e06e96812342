package ierr

import "errors"

var (
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource conflict")
	ErrInternalServer = errors.New("internal server error")

	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")

	// Gateway rejection taxonomy. All four key errors surface to callers
	// as 401 with code INVALID_API_KEY; the distinction exists for logs.
	ErrAPIKeyMalformed = errors.New("malformed api key")
	ErrAPIKeyInvalid   = errors.New("invalid api key")
	ErrAPIKeyRevoked   = errors.New("api key has been revoked")
	ErrAPIKeyExpired   = errors.New("api key has expired")

	ErrIPNotAllowed      = errors.New("ip address not whitelisted")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrQuotaExceeded     = errors.New("monthly quota exceeded")
)
