package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	// Token parsing failures. Expired wins over the others when several apply
	ErrTokenMalformed        = errors.New("token is malformed")
	ErrTokenSignatureInvalid = errors.New("token signature is invalid")
	ErrTokenExpired          = errors.New("token is expired")
	ErrTokenTypeMismatch     = errors.New("token has unexpected type")

	// Covers unknown and already revoked tokens alike
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token is expired")

	// Refresh token is active but its owner does not exist anymore
	ErrIdentityMissing = errors.New("token owner not found")

	ErrRateLimited      = errors.New("too many attempts")
	ErrRedisUnavailable = errors.New("redis unavailable")
)
