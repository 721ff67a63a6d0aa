package models

import (
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// Refresh token as it stored in repository
// Only the hash of the token string is kept, never the token itself
type RefreshToken struct {
	ID        uuid.UUID
	UserID    int64
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
	RevokedAt *time.Time // nil if token not revoked
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issued by AuthService
// Refresh may be empty when only access token is reissued
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// HashToken returns lookup key for the token string
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
