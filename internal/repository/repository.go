package repository

import (
	"context"
	"time"

	"github.com/nkiryanov/blogauth/internal/models"
)

// Storage gives access to all repositories
// Repositories returned inside InTx share the same transaction
type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo

	// Run fn in transaction. Commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with username exists already has to return error apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, user models.User) (models.User, error)

	// Get user by it's id or username
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID int64) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}

// RefreshToken repository interface
// Tokens are looked up by their string, implementations store models.HashToken of it only
type RefreshTokenRepo interface {
	// Save new token. token.TokenHash is ignored and computed from tokenString
	Save(ctx context.Context, tokenString string, token models.RefreshToken) (models.RefreshToken, error)

	// Return token if it exists and not revoked
	// Expiration is not checked here
	// If the token is unknown or revoked must return apperrors.ErrRefreshTokenNotFound
	FindActive(ctx context.Context, tokenString string) (models.RefreshToken, error)

	// Return token whatever its state is
	// If the token is unknown must return apperrors.ErrRefreshTokenNotFound
	Get(ctx context.Context, tokenString string) (models.RefreshToken, error)

	// Revoke the token if it not revoked yet
	// Returns true only for the caller that actually revoked it; unknown or revoked tokens give false
	Revoke(ctx context.Context, tokenString string, at time.Time) (bool, error)

	// Revoke all active tokens of the user and return how many were revoked
	RevokeAllForUser(ctx context.Context, userID int64, at time.Time) (int64, error)
}
