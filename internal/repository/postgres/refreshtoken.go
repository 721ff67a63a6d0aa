package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/blogauth/internal/apperrors"
	"github.com/nkiryanov/blogauth/internal/models"
)

type RefreshTokenRepo struct {
	DB DBTX
}

const saveToken = `-- name: SaveRefreshToken
INSERT INTO refresh_tokens (id, user_id, token_hash, created_at, expires_at, revoked, revoked_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, user_id, token_hash, created_at, expires_at, revoked, revoked_at
`

func (r *RefreshTokenRepo) Save(ctx context.Context, tokenString string, token models.RefreshToken) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, saveToken,
		token.ID,
		token.UserID,
		models.HashToken(tokenString),
		token.CreatedAt,
		token.ExpiresAt,
		token.Revoked,
		token.RevokedAt,
	)
	saved, err := pgx.CollectOneRow(rows, rowToRefreshToken)
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}

	return saved, nil
}

const getToken = `-- name: GetRefreshToken
SELECT id, user_id, token_hash, created_at, expires_at, revoked, revoked_at
FROM refresh_tokens
WHERE token_hash = $1
`

// Get token
// It should return result even it expired or revoked already
func (r *RefreshTokenRepo) Get(ctx context.Context, tokenString string) (models.RefreshToken, error) {
	return r.getOne(ctx, getToken, tokenString)
}

const findActiveToken = `-- name: FindActiveRefreshToken
SELECT id, user_id, token_hash, created_at, expires_at, revoked, revoked_at
FROM refresh_tokens
WHERE token_hash = $1 AND revoked = FALSE
`

func (r *RefreshTokenRepo) FindActive(ctx context.Context, tokenString string) (models.RefreshToken, error) {
	return r.getOne(ctx, findActiveToken, tokenString)
}

func (r *RefreshTokenRepo) getOne(ctx context.Context, query string, tokenString string) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, query, models.HashToken(tokenString))
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const revokeToken = `-- name: RevokeRefreshTokenIfActive
UPDATE refresh_tokens
SET revoked = TRUE, revoked_at = $2
WHERE token_hash = $1 AND revoked = FALSE
`

// Revoke token if it is still active
// Concurrent callers block on the row lock; only the first one sees the row as active
func (r *RefreshTokenRepo) Revoke(ctx context.Context, tokenString string, at time.Time) (bool, error) {
	tag, err := r.DB.Exec(ctx, revokeToken, models.HashToken(tokenString), at)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

const revokeAllForUser = `-- name: RevokeAllRefreshTokensForUser
UPDATE refresh_tokens
SET revoked = TRUE, revoked_at = $2
WHERE user_id = $1 AND revoked = FALSE
`

func (r *RefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID int64, at time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, revokeAllForUser, userID, at)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected(), nil
}

func rowToRefreshToken(row pgx.CollectableRow) (models.RefreshToken, error) {
	var t models.RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt, &t.Revoked, &t.RevokedAt)
	return t, err
}
