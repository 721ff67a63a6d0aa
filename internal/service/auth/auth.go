package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/blogauth/internal/apperrors"
	"github.com/nkiryanov/blogauth/internal/logger"
	"github.com/nkiryanov/blogauth/internal/models"
	"github.com/nkiryanov/blogauth/internal/repository"
	"github.com/nkiryanov/blogauth/internal/service/auth/tokencodec"
)

type codec interface {
	Now() time.Time
	MintAccess(userID int64, now time.Time) (models.IssuedToken, error)
	MintRefresh(userID int64, now time.Time) (models.IssuedToken, error)
	Parse(token string) (tokencodec.Claims, error)
}

type accessVerifier interface {
	Check(token string) (tokencodec.Claims, error)
}

// Limiter throttles rotation attempts per user
type Limiter interface {
	Allow(ctx context.Context, key string) error
}

type Config struct {
	// Revoke every active refresh token of the owner when an already revoked one is presented
	// Off by default: two tabs racing on the same token would log each other out
	RevokeFamilyOnReuse bool

	// Optional rotation limiter
	Limiter Limiter

	// Logger for rejected rotations. No-op if not set
	Logger logger.Logger
}

// Auth service
// Decides per request whether the caller is authenticated and rotates refresh tokens
type AuthService struct {
	codec    codec
	verifier accessVerifier
	storage  repository.Storage
	limiter  Limiter
	logger   logger.Logger

	revokeFamilyOnReuse bool
}

func NewService(cfg Config, c codec, v accessVerifier, storage repository.Storage) (*AuthService, error) {
	if c == nil || v == nil || storage == nil {
		return nil, errors.New("codec, verifier and storage must not be nil")
	}

	l := cfg.Logger
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &AuthService{
		codec:               c,
		verifier:            v,
		storage:             storage,
		limiter:             cfg.Limiter,
		logger:              l,
		revokeFamilyOnReuse: cfg.RevokeFamilyOnReuse,
	}, nil
}

// Login issues the first token pair for a verified user
// All refresh tokens the user had before are revoked
func (s *AuthService) Login(ctx context.Context, user models.User) (models.TokenPair, error) {
	var pair models.TokenPair
	now := s.codec.Now()

	err := s.storage.InTx(ctx, func(tx repository.Storage) error {
		revoked, err := tx.Refresh().RevokeAllForUser(ctx, user.ID, now)
		if err != nil {
			return fmt.Errorf("error while revoking previous tokens. Err: %w", err)
		}
		if revoked > 0 {
			s.logger.Debug("previous sessions revoked on login", "user_id", user.ID, "count", revoked)
		}

		pair, err = s.issuePair(ctx, tx.Refresh(), user.ID, now)
		return err
	})
	if err != nil {
		return models.TokenPair{}, err
	}

	return pair, nil
}

// Logout revokes every refresh token of the user
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	count, err := s.storage.Refresh().RevokeAllForUser(ctx, userID, s.codec.Now())
	if err != nil {
		return fmt.Errorf("error while revoking tokens. Err: %w", err)
	}

	s.logger.Debug("user logged out", "user_id", userID, "revoked", count)
	return nil
}

// Authenticate makes authenticate-or-rotate decision for the request credentials
// Never fails: every problem ends up as Unauthenticated
func (s *AuthService) Authenticate(ctx context.Context, access string, refresh string) Result {
	if access != "" {
		claims, err := s.verifier.Check(access)
		if err == nil {
			return Authenticated{UserID: claims.Subject, Profile: s.lookupProfile(ctx, claims.Subject)}
		}
		s.logger.Debug("access token rejected", "reason", failureReason(err))
	}

	if refresh == "" {
		return Unauthenticated{CanRefresh: false}
	}

	rotated, err := s.Rotate(ctx, refresh)
	if err != nil {
		s.logger.Info("refresh token rotation rejected", "reason", failureReason(err))
		return Unauthenticated{CanRefresh: false, Reason: err}
	}

	return rotated
}

// Rotate exchanges active refresh token for a new pair
// The presented token is revoked and the new one saved in the same transaction
func (s *AuthService) Rotate(ctx context.Context, refresh string) (Rotated, error) {
	claims, err := s.codec.Parse(refresh)
	if err != nil {
		return Rotated{}, err
	}
	if !claims.IsRefresh() {
		return Rotated{}, fmt.Errorf("access token used as refresh: %w", apperrors.ErrTokenTypeMismatch)
	}

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, "rotate:"+strconv.FormatInt(claims.Subject, 10)); err != nil {
			return Rotated{}, fmt.Errorf("rotation throttled: %w", err)
		}
	}

	var rotated Rotated
	now := s.codec.Now()

	err = s.storage.InTx(ctx, func(tx repository.Storage) error {
		token, err := tx.Refresh().FindActive(ctx, refresh)
		if err != nil {
			return err
		}

		if !now.Before(token.ExpiresAt) {
			return fmt.Errorf("expired at %s: %w", token.ExpiresAt.Format(time.RFC3339), apperrors.ErrRefreshTokenExpired)
		}

		// Owner comes from the stored row, not from the token claims
		user, err := tx.User().GetUserByID(ctx, token.UserID)
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			return fmt.Errorf("user %d: %w", token.UserID, apperrors.ErrIdentityMissing)
		case err != nil:
			return err
		}

		revoked, err := tx.Refresh().Revoke(ctx, refresh, now)
		if err != nil {
			return err
		}
		if !revoked {
			return fmt.Errorf("revoked concurrently: %w", apperrors.ErrRefreshTokenNotFound)
		}

		pair, err := s.issuePair(ctx, tx.Refresh(), user.ID, now)
		if err != nil {
			return err
		}

		rotated = Rotated{UserID: user.ID, Profile: profileOf(user), Tokens: pair}
		return nil
	})

	if err != nil {
		if s.revokeFamilyOnReuse && errors.Is(err, apperrors.ErrRefreshTokenNotFound) {
			s.revokeFamily(ctx, refresh, now)
		}
		return Rotated{}, err
	}

	return rotated, nil
}

// revokeFamily revokes all tokens of the owner if the presented token was revoked before
// Runs outside the failed rotation transaction
func (s *AuthService) revokeFamily(ctx context.Context, refresh string, now time.Time) {
	token, err := s.storage.Refresh().Get(ctx, refresh)
	if err != nil || !token.Revoked {
		return
	}

	count, err := s.storage.Refresh().RevokeAllForUser(ctx, token.UserID, now)
	if err != nil {
		s.logger.Error("failed to revoke token family", "user_id", token.UserID, "error", err.Error())
		return
	}

	s.logger.Warn("revoked refresh token reused, all user sessions revoked", "user_id", token.UserID, "revoked", count)
}

func (s *AuthService) issuePair(ctx context.Context, repo repository.RefreshTokenRepo, userID int64, now time.Time) (models.TokenPair, error) {
	access, err := s.codec.MintAccess(userID, now)
	if err != nil {
		return models.TokenPair{}, err
	}

	refresh, err := s.codec.MintRefresh(userID, now)
	if err != nil {
		return models.TokenPair{}, err
	}

	_, err = repo.Save(ctx, refresh.Value, models.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: refresh.ExpiresAt,
	})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

// Profile fields are a courtesy; missing identity does not break a valid access token
func (s *AuthService) lookupProfile(ctx context.Context, userID int64) Profile {
	user, err := s.storage.User().GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Debug("profile lookup failed", "user_id", userID, "error", err.Error())
		return Profile{}
	}
	return profileOf(user)
}

// failureReason maps an error to a short value for logs
func failureReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, apperrors.ErrTokenSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, apperrors.ErrTokenExpired):
		return "expired"
	case errors.Is(err, apperrors.ErrTokenTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, apperrors.ErrRefreshTokenNotFound):
		return "not_found_or_revoked"
	case errors.Is(err, apperrors.ErrRefreshTokenExpired):
		return "stored_token_expired"
	case errors.Is(err, apperrors.ErrIdentityMissing):
		return "identity_missing"
	case errors.Is(err, apperrors.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, apperrors.ErrRedisUnavailable):
		return "limiter_unavailable"
	default:
		return "internal"
	}
}
