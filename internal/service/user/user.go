package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/nkiryanov/blogauth/internal/apperrors"
	"github.com/nkiryanov/blogauth/internal/models"
	"github.com/nkiryanov/blogauth/internal/repository"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type UserService struct {
	hasher   PasswordHasher
	userRepo repository.UserRepo

	// Compared against when user not found, so both branches cost the same
	dummyHash string
}

func NewService(hasher PasswordHasher, userRepo repository.UserRepo) (*UserService, error) {
	if hasher == nil {
		hasher = DefaultHasher
	}

	dummyHash, err := hasher.Hash("dummy-password")
	if err != nil {
		return nil, fmt.Errorf("hasher does not work. Err: %w", err)
	}

	return &UserService{
		hasher:    hasher,
		userRepo:  userRepo,
		dummyHash: dummyHash,
	}, nil
}

type NewUser struct {
	Username     string
	Password     string
	Nickname     string
	ProfileImage string
}

func (s *UserService) CreateUser(ctx context.Context, u NewUser) (models.User, error) {
	var user models.User
	if u.Password == "" {
		return user, errors.New("password must not be empty")
	}

	hash, err := s.hasher.Hash(u.Password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	user, err = s.userRepo.CreateUser(ctx, models.User{
		Username:       u.Username,
		HashedPassword: hash,
		Nickname:       u.Nickname,
		ProfileImage:   u.ProfileImage,
	})
	if err != nil {
		return user, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user, nil
}

// VerifyCredentials returns the user if the password matches
// Unknown user and wrong password both give apperrors.ErrUserNotFound
func (s *UserService) VerifyCredentials(ctx context.Context, username string, password string) (models.User, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		_ = s.hasher.Compare(s.dummyHash, password)
		return models.User{}, apperrors.ErrUserNotFound
	case err != nil:
		return models.User{}, err
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.User{}, apperrors.ErrUserNotFound
	}

	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, userID int64) (models.User, error) {
	return s.userRepo.GetUserByID(ctx, userID)
}
