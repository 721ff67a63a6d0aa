package user

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkiryanov/blogauth/internal/apperrors"
	"github.com/nkiryanov/blogauth/internal/repository/memory"
	"github.com/nkiryanov/blogauth/internal/repository/postgres"
	"github.com/nkiryanov/blogauth/internal/testutil"
)

var fastHasher = BcryptHasher{Cost: bcrypt.MinCost}

func TestUser(t *testing.T) {
	t.Parallel()

	newService := func(t *testing.T) *UserService {
		s, err := NewService(fastHasher, memory.NewStorage().User())
		require.NoError(t, err)
		return s
	}

	t.Run("CreateUser", func(t *testing.T) {
		t.Run("create ok", func(t *testing.T) {
			s := newService(t)

			user, err := s.CreateUser(t.Context(), NewUser{Username: "test-user", Password: "password123", Nickname: "Nick"})

			require.NoError(t, err, "creating new user should be ok")
			require.NotZero(t, user.ID, "user ID should not be empty")
			require.Equal(t, "test-user", user.Username, "username should match")
			require.Equal(t, "Nick", user.Nickname)
			require.NotEqual(t, "password123", user.HashedPassword, "password should be hashed")
			require.NotZero(t, user.CreatedAt, "created at should be set")
		})

		t.Run("empty password fail", func(t *testing.T) {
			s := newService(t)

			_, err := s.CreateUser(t.Context(), NewUser{Username: "test-user"})

			require.Error(t, err, "creating user with empty password should fail")
		})

		t.Run("existed user fail", func(t *testing.T) {
			s := newService(t)
			_, err := s.CreateUser(t.Context(), NewUser{Username: "test-user", Password: "pwd"})
			require.NoError(t, err)

			_, err = s.CreateUser(t.Context(), NewUser{Username: "test-user", Password: "other"})

			require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
		})
	})

	t.Run("VerifyCredentials", func(t *testing.T) {
		s := newService(t)
		created, err := s.CreateUser(t.Context(), NewUser{Username: "nk", Password: "pwd"})
		require.NoError(t, err)

		t.Run("ok", func(t *testing.T) {
			got, err := s.VerifyCredentials(t.Context(), "nk", "pwd")

			require.NoError(t, err)
			require.Equal(t, created.ID, got.ID)
		})

		tests := []struct {
			name     string
			username string
			password string
		}{
			{"wrong password", "nk", "wrong"},
			{"unknown user", "not-existed-user", "pwd"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := s.VerifyCredentials(t.Context(), tt.username, tt.password)

				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		}
	})

	t.Run("GetUser", func(t *testing.T) {
		s := newService(t)
		created, err := s.CreateUser(t.Context(), NewUser{Username: "nk", Password: "pwd"})
		require.NoError(t, err)

		got, err := s.GetUser(t.Context(), created.ID)
		require.NoError(t, err)
		require.Equal(t, created, got)

		_, err = s.GetUser(t.Context(), created.ID+1)
		require.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})
}

func TestUser_Postgres(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
		s, err := NewService(fastHasher, postgres.NewStorage(tx).User())
		require.NoError(t, err)

		created, err := s.CreateUser(t.Context(), NewUser{Username: "nk", Password: "pwd", ProfileImage: "https://img.example.com/nk.png"})
		require.NoError(t, err)

		got, err := s.VerifyCredentials(t.Context(), "nk", "pwd")
		require.NoError(t, err)
		require.Equal(t, created, got)
	})
}
