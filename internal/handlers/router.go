package handlers

import (
	"context"
	"net/http"

	"github.com/nkiryanov/blogauth/internal/handlers/middleware"
	"github.com/nkiryanov/blogauth/internal/logger"
	"github.com/nkiryanov/blogauth/internal/models"
	"github.com/nkiryanov/blogauth/internal/service/auth"
	"github.com/nkiryanov/blogauth/internal/service/auth/tokencodec"
	"github.com/nkiryanov/blogauth/internal/service/user"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	userService userService,
	binder tokenBinder,
	verifier accessVerifier,
	logger logger.Logger,
) http.Handler {
	withAuth := middleware.AuthMiddleware(verifier, binder)

	apiusers := http.NewServeMux()
	apiusers.Handle("POST /sign-up", handleSignUp(userService, logger))
	apiusers.Handle("POST /login", handleLogin(authService, userService, binder, logger))
	apiusers.Handle("PUT /log-out", withAuth(handleLogout(authService, binder, logger)))

	apijwt := http.NewServeMux()
	apijwt.Handle("GET /validate", handleValidate(authService, binder))

	root := http.NewServeMux()
	root.Handle("/api/users/", http.StripPrefix("/api/users", apiusers))
	root.Handle("GET /api/users", withAuth(handleUserMe(userService, logger)))
	root.Handle("/api/jwt/", http.StripPrefix("/api/jwt", apijwt))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Issue first token pair for verified user
	Login(ctx context.Context, user models.User) (models.TokenPair, error)

	// Revoke all refresh tokens of the user
	Logout(ctx context.Context, userID int64) error

	// Authenticate by access token or rotate refresh token
	// Has to return one of auth.Authenticated, auth.Rotated, auth.Unauthenticated
	Authenticate(ctx context.Context, access string, refresh string) auth.Result
}

type userService interface {
	// Has to return apperrors.ErrUserAlreadyExists if user already exists
	CreateUser(ctx context.Context, u user.NewUser) (models.User, error)

	// Has to return apperrors.ErrUserNotFound if user not found or password is wrong
	VerifyCredentials(ctx context.Context, username string, password string) (models.User, error)

	// Has to return apperrors.ErrUserNotFound if user not found
	GetUser(ctx context.Context, userID int64) (models.User, error)
}

type tokenBinder interface {
	AccessToken(r *http.Request) string
	RefreshToken(r *http.Request) string
	Bind(w http.ResponseWriter, pair models.TokenPair)
	Clear(w http.ResponseWriter)
}

type accessVerifier interface {
	Check(token string) (tokencodec.Claims, error)
}
