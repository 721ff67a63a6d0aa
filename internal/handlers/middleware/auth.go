package middleware

import (
	"net/http"

	"github.com/nkiryanov/blogauth/internal/handlers/render"
	"github.com/nkiryanov/blogauth/internal/handlers/userctx"
	"github.com/nkiryanov/blogauth/internal/service/auth/tokencodec"
)

type accessVerifier interface {
	Check(token string) (tokencodec.Claims, error)
}

type tokenReader interface {
	AccessToken(r *http.Request) string
	RefreshToken(r *http.Request) string
}

// AuthMiddleware lets through requests with a valid access token only
// It never rotates: clients with a refresh token are told they can refresh
func AuthMiddleware(v accessVerifier, tokens tokenReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := v.Check(tokens.AccessToken(r))
			if err != nil {
				render.LoginRequired(w, tokens.RefreshToken(r) != "")
				return
			}

			ctx := userctx.New(r.Context(), userctx.Principal{UserID: claims.Subject})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
