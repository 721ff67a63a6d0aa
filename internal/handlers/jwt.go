package handlers

import (
	"net/http"

	"github.com/nkiryanov/blogauth/internal/handlers/render"
	"github.com/nkiryanov/blogauth/internal/service/auth"
)

// handleValidate tells the client whether it is logged in
// Expired access token is renewed here when a refresh token is present
func handleValidate(authService authService, binder tokenBinder) http.Handler {
	type response struct {
		Login        bool   `json:"login"`
		UserID       int64  `json:"userId"`
		Nickname     string `json:"nickname,omitempty"`
		ProfileImage string `json:"profileImage,omitempty"`

		// Tokens were renewed and new cookies are set
		Rotated bool `json:"rotated"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := authService.Authenticate(r.Context(), binder.AccessToken(r), binder.RefreshToken(r))

		switch res := result.(type) {
		case auth.Authenticated:
			render.JSON(w, response{
				Login:        true,
				UserID:       res.UserID,
				Nickname:     res.Profile.Nickname,
				ProfileImage: res.Profile.ProfileImage,
			})
		case auth.Rotated:
			binder.Bind(w, res.Tokens)
			render.JSON(w, response{
				Login:        true,
				UserID:       res.UserID,
				Nickname:     res.Profile.Nickname,
				ProfileImage: res.Profile.ProfileImage,
				Rotated:      true,
			})
		case auth.Unauthenticated:
			render.LoginRequired(w, res.CanRefresh)
		default:
			render.LoginRequired(w, false)
		}
	})
}
