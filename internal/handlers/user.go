package handlers

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/blogauth/internal/apperrors"
	"github.com/nkiryanov/blogauth/internal/handlers/render"
	"github.com/nkiryanov/blogauth/internal/handlers/userctx"
	"github.com/nkiryanov/blogauth/internal/logger"
	"github.com/nkiryanov/blogauth/internal/models"
	"github.com/nkiryanov/blogauth/internal/service/user"
)

type userResponse struct {
	UserID       int64  `json:"userId"`
	Username     string `json:"username"`
	Nickname     string `json:"nickname"`
	ProfileImage string `json:"profileImage"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{UserID: u.ID, Username: u.Username, Nickname: u.Nickname, ProfileImage: u.ProfileImage}
}

func handleSignUp(userService userService, logger logger.Logger) http.Handler {
	type request struct {
		Username     string `json:"username" validate:"required,username,min=2,max=50"`
		Password     string `json:"password" validate:"required,min=8"`
		Nickname     string `json:"nickname" validate:"max=50"`
		ProfileImage string `json:"profileImage" validate:"omitempty,url"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		u, err := userService.CreateUser(r.Context(), user.NewUser{
			Username:     data.Username,
			Password:     data.Password,
			Nickname:     data.Nickname,
			ProfileImage: data.ProfileImage,
		})
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserAlreadyExists):
				render.ServiceError(w, "User already exists", http.StatusConflict)
			default:
				logger.Error("sign up failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSONStatus(w, newUserResponse(u), http.StatusCreated)
	})
}

func handleLogin(authService authService, userService userService, binder tokenBinder, logger logger.Logger) http.Handler {
	type request struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	type response struct {
		Login bool `json:"login"`
		userResponse
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		u, err := userService.VerifyCredentials(r.Context(), data.Username, data.Password)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserNotFound):
				render.ServiceError(w, "User not found", http.StatusUnauthorized)
			default:
				logger.Error("credentials check failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		pair, err := authService.Login(r.Context(), u)
		if err != nil {
			logger.Error("login failed", "user_id", u.ID, "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		binder.Bind(w, pair)
		render.JSON(w, response{Login: true, userResponse: newUserResponse(u)})
	})
}

func handleLogout(authService authService, binder tokenBinder, logger logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := userctx.FromContext(r.Context())

		if err := authService.Logout(r.Context(), p.UserID); err != nil {
			logger.Error("logout failed", "user_id", p.UserID, "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		binder.Clear(w)
		render.JSON(w, response{Message: "Logged out"})
	})
}

func handleUserMe(userService userService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := userctx.FromContext(r.Context())

		u, err := userService.GetUser(r.Context(), p.UserID)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserNotFound):
				render.ServiceError(w, "User not found", http.StatusNotFound)
			default:
				logger.Error("user lookup failed", "user_id", p.UserID, "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, newUserResponse(u))
	})
}
