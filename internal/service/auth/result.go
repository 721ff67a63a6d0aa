package auth

import (
	"github.com/nkiryanov/blogauth/internal/models"
)

// Result of Authenticate: one of Authenticated, Rotated, Unauthenticated
type Result interface {
	isResult()
}

// Public part of the identity, shown to the user after authentication
type Profile struct {
	Nickname     string
	ProfileImage string
}

func profileOf(u models.User) Profile {
	return Profile{Nickname: u.Nickname, ProfileImage: u.ProfileImage}
}

// Access token was valid. Nothing has to be written back
type Authenticated struct {
	UserID  int64
	Profile Profile
}

// Refresh token was exchanged for a new pair; both have to be sent back
type Rotated struct {
	UserID  int64
	Profile Profile
	Tokens  models.TokenPair
}

// Nobody is authenticated
type Unauthenticated struct {
	// Client may try again with a refresh token
	CanRefresh bool

	// Why rotation failed. For logs only, never show it to the client
	Reason error
}

func (Authenticated) isResult()   {}
func (Rotated) isResult()         {}
func (Unauthenticated) isResult() {}
