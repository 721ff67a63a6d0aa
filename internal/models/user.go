package models

import (
	"time"
)

type User struct {
	ID             int64
	CreatedAt      time.Time
	Username       string
	HashedPassword string

	// Public profile. Both may be empty
	Nickname     string
	ProfileImage string
}
