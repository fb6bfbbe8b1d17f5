package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account that can share videos.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserPublic is User without the password hash, safe for responses and events.
type UserPublic struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{ID: u.ID, Email: u.Email}
}
