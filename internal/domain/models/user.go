package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Password  []byte    `db:"password" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Profile is the public part of an account shown on the settings page.
type Profile struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Username  string    `db:"username" json:"username" form:"username" validate:"omitempty,min=3,max=32"`
	FullName  string    `db:"full_name" json:"full_name" form:"full_name" validate:"max=100"`
	AvatarURL string    `db:"avatar_url" json:"avatar_url" form:"avatar_url" validate:"omitempty,url"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
