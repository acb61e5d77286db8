package models

import (
	"time"

	"github.com/google/uuid"
)

// Character groups media items under a user defined profile.
type Character struct {
	ID                uuid.UUID `json:"id" db:"id"`
	UserID            uuid.UUID `json:"user_id" db:"user_id"`
	Name              string    `json:"name" db:"name"`
	Bio               string    `json:"bio" db:"bio"`
	ProfilePictureURL string    `json:"profile_picture_url" db:"profile_picture_url"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

type CharacterInput struct {
	Name              string `json:"name" form:"name" validate:"required,max=100"`
	Bio               string `json:"bio" form:"bio" validate:"max=2000"`
	ProfilePictureURL string `json:"profile_picture_url" form:"profile_picture_url" validate:"omitempty,url"`
}
