package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is an authenticated browser or API session.
type Session struct {
	Token     string    `json:"access_token"`
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}
