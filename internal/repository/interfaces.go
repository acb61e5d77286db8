package repository

import (
	"context"
	"time"

	"boltvault/internal/domain/models"

	"github.com/google/uuid"
)

type UserRepository interface {
	SaveUser(ctx context.Context, email string, passHash []byte) (uuid.UUID, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passHash []byte) error
}

type SessionRepository interface {
	SaveSession(ctx context.Context, session models.Session, ttl time.Duration) error
	SessionExists(ctx context.Context, userID uuid.UUID, token string) (bool, error)
	DeleteSession(ctx context.Context, userID uuid.UUID, token string) error
	DeleteAllUserSessions(ctx context.Context, userID uuid.UUID) error
}

type CharacterRepository interface {
	ListCharacters(ctx context.Context, userID uuid.UUID) ([]models.Character, error)
	GetCharacter(ctx context.Context, userID, id uuid.UUID) (models.Character, error)
	CreateCharacter(ctx context.Context, character models.Character) (models.Character, error)
	UpdateCharacter(ctx context.Context, character models.Character) (models.Character, error)
	DeleteCharacter(ctx context.Context, userID, id uuid.UUID) error
}

type MediaRepository interface {
	ListMedia(ctx context.Context, userID uuid.UUID, spec models.FilterSpec, limit, offset int) ([]models.MediaItem, int, error)
	SearchMedia(ctx context.Context, userID uuid.UUID, term string) ([]models.MediaItem, error)
	ListMediaByCharacter(ctx context.Context, userID, characterID uuid.UUID) ([]models.MediaItem, error)
	GetMedia(ctx context.Context, userID, id uuid.UUID) (models.MediaItem, error)
	CreateMedia(ctx context.Context, item models.MediaItem) (models.MediaItem, error)
	UpdateMedia(ctx context.Context, item models.MediaItem) (models.MediaItem, error)
	DeleteMedia(ctx context.Context, userID, id uuid.UUID) (releasedPath string, err error)
	DeleteMediaBatch(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (releasedPaths []string, err error)
	UniqueTags(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type ProfileRepository interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (models.Profile, error)
	UpsertProfile(ctx context.Context, profile models.Profile) (models.Profile, error)
	DeleteAccount(ctx context.Context, userID uuid.UUID) (releasedPaths []string, err error)
}
