// Package gateway is the only way the rest of the application reaches the
// backend: tables, stored procedures, the object store and the session.
package gateway

import (
	"context"
	"io"

	"boltvault/internal/domain/models"

	"github.com/google/uuid"
)

// Upload describes a file that reached the object store.
type Upload struct {
	URL          string
	StoragePath  string
	Type         models.MediaType
	ThumbnailURL string
}

// Source returns the upload as a media source.
func (u Upload) Source() models.UploadSource {
	return models.UploadSource{
		StoragePath:  u.StoragePath,
		URL:          u.URL,
		Type:         u.Type,
		ThumbnailURL: u.ThumbnailURL,
	}
}

type Gateway interface {
	// CurrentUser never fails; it returns nil for anonymous callers.
	CurrentUser(ctx context.Context) *models.Session

	ListCharacters(ctx context.Context) ([]models.Character, error)
	GetCharacter(ctx context.Context, id uuid.UUID) (models.Character, error)
	CreateCharacter(ctx context.Context, in models.CharacterInput) (models.Character, error)
	UpdateCharacter(ctx context.Context, id uuid.UUID, in models.CharacterInput) (models.Character, error)
	DeleteCharacter(ctx context.Context, id uuid.UUID) error

	ListMedia(ctx context.Context, spec models.FilterSpec, page int) (models.MediaPage, error)
	SearchMedia(ctx context.Context, term string) ([]models.MediaItem, error)
	ListMediaByCharacter(ctx context.Context, characterID uuid.UUID) ([]models.MediaItem, error)
	UniqueTags(ctx context.Context) ([]string, error)
	GetMedia(ctx context.Context, id uuid.UUID) (models.MediaItem, error)
	CreateMedia(ctx context.Context, draft models.MediaDraft) (models.MediaItem, error)
	UpdateMedia(ctx context.Context, id uuid.UUID, draft models.MediaDraft) (models.MediaItem, error)
	DeleteMedia(ctx context.Context, id uuid.UUID) error
	DeleteMediaBatch(ctx context.Context, ids []uuid.UUID) error

	UploadFile(ctx context.Context, filename string, r io.Reader) (Upload, error)
	DeleteStoredFile(ctx context.Context, path string) error

	GetProfile(ctx context.Context) (models.Profile, error)
	UpdateProfile(ctx context.Context, profile models.Profile) (models.Profile, error)
	DeleteAccount(ctx context.Context) error

	PageSize() int
}
