package gateway

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"boltvault/internal/domain/models"
	"boltvault/internal/lib/logger/sl"
	"boltvault/internal/lib/thumbnail"
	"boltvault/internal/metrics"
	"boltvault/internal/repository"
	"boltvault/internal/storage"
	filestorage "boltvault/internal/storage/filestorage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/patrickmn/go-cache"
)

const (
	tagCacheTTL     = 5 * time.Minute
	sniffLen        = 3072
	defaultPageSize = 20
)

// Remote implements Gateway on top of the repositories and the object store.
type Remote struct {
	log        *slog.Logger
	characters repository.CharacterRepository
	media      repository.MediaRepository
	profiles   repository.ProfileRepository
	files      filestorage.FileStorage
	tags       *cache.Cache
	pageSize   int
}

func NewRemote(
	log *slog.Logger,
	characters repository.CharacterRepository,
	media repository.MediaRepository,
	profiles repository.ProfileRepository,
	files filestorage.FileStorage,
	pageSize int,
) *Remote {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &Remote{
		log:        log,
		characters: characters,
		media:      media,
		profiles:   profiles,
		files:      files,
		tags:       cache.New(tagCacheTTL, 2*tagCacheTTL),
		pageSize:   pageSize,
	}
}

func (g *Remote) PageSize() int {
	return g.pageSize
}

func (g *Remote) CurrentUser(ctx context.Context) *models.Session {
	return SessionFrom(ctx)
}

func (g *Remote) ListCharacters(ctx context.Context) ([]models.Character, error) {
	const op = "gateway.Remote.ListCharacters"

	s := SessionFrom(ctx)
	if s == nil {
		return []models.Character{}, nil
	}

	characters, err := g.characters.ListCharacters(ctx, s.UserID)
	return characters, g.done(op, err)
}

func (g *Remote) GetCharacter(ctx context.Context, id uuid.UUID) (models.Character, error) {
	const op = "gateway.Remote.GetCharacter"

	s, err := g.require(ctx, op)
	if err != nil {
		return models.Character{}, err
	}

	character, err := g.characters.GetCharacter(ctx, s.UserID, id)
	return character, g.done(op, err)
}

func (g *Remote) CreateCharacter(ctx context.Context, in models.CharacterInput) (models.Character, error) {
	const op = "gateway.Remote.CreateCharacter"

	s, err := g.require(ctx, op)
	if err != nil {
		return models.Character{}, err
	}

	character, err := g.characters.CreateCharacter(ctx, models.Character{
		UserID:            s.UserID,
		Name:              strings.TrimSpace(in.Name),
		Bio:               in.Bio,
		ProfilePictureURL: in.ProfilePictureURL,
	})
	return character, g.done(op, err)
}

func (g *Remote) UpdateCharacter(ctx context.Context, id uuid.UUID, in models.CharacterInput) (models.Character, error) {
	const op = "gateway.Remote.UpdateCharacter"

	s, err := g.require(ctx, op)
	if err != nil {
		return models.Character{}, err
	}

	character, err := g.characters.UpdateCharacter(ctx, models.Character{
		ID:                id,
		UserID:            s.UserID,
		Name:              strings.TrimSpace(in.Name),
		Bio:               in.Bio,
		ProfilePictureURL: in.ProfilePictureURL,
	})
	return character, g.done(op, err)
}

func (g *Remote) DeleteCharacter(ctx context.Context, id uuid.UUID) error {
	const op = "gateway.Remote.DeleteCharacter"

	s, err := g.require(ctx, op)
	if err != nil {
		return err
	}

	return g.done(op, g.characters.DeleteCharacter(ctx, s.UserID, id))
}

// ListMedia returns page number page (zero based) of the user's media.
func (g *Remote) ListMedia(ctx context.Context, spec models.FilterSpec, page int) (models.MediaPage, error) {
	const op = "gateway.Remote.ListMedia"

	s := SessionFrom(ctx)
	if s == nil {
		return models.MediaPage{Items: []models.MediaItem{}}, nil
	}

	if page < 0 {
		page = 0
	}

	items, total, err := g.media.ListMedia(ctx, s.UserID, spec, g.pageSize, page*g.pageSize)
	if err != nil {
		return models.MediaPage{}, g.done(op, err)
	}
	g.done(op, nil)

	return models.MediaPage{
		Items:   items,
		Total:   total,
		HasMore: (page+1)*g.pageSize < total,
	}, nil
}

func (g *Remote) SearchMedia(ctx context.Context, term string) ([]models.MediaItem, error) {
	const op = "gateway.Remote.SearchMedia"

	term = strings.TrimSpace(term)
	s := SessionFrom(ctx)
	if s == nil || term == "" {
		return []models.MediaItem{}, nil
	}

	items, err := g.media.SearchMedia(ctx, s.UserID, term)
	return items, g.done(op, err)
}

func (g *Remote) ListMediaByCharacter(ctx context.Context, characterID uuid.UUID) ([]models.MediaItem, error) {
	const op = "gateway.Remote.ListMediaByCharacter"

	s, err := g.require(ctx, op)
	if err != nil {
		return nil, err
	}

	items, err := g.media.ListMediaByCharacter(ctx, s.UserID, characterID)
	return items, g.done(op, err)
}

// UniqueTags returns the sorted set of tags the user has used. Results are
// cached per user until a media mutation.
func (g *Remote) UniqueTags(ctx context.Context) ([]string, error) {
	const op = "gateway.Remote.UniqueTags"

	s := SessionFrom(ctx)
	if s == nil {
		return []string{}, nil
	}

	key := s.UserID.String()
	if cached, ok := g.tags.Get(key); ok {
		return cached.([]string), nil
	}

	tags, err := g.media.UniqueTags(ctx, s.UserID)
	if err != nil {
		return nil, g.done(op, err)
	}
	g.done(op, nil)

	g.tags.Set(key, tags, cache.DefaultExpiration)

	return tags, nil
}

func (g *Remote) GetMedia(ctx context.Context, id uuid.UUID) (models.MediaItem, error) {
	const op = "gateway.Remote.GetMedia"

	s, err := g.require(ctx, op)
	if err != nil {
		return models.MediaItem{}, err
	}

	item, err := g.media.GetMedia(ctx, s.UserID, id)
	return item, g.done(op, err)
}

func (g *Remote) CreateMedia(ctx context.Context, draft models.MediaDraft) (models.MediaItem, error) {
	const op = "gateway.Remote.CreateMedia"

	s, err := g.require(ctx, op)
	if err != nil {
		return models.MediaItem{}, err
	}

	item := models.MediaItem{UserID: s.UserID}
	draft.Apply(&item)

	created, err := g.media.CreateMedia(ctx, item)
	if err != nil {
		return models.MediaItem{}, g.done(op, err)
	}

	g.tags.Delete(s.UserID.String())
	return created, g.done(op, nil)
}

// UpdateMedia replaces the editable fields of an item. When the new
// source no longer uses the stored file of the old one, the file is
// removed after the row is saved.
func (g *Remote) UpdateMedia(ctx context.Context, id uuid.UUID, draft models.MediaDraft) (models.MediaItem, error) {
	const op = "gateway.Remote.UpdateMedia"

	s, err := g.require(ctx, op)
	if err != nil {
		return models.MediaItem{}, err
	}

	item, err := g.media.GetMedia(ctx, s.UserID, id)
	if err != nil {
		return models.MediaItem{}, g.done(op, err)
	}

	released := draft.Apply(&item)

	updated, err := g.media.UpdateMedia(ctx, item)
	if err != nil {
		return models.MediaItem{}, g.done(op, err)
	}

	g.tags.Delete(s.UserID.String())
	g.release(ctx, op, released)

	return updated, g.done(op, nil)
}

func (g *Remote) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	const op = "gateway.Remote.DeleteMedia"

	s, err := g.require(ctx, op)
	if err != nil {
		return err
	}

	released, err := g.media.DeleteMedia(ctx, s.UserID, id)
	if err != nil {
		return g.done(op, err)
	}

	g.tags.Delete(s.UserID.String())
	g.release(ctx, op, released)

	return g.done(op, nil)
}

// DeleteMediaBatch deletes all ids in one call of the delete_media_batch
// procedure.
func (g *Remote) DeleteMediaBatch(ctx context.Context, ids []uuid.UUID) error {
	const op = "gateway.Remote.DeleteMediaBatch"

	s, err := g.require(ctx, op)
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		return nil
	}

	released, err := g.media.DeleteMediaBatch(ctx, s.UserID, ids)
	if err != nil {
		return g.done(op, err)
	}

	g.tags.Delete(s.UserID.String())
	g.release(ctx, op, released...)

	return g.done(op, nil)
}

// UploadFile stores a picked file under the user's prefix. Images also
// get a JPEG thumbnail; a thumbnail failure is logged and ignored.
func (g *Remote) UploadFile(ctx context.Context, filename string, r io.Reader) (Upload, error) {
	const op = "gateway.Remote.UploadFile"

	log := g.log.With(slog.String("op", op))

	s, err := g.require(ctx, op)
	if err != nil {
		return Upload{}, err
	}

	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return Upload{}, g.done(op, err)
	}
	if len(head) == 0 {
		return Upload{}, NewValidationError("file", "The selected file is empty.")
	}

	mediaType, ok := mediaTypeOf(mimetype.Detect(head))
	if !ok {
		return Upload{}, NewValidationError("file", "Only image and video files are supported.")
	}

	subPath := s.UserID.String()

	if mediaType == models.MediaTypeVideo {
		storagePath, _, err := g.files.Save(ctx, br, filename, subPath)
		if err != nil {
			return Upload{}, g.done(op, err)
		}

		g.done(op, nil)
		return Upload{URL: g.files.URL(storagePath), StoragePath: storagePath, Type: mediaType}, nil
	}

	src := io.Reader(br)
	limit := g.files.MaxSize()
	if limit > 0 {
		src = io.LimitReader(br, limit+1)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return Upload{}, g.done(op, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return Upload{}, g.done(op, storage.ErrFileTooLarge)
	}

	storagePath, _, err := g.files.Save(ctx, bytes.NewReader(data), filename, subPath)
	if err != nil {
		return Upload{}, g.done(op, err)
	}

	upload := Upload{URL: g.files.URL(storagePath), StoragePath: storagePath, Type: mediaType}

	thumb, err := thumbnail.Generate(data)
	if err != nil {
		log.Warn("thumbnail skipped", slog.String("file", filename), sl.Err(err))
		g.done(op, nil)
		return upload, nil
	}

	thumbPath := thumbnailPath(storagePath)
	if _, err := g.files.SaveAt(ctx, bytes.NewReader(thumb), thumbPath); err != nil {
		log.Warn("failed to store thumbnail", sl.Err(err))
	} else {
		upload.ThumbnailURL = g.files.URL(thumbPath)
	}

	return upload, g.done(op, nil)
}

// DeleteStoredFile removes an upload that never made it into a row, along
// with its thumbnail.
func (g *Remote) DeleteStoredFile(ctx context.Context, storagePath string) error {
	const op = "gateway.Remote.DeleteStoredFile"

	s, err := g.require(ctx, op)
	if err != nil {
		return err
	}

	if !strings.HasPrefix(storagePath, s.UserID.String()+"/") {
		return g.done(op, storage.ErrInvalidPath)
	}

	if err := g.files.Delete(ctx, storagePath); err != nil {
		return g.done(op, err)
	}

	thumbPath := thumbnailPath(storagePath)
	if err := g.files.Delete(ctx, thumbPath); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
		g.log.With(slog.String("op", op)).Warn("failed to release thumbnail", slog.String("path", thumbPath), sl.Err(err))
	}

	return g.done(op, nil)
}

func (g *Remote) GetProfile(ctx context.Context) (models.Profile, error) {
	const op = "gateway.Remote.GetProfile"

	s, err := g.require(ctx, op)
	if err != nil {
		return models.Profile{}, err
	}

	profile, err := g.profiles.GetProfile(ctx, s.UserID)
	return profile, g.done(op, err)
}

func (g *Remote) UpdateProfile(ctx context.Context, profile models.Profile) (models.Profile, error) {
	const op = "gateway.Remote.UpdateProfile"

	s, err := g.require(ctx, op)
	if err != nil {
		return models.Profile{}, err
	}

	profile.UserID = s.UserID
	profile.Username = strings.TrimSpace(profile.Username)

	updated, err := g.profiles.UpsertProfile(ctx, profile)
	return updated, g.done(op, err)
}

// DeleteAccount removes the user with all characters and media through the
// delete_user_account procedure, then clears their stored files.
func (g *Remote) DeleteAccount(ctx context.Context) error {
	const op = "gateway.Remote.DeleteAccount"

	s, err := g.require(ctx, op)
	if err != nil {
		return err
	}

	released, err := g.profiles.DeleteAccount(ctx, s.UserID)
	if err != nil {
		return g.done(op, err)
	}

	g.tags.Delete(s.UserID.String())
	g.release(ctx, op, released...)

	return g.done(op, nil)
}

func (g *Remote) require(ctx context.Context, op string) (*models.Session, error) {
	s := SessionFrom(ctx)
	if s == nil {
		metrics.GatewayCallsTotal.WithLabelValues(op, "auth_required").Inc()
		return nil, &AuthRequiredError{Op: op}
	}

	return s, nil
}

// done counts the call and wraps a backend failure into a RemoteError.
func (g *Remote) done(op string, err error) error {
	if err == nil {
		metrics.GatewayCallsTotal.WithLabelValues(op, "ok").Inc()
		return nil
	}

	metrics.GatewayCallsTotal.WithLabelValues(op, "error").Inc()

	g.log.With(slog.String("op", op)).Error("backend call failed", sl.Err(err))

	return &RemoteError{Op: op, Message: remoteMessage(err), Err: err}
}

// release removes stored files that no row references any more, together
// with their thumbnails. Failures only leave orphans behind, so they are
// logged.
func (g *Remote) release(ctx context.Context, op string, paths ...string) {
	log := g.log.With(slog.String("op", op))

	for _, p := range paths {
		if p == "" {
			continue
		}

		for _, obj := range []string{p, thumbnailPath(p)} {
			if err := g.files.Delete(ctx, obj); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
				log.Warn("failed to release stored file", slog.String("path", obj), sl.Err(err))
			}
		}
	}
}

// thumbnailPath is where the thumbnail of the upload at storagePath lives:
// "<dir>/thumbs/<name>.jpg".
func thumbnailPath(storagePath string) string {
	name := path.Base(storagePath)
	return path.Join(path.Dir(storagePath), "thumbs", strings.TrimSuffix(name, path.Ext(name))+".jpg")
}

func remoteMessage(err error) string {
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr):
		return pgErr.Message
	case errors.Is(err, storage.ErrNotFound):
		return "The requested item was not found."
	case errors.Is(err, repository.ErrUsernameTaken):
		return "That username is already taken."
	case errors.Is(err, storage.ErrFileTooLarge):
		return "The file is too large."
	case errors.Is(err, storage.ErrInvalidPath):
		return "Invalid file path."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The request was cancelled."
	default:
		return "The server could not complete the request."
	}
}

func mediaTypeOf(mt *mimetype.MIME) (models.MediaType, bool) {
	for m := mt; m != nil; m = m.Parent() {
		switch {
		case strings.HasPrefix(m.String(), "image/"):
			return models.MediaTypeImage, true
		case strings.HasPrefix(m.String(), "video/"):
			return models.MediaTypeVideo, true
		}
	}

	return "", false
}
