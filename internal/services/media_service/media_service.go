package services

import (
	"context"
	"fmt"
	"log/slog"

	"boltvault/internal/domain/models"
	"boltvault/internal/form"
	"boltvault/internal/gateway"
	"boltvault/internal/lib/logger/sl"

	"github.com/google/uuid"
)

// MediaService submits the media modals: it uploads a picked file, saves
// the row and removes the upload again when the row could not be saved.
type MediaService struct {
	log *slog.Logger
	gw  gateway.Gateway
}

func NewMediaService(log *slog.Logger, gw gateway.Gateway) *MediaService {
	return &MediaService{
		log: log,
		gw:  gw,
	}
}

func (s *MediaService) Create(ctx context.Context, f *form.MediaForm) (models.MediaItem, error) {
	const op = "media_service.Create"

	log := s.log.With(
		slog.String("op", op),
		slog.String("kind", string(f.Kind())),
	)

	log.Info("create media")

	draft, err := f.Build(ctx, s.upload)
	if err != nil {
		return models.MediaItem{}, err
	}

	created, err := s.gw.CreateMedia(ctx, draft)
	if err != nil {
		log.Error("failed to save media", sl.Err(err))
		s.discardUpload(ctx, log, f, draft)

		return models.MediaItem{}, fmt.Errorf("%s: %w", op, err)
	}

	return created, nil
}

func (s *MediaService) Update(ctx context.Context, id uuid.UUID, f *form.MediaForm) (models.MediaItem, error) {
	const op = "media_service.Update"

	log := s.log.With(
		slog.String("op", op),
		slog.String("media_id", id.String()),
		slog.String("kind", string(f.Kind())),
	)

	log.Info("update media")

	draft, err := f.Build(ctx, s.upload)
	if err != nil {
		return models.MediaItem{}, err
	}

	updated, err := s.gw.UpdateMedia(ctx, id, draft)
	if err != nil {
		log.Error("failed to update media", sl.Err(err))
		s.discardUpload(ctx, log, f, draft)

		return models.MediaItem{}, fmt.Errorf("%s: %w", op, err)
	}

	return updated, nil
}

func (s *MediaService) upload(ctx context.Context, file models.FileUpload) (models.UploadSource, error) {
	const op = "media_service.upload"

	r, err := file.Open()
	if err != nil {
		return models.UploadSource{}, fmt.Errorf("%s: %w", op, err)
	}
	defer r.Close()

	up, err := s.gw.UploadFile(ctx, file.Filename, r)
	if err != nil {
		return models.UploadSource{}, err
	}

	return up.Source(), nil
}

// discardUpload removes a file uploaded by this submission when its row
// was not saved. Failure only leaves an orphan, so it is logged.
func (s *MediaService) discardUpload(ctx context.Context, log *slog.Logger, f *form.MediaForm, draft models.MediaDraft) {
	if f.PendingFile() == nil {
		return
	}

	src, ok := draft.Source.(models.UploadSource)
	if !ok {
		return
	}

	if err := s.gw.DeleteStoredFile(ctx, src.StoragePath); err != nil {
		log.Warn("failed to delete orphaned upload", slog.String("path", src.StoragePath), sl.Err(err))
	}
}
