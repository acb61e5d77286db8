package services_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"boltvault/internal/domain/models"
	"boltvault/internal/form"
	"boltvault/internal/gateway"
	"boltvault/internal/gateway/gatewaytest"
	"boltvault/internal/lib/logger/handlers/slogdiscard"
	services "boltvault/internal/services/media_service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*services.MediaService, *gatewaytest.Fake, context.Context, models.Character) {
	t.Helper()

	gw := gatewaytest.New(20)
	userID := uuid.New()
	ctx := gateway.WithSession(context.Background(), &models.Session{UserID: userID, Token: "t"})
	character := gw.AddCharacter(userID, "Aria")

	return services.NewMediaService(slogdiscard.NewDiscardLogger(), gw), gw, ctx, character
}

func fileUpload(name string, data []byte) *models.FileUpload {
	return &models.FileUpload{
		Filename: name,
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func TestMediaService_CreateUpload(t *testing.T) {
	svc, gw, ctx, character := setup(t)

	f := form.NewMediaForm()
	f.CharacterID = character.ID.String()
	f.Name = "Portrait"
	f.Tags = "beach, sunset, beach"
	f.SetFile(fileUpload("a.png", []byte("png")))

	item, err := svc.Create(ctx, f)
	require.NoError(t, err)

	assert.Equal(t, "Portrait", item.Name)
	assert.Equal(t, []string{"beach", "sunset"}, item.Tags)
	require.NotNil(t, item.StoragePath)
	assert.Contains(t, gw.Files, *item.StoragePath)
	assert.Equal(t, 1, gw.Calls("UploadFile"))
}

func TestMediaService_CreateFailureDiscardsUpload(t *testing.T) {
	svc, gw, ctx, character := setup(t)
	gw.SetFail("CreateMedia", errors.New("insert failed"))

	f := form.NewMediaForm()
	f.CharacterID = character.ID.String()
	f.Name = "Portrait"
	f.SetFile(fileUpload("a.png", []byte("png")))

	_, err := svc.Create(ctx, f)
	require.Error(t, err)
	assert.Equal(t, "insert failed", gateway.Message(err))

	assert.Equal(t, 1, gw.Calls("UploadFile"))
	assert.Equal(t, 1, gw.Calls("DeleteStoredFile"))
	assert.Empty(t, gw.Files)
}

func TestMediaService_CreateLinkDoesNotUpload(t *testing.T) {
	svc, gw, ctx, character := setup(t)

	f := form.NewMediaForm()
	f.CharacterID = character.ID.String()
	f.Name = "Clip"
	f.SetFile(fileUpload("a.png", []byte("png")))
	f.SetLink("https://example.com/clip.mp4", models.MediaTypeVideo)

	item, err := svc.Create(ctx, f)
	require.NoError(t, err)

	assert.Equal(t, 0, gw.Calls("UploadFile"))
	assert.Nil(t, item.StoragePath)
	assert.Equal(t, "https://example.com/clip.mp4", item.URL)
	assert.Equal(t, models.MediaTypeVideo, item.Type)
}

func TestMediaService_CreateLinkFailureDeletesNothing(t *testing.T) {
	svc, gw, ctx, character := setup(t)
	gw.SetFail("CreateMedia", errors.New("insert failed"))

	f := form.NewMediaForm()
	f.CharacterID = character.ID.String()
	f.Name = "Clip"
	f.SetLink("https://example.com/clip.mp4", models.MediaTypeVideo)

	_, err := svc.Create(ctx, f)
	require.Error(t, err)
	assert.Equal(t, 0, gw.Calls("DeleteStoredFile"))
}

func TestMediaService_ValidationMakesNoCalls(t *testing.T) {
	svc, gw, ctx, character := setup(t)

	f := form.NewMediaForm()
	f.CharacterID = character.ID.String()
	f.Name = "Portrait"

	_, err := svc.Create(ctx, f)
	require.Error(t, err)
	assert.True(t, gateway.IsValidation(err))
	assert.Equal(t, form.MsgFileRequired, err.Error())

	assert.Equal(t, 0, gw.Calls("UploadFile"))
	assert.Equal(t, 0, gw.Calls("CreateMedia"))
}

func TestMediaService_UpdateSwitchingToEmbedReleasesFile(t *testing.T) {
	svc, gw, ctx, character := setup(t)

	f := form.NewMediaForm()
	f.CharacterID = character.ID.String()
	f.Name = "Portrait"
	f.SetFile(fileUpload("a.png", []byte("png")))

	item, err := svc.Create(ctx, f)
	require.NoError(t, err)
	require.Len(t, gw.Files, 1)

	edit := form.EditMediaForm(item)
	edit.SetEmbed("<iframe src=\"https://player.example.com/1\"></iframe>", "")

	updated, err := svc.Update(ctx, item.ID, edit)
	require.NoError(t, err)

	assert.True(t, updated.IsEmbed)
	assert.Nil(t, updated.StoragePath)
	assert.Equal(t, models.MediaTypeVideo, updated.Type)
	assert.Empty(t, gw.Files)
}

func TestMediaService_UpdateKeepsExistingUpload(t *testing.T) {
	svc, gw, ctx, character := setup(t)

	f := form.NewMediaForm()
	f.CharacterID = character.ID.String()
	f.Name = "Portrait"
	f.SetFile(fileUpload("a.png", []byte("png")))

	item, err := svc.Create(ctx, f)
	require.NoError(t, err)

	edit := form.EditMediaForm(item)
	edit.Name = "Renamed"

	updated, err := svc.Update(ctx, item.ID, edit)
	require.NoError(t, err)

	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, item.StoragePath, updated.StoragePath)
	assert.Equal(t, 1, gw.Calls("UploadFile"))
	assert.Len(t, gw.Files, 1)
}

func TestMediaService_UpdateFailureDiscardsNewUpload(t *testing.T) {
	svc, gw, ctx, character := setup(t)

	f := form.NewMediaForm()
	f.CharacterID = character.ID.String()
	f.Name = "Portrait"
	f.SetFile(fileUpload("a.png", []byte("png")))

	item, err := svc.Create(ctx, f)
	require.NoError(t, err)

	gw.SetFail("UpdateMedia", errors.New("update failed"))

	edit := form.EditMediaForm(item)
	edit.SetFile(fileUpload("b.png", []byte("png2")))

	_, err = svc.Update(ctx, item.ID, edit)
	require.Error(t, err)

	assert.Len(t, gw.Files, 1)
	assert.Contains(t, gw.Files, *item.StoragePath)
}

func TestMediaService_Anonymous(t *testing.T) {
	gw := gatewaytest.New(20)
	svc := services.NewMediaService(slogdiscard.NewDiscardLogger(), gw)

	f := form.NewMediaForm()
	f.CharacterID = uuid.NewString()
	f.Name = "Portrait"
	f.SetFile(fileUpload("a.png", []byte("png")))

	_, err := svc.Create(context.Background(), f)
	require.Error(t, err)
	assert.True(t, gateway.IsAuthRequired(err))
}
