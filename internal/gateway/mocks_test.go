package gateway_test

import (
	"context"

	"boltvault/internal/domain/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockCharacterRepository struct {
	mock.Mock
}

func (m *MockCharacterRepository) ListCharacters(ctx context.Context, userID uuid.UUID) ([]models.Character, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Character), args.Error(1)
}

func (m *MockCharacterRepository) GetCharacter(ctx context.Context, userID, id uuid.UUID) (models.Character, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(models.Character), args.Error(1)
}

func (m *MockCharacterRepository) CreateCharacter(ctx context.Context, c models.Character) (models.Character, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(models.Character), args.Error(1)
}

func (m *MockCharacterRepository) UpdateCharacter(ctx context.Context, c models.Character) (models.Character, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(models.Character), args.Error(1)
}

func (m *MockCharacterRepository) DeleteCharacter(ctx context.Context, userID, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

type MockMediaRepository struct {
	mock.Mock
}

func (m *MockMediaRepository) ListMedia(ctx context.Context, userID uuid.UUID, spec models.FilterSpec, limit, offset int) ([]models.MediaItem, int, error) {
	args := m.Called(ctx, userID, spec, limit, offset)
	return args.Get(0).([]models.MediaItem), args.Int(1), args.Error(2)
}

func (m *MockMediaRepository) SearchMedia(ctx context.Context, userID uuid.UUID, term string) ([]models.MediaItem, error) {
	args := m.Called(ctx, userID, term)
	return args.Get(0).([]models.MediaItem), args.Error(1)
}

func (m *MockMediaRepository) ListMediaByCharacter(ctx context.Context, userID, characterID uuid.UUID) ([]models.MediaItem, error) {
	args := m.Called(ctx, userID, characterID)
	return args.Get(0).([]models.MediaItem), args.Error(1)
}

func (m *MockMediaRepository) GetMedia(ctx context.Context, userID, id uuid.UUID) (models.MediaItem, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(models.MediaItem), args.Error(1)
}

func (m *MockMediaRepository) CreateMedia(ctx context.Context, item models.MediaItem) (models.MediaItem, error) {
	args := m.Called(ctx, item)
	return args.Get(0).(models.MediaItem), args.Error(1)
}

func (m *MockMediaRepository) UpdateMedia(ctx context.Context, item models.MediaItem) (models.MediaItem, error) {
	args := m.Called(ctx, item)
	return args.Get(0).(models.MediaItem), args.Error(1)
}

func (m *MockMediaRepository) DeleteMedia(ctx context.Context, userID, id uuid.UUID) (string, error) {
	args := m.Called(ctx, userID, id)
	return args.String(0), args.Error(1)
}

func (m *MockMediaRepository) DeleteMediaBatch(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID, ids)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockMediaRepository) UniqueTags(ctx context.Context, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]string), args.Error(1)
}

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetProfile(ctx context.Context, userID uuid.UUID) (models.Profile, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.Profile), args.Error(1)
}

func (m *MockProfileRepository) UpsertProfile(ctx context.Context, p models.Profile) (models.Profile, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(models.Profile), args.Error(1)
}

func (m *MockProfileRepository) DeleteAccount(ctx context.Context, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]string), args.Error(1)
}
