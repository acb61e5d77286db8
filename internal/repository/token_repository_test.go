package repository_test

import (
	"context"
	"testing"
	"time"

	"boltvault/internal/domain/models"
	"boltvault/internal/repository"
	redisapp "boltvault/internal/storage/redis"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSessionRepo() (*repository.RedisSessionRepo, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	return repository.NewRedisSessionRepo(redisapp.Wrap(db)), mock
}

func sessionKey(userID uuid.UUID, token string) string {
	return "session:" + userID.String() + ":" + token
}

func TestSaveSession(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupSessionRepo()
	session := models.Session{Token: "tok", UserID: uuid.New(), Email: "a@b.c"}
	ttl := 24 * time.Hour

	t.Run("successful save", func(t *testing.T) {
		mock.ExpectSet(sessionKey(session.UserID, session.Token), session.Email, ttl).SetVal("OK")
		assert.NoError(t, repo.SaveSession(ctx, session, ttl))
	})

	t.Run("redis error", func(t *testing.T) {
		mock.ExpectSet(sessionKey(session.UserID, session.Token), session.Email, ttl).SetErr(redis.ErrClosed)
		assert.ErrorIs(t, repo.SaveSession(ctx, session, ttl), redis.ErrClosed)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionExists(t *testing.T) {
	ctx := context.Background()
	repo, mock := setupSessionRepo()
	userID := uuid.New()

	t.Run("session exists", func(t *testing.T) {
		mock.ExpectExists(sessionKey(userID, "tok")).SetVal(1)
		ok, err := repo.SessionExists(ctx, userID, "tok")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("session revoked", func(t *testing.T) {
		mock.ExpectExists(sessionKey(userID, "tok")).SetVal(0)
		ok, err := repo.SessionExists(ctx, userID, "tok")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("redis error", func(t *testing.T) {
		mock.ExpectExists(sessionKey(userID, "tok")).SetErr(redis.ErrClosed)
		_, err := repo.SessionExists(ctx, userID, "tok")
		assert.ErrorIs(t, err, redis.ErrClosed)
	})
}

func TestDeleteSession(t *testing.T) {
	repo, mock := setupSessionRepo()
	userID := uuid.New()

	mock.ExpectDel(sessionKey(userID, "tok")).SetVal(1)
	assert.NoError(t, repo.DeleteSession(context.Background(), userID, "tok"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAllUserSessions(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	pattern := sessionKey(userID, "*")

	t.Run("deletes every page of keys", func(t *testing.T) {
		repo, mock := setupSessionRepo()
		mock.ExpectScan(0, pattern, 100).SetVal([]string{sessionKey(userID, "a")}, 7)
		mock.ExpectScan(7, pattern, 100).SetVal([]string{sessionKey(userID, "b")}, 0)
		mock.ExpectDel(sessionKey(userID, "a"), sessionKey(userID, "b")).SetVal(2)

		require.NoError(t, repo.DeleteAllUserSessions(ctx, userID))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no sessions", func(t *testing.T) {
		repo, mock := setupSessionRepo()
		mock.ExpectScan(0, pattern, 100).SetVal([]string{}, 0)

		require.NoError(t, repo.DeleteAllUserSessions(ctx, userID))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
