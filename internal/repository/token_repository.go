package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boltvault/internal/domain/models"
	redisapp "boltvault/internal/storage/redis"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisSessionRepo stores issued session tokens so they can be revoked
// before they expire.
type RedisSessionRepo struct {
	client *redisapp.Client
}

func NewRedisSessionRepo(client *redisapp.Client) *RedisSessionRepo {
	return &RedisSessionRepo{client: client}
}

func (r *RedisSessionRepo) SaveSession(ctx context.Context, session models.Session, ttl time.Duration) error {
	const op = "repository.token_repository.SaveSession"

	key := sessionKey(session.UserID.String(), session.Token)
	if err := r.client.Set(ctx, key, session.Email, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisSessionRepo) SessionExists(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
	const op = "repository.token_repository.SessionExists"

	n, err := r.client.Exists(ctx, sessionKey(userID.String(), token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n == 1, nil
}

func (r *RedisSessionRepo) DeleteSession(ctx context.Context, userID uuid.UUID, token string) error {
	const op = "repository.token_repository.DeleteSession"

	if err := r.client.Del(ctx, sessionKey(userID.String(), token)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisSessionRepo) DeleteAllUserSessions(ctx context.Context, userID uuid.UUID) error {
	const op = "repository.token_repository.DeleteAllUserSessions"

	var keys []string
	var cursor uint64
	for {
		batch, next, err := r.client.Scan(ctx, cursor, sessionKey(userID.String(), "*"), 100).Result()
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		keys = append(keys, batch...)

		cursor = next
		if cursor == 0 {
			break
		}
	}

	if len(keys) == 0 {
		return nil
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func sessionKey(userID, token string) string {
	return "session:" + userID + ":" + token
}
