package repository

import (
	"context"
	"errors"
	"fmt"

	"boltvault/internal/domain/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ErrUsernameTaken is returned when another account already uses the
// requested username.
var ErrUsernameTaken = errors.New("username already taken")

type ProfileRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// GetProfile returns the profile of a user. A user without a stored
// profile gets an empty one.
func (r *ProfileRepo) GetProfile(ctx context.Context, userID uuid.UUID) (models.Profile, error) {
	const op = "repository.ProfileRepo.GetProfile"

	query, args, err := r.sb.Select("user_id", "COALESCE(username, '')", "full_name", "avatar_url", "updated_at").
		From("profiles").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return models.Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	var p models.Profile
	err = r.db.QueryRow(ctx, query, args...).Scan(&p.UserID, &p.Username, &p.FullName, &p.AvatarURL, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Profile{UserID: userID}, nil
		}
		return models.Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

func (r *ProfileRepo) UpsertProfile(ctx context.Context, profile models.Profile) (models.Profile, error) {
	const op = "repository.ProfileRepo.UpsertProfile"

	var username interface{}
	if profile.Username != "" {
		username = profile.Username
	}

	query, args, err := r.sb.Insert("profiles").
		Columns("user_id", "username", "full_name", "avatar_url", "updated_at").
		Values(profile.UserID, username, profile.FullName, profile.AvatarURL, sq.Expr("NOW()")).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			username = EXCLUDED.username,
			full_name = EXCLUDED.full_name,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = EXCLUDED.updated_at
			RETURNING updated_at`).
		ToSql()
	if err != nil {
		return models.Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	err = r.db.QueryRow(ctx, query, args...).Scan(&profile.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.Profile{}, fmt.Errorf("%s: %w", op, ErrUsernameTaken)
		}
		return models.Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	return profile, nil
}

// DeleteAccount runs the delete_user_account procedure and returns the
// storage paths the account owned.
func (r *ProfileRepo) DeleteAccount(ctx context.Context, userID uuid.UUID) ([]string, error) {
	const op = "repository.ProfileRepo.DeleteAccount"

	rows, err := r.db.Query(ctx, "SELECT released_path FROM delete_user_account($1)", userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	paths := []string{}
	for rows.Next() {
		var path *string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if path != nil {
			paths = append(paths, *path)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return paths, nil
}
