package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"boltvault/internal/domain/models"
	"boltvault/internal/storage"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var characterColumns = []string{"id", "user_id", "name", "bio", "profile_picture_url", "created_at"}

type CharacterRepo struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

func NewCharacterRepository(db *pgxpool.Pool) *CharacterRepo {
	return &CharacterRepo{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ListCharacters returns the characters of a user ordered by name.
func (r *CharacterRepo) ListCharacters(ctx context.Context, userID uuid.UUID) ([]models.Character, error) {
	const op = "repository.CharacterRepo.ListCharacters"

	query, args, err := r.sb.Select(characterColumns...).
		From("characters").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	characters := []models.Character{}
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		characters = append(characters, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return characters, nil
}

func (r *CharacterRepo) GetCharacter(ctx context.Context, userID, id uuid.UUID) (models.Character, error) {
	const op = "repository.CharacterRepo.GetCharacter"

	query, args, err := r.sb.Select(characterColumns...).
		From("characters").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return models.Character{}, fmt.Errorf("%s: %w", op, err)
	}

	c, err := scanCharacter(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Character{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return models.Character{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

func (r *CharacterRepo) CreateCharacter(ctx context.Context, character models.Character) (models.Character, error) {
	const op = "repository.CharacterRepo.CreateCharacter"

	query, args, err := r.sb.Insert("characters").
		Columns("user_id", "name", "bio", "profile_picture_url").
		Values(character.UserID, character.Name, character.Bio, character.ProfilePictureURL).
		Suffix(returning(characterColumns)).
		ToSql()
	if err != nil {
		return models.Character{}, fmt.Errorf("%s: %w", op, err)
	}

	created, err := scanCharacter(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return models.Character{}, fmt.Errorf("%s: %w", op, err)
	}

	return created, nil
}

func (r *CharacterRepo) UpdateCharacter(ctx context.Context, character models.Character) (models.Character, error) {
	const op = "repository.CharacterRepo.UpdateCharacter"

	query, args, err := r.sb.Update("characters").
		Set("name", character.Name).
		Set("bio", character.Bio).
		Set("profile_picture_url", character.ProfilePictureURL).
		Where(squirrel.Eq{"id": character.ID, "user_id": character.UserID}).
		Suffix(returning(characterColumns)).
		ToSql()
	if err != nil {
		return models.Character{}, fmt.Errorf("%s: %w", op, err)
	}

	updated, err := scanCharacter(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Character{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return models.Character{}, fmt.Errorf("%s: %w", op, err)
	}

	return updated, nil
}

// DeleteCharacter removes a character. Its media stay and lose the link
// through the foreign key.
func (r *CharacterRepo) DeleteCharacter(ctx context.Context, userID, id uuid.UUID) error {
	const op = "repository.CharacterRepo.DeleteCharacter"

	query, args, err := r.sb.Delete("characters").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

func scanCharacter(row pgx.Row) (models.Character, error) {
	var c models.Character
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Bio, &c.ProfilePictureURL, &c.CreatedAt)
	return c, err
}

func returning(columns []string) string {
	return "RETURNING " + strings.Join(columns, ", ")
}
