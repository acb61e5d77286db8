package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"boltvault/internal/domain/models"
	"boltvault/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/lib/pq"
)

// mediaColumns selects a media row together with its character, if any.
var mediaColumns = []string{
	"m.id",
	"m.user_id",
	"m.character_id",
	"m.name",
	"m.url",
	"m.type",
	"m.is_embed",
	"m.thumbnail_url",
	"m.storage_path",
	"m.tags",
	"m.created_at",
	"c.name",
	"c.bio",
	"c.profile_picture_url",
	"c.created_at",
}

const mediaFrom = "media m LEFT JOIN characters c ON c.id = m.character_id"

var searchMediaSQL = "SELECT " + strings.Join(mediaColumns, ", ") +
	" FROM search_media($1, $2) m LEFT JOIN characters c ON c.id = m.character_id" +
	" ORDER BY m.created_at DESC"

type MediaRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewMediaRepository(db *pgxpool.Pool) *MediaRepo {
	return &MediaRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// ListMedia returns one page of the user's media matching spec and the
// number of rows matching it overall.
func (r *MediaRepo) ListMedia(ctx context.Context, userID uuid.UUID, spec models.FilterSpec, limit, offset int) ([]models.MediaItem, int, error) {
	const op = "repository.media_repository.ListMedia"

	where := sq.And{sq.Eq{"m.user_id": userID}}
	if spec.FilterByType != "" {
		where = append(where, sq.Eq{"m.type": string(spec.FilterByType)})
	}
	if spec.FilterByCharacter != nil {
		where = append(where, sq.Eq{"m.character_id": *spec.FilterByCharacter})
	}
	if spec.FilterByTag != "" {
		where = append(where, sq.Expr("m.tags @> ?", pq.Array([]string{spec.FilterByTag})))
	}

	countQuery, countArgs, err := r.sb.Select("COUNT(*)").From("media m").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	field, dir := spec.Order()
	query, args, err := r.sb.Select(mediaColumns...).
		From(mediaFrom).
		Where(where).
		OrderBy(fmt.Sprintf("m.%s %s", field, strings.ToUpper(string(dir))), "m.id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	items, err := r.queryMedia(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return items, total, nil
}

// SearchMedia runs the search_media procedure.
func (r *MediaRepo) SearchMedia(ctx context.Context, userID uuid.UUID, term string) ([]models.MediaItem, error) {
	const op = "repository.media_repository.SearchMedia"

	items, err := r.queryMedia(ctx, searchMediaSQL, userID, term)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

func (r *MediaRepo) ListMediaByCharacter(ctx context.Context, userID, characterID uuid.UUID) ([]models.MediaItem, error) {
	const op = "repository.media_repository.ListMediaByCharacter"

	query, args, err := r.sb.Select(mediaColumns...).
		From(mediaFrom).
		Where(sq.Eq{"m.user_id": userID, "m.character_id": characterID}).
		OrderBy("m.created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	items, err := r.queryMedia(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

func (r *MediaRepo) GetMedia(ctx context.Context, userID, id uuid.UUID) (models.MediaItem, error) {
	const op = "repository.media_repository.GetMedia"

	query, args, err := r.sb.Select(mediaColumns...).
		From(mediaFrom).
		Where(sq.Eq{"m.id": id, "m.user_id": userID}).
		ToSql()
	if err != nil {
		return models.MediaItem{}, fmt.Errorf("%s: %w", op, err)
	}

	item, err := scanMedia(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.MediaItem{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return models.MediaItem{}, fmt.Errorf("%s: %w", op, err)
	}

	return item, nil
}

func (r *MediaRepo) CreateMedia(ctx context.Context, item models.MediaItem) (models.MediaItem, error) {
	const op = "repository.media_repository.CreateMedia"

	query, args, err := r.sb.Insert("media").
		Columns(
			"user_id",
			"character_id",
			"name",
			"url",
			"type",
			"is_embed",
			"thumbnail_url",
			"storage_path",
			"tags",
		).
		Values(
			item.UserID,
			item.CharacterID,
			item.Name,
			item.URL,
			string(item.Type),
			item.IsEmbed,
			item.ThumbnailURL,
			item.StoragePath,
			pq.Array(nonNilTags(item.Tags)),
		).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return models.MediaItem{}, fmt.Errorf("%s: %w", op, err)
	}

	err = r.db.QueryRow(ctx, query, args...).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return models.MediaItem{}, fmt.Errorf("%s: %w", op, err)
	}

	return item, nil
}

func (r *MediaRepo) UpdateMedia(ctx context.Context, item models.MediaItem) (models.MediaItem, error) {
	const op = "repository.media_repository.UpdateMedia"

	query, args, err := r.sb.Update("media").
		Set("character_id", item.CharacterID).
		Set("name", item.Name).
		Set("url", item.URL).
		Set("type", string(item.Type)).
		Set("is_embed", item.IsEmbed).
		Set("thumbnail_url", item.ThumbnailURL).
		Set("storage_path", item.StoragePath).
		Set("tags", pq.Array(nonNilTags(item.Tags))).
		Where(sq.Eq{"id": item.ID, "user_id": item.UserID}).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return models.MediaItem{}, fmt.Errorf("%s: %w", op, err)
	}

	err = r.db.QueryRow(ctx, query, args...).Scan(&item.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.MediaItem{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return models.MediaItem{}, fmt.Errorf("%s: %w", op, err)
	}

	return item, nil
}

// DeleteMedia removes one item and returns its storage path, "" when the
// item did not own a stored file.
func (r *MediaRepo) DeleteMedia(ctx context.Context, userID, id uuid.UUID) (string, error) {
	const op = "repository.media_repository.DeleteMedia"

	query, args, err := r.sb.Delete("media").
		Where(sq.Eq{"id": id, "user_id": userID}).
		Suffix("RETURNING storage_path").
		ToSql()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var path *string
	if err := r.db.QueryRow(ctx, query, args...).Scan(&path); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if path == nil {
		return "", nil
	}

	return *path, nil
}

// DeleteMediaBatch runs the delete_media_batch procedure and returns the
// storage paths that were released.
func (r *MediaRepo) DeleteMediaBatch(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]string, error) {
	const op = "repository.media_repository.DeleteMediaBatch"

	paths, err := r.queryPaths(ctx, "SELECT released_path FROM delete_media_batch($1, $2)", userID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return paths, nil
}

// UniqueTags returns every tag the user has used, sorted.
func (r *MediaRepo) UniqueTags(ctx context.Context, userID uuid.UUID) ([]string, error) {
	const op = "repository.media_repository.UniqueTags"

	query, args, err := r.sb.Select("DISTINCT unnest(tags) AS tag").
		From("media").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("tag").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tags, nil
}

func (r *MediaRepo) queryMedia(ctx context.Context, query string, args ...interface{}) ([]models.MediaItem, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.MediaItem{}
	for rows.Next() {
		item, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("row scanning failed: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return items, nil
}

func (r *MediaRepo) queryPaths(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := []string{}
	for rows.Next() {
		var path *string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		if path != nil && *path != "" {
			paths = append(paths, *path)
		}
	}

	return paths, rows.Err()
}

func scanMedia(row pgx.Row) (models.MediaItem, error) {
	var (
		m          models.MediaItem
		mediaType  string
		charName   *string
		charBio    *string
		charPic    *string
		charCreate *time.Time
	)

	err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.CharacterID,
		&m.Name,
		&m.URL,
		&mediaType,
		&m.IsEmbed,
		&m.ThumbnailURL,
		&m.StoragePath,
		&m.Tags,
		&m.CreatedAt,
		&charName,
		&charBio,
		&charPic,
		&charCreate,
	)
	if err != nil {
		return models.MediaItem{}, err
	}

	m.Type = models.MediaType(mediaType)
	if m.Tags == nil {
		m.Tags = []string{}
	}

	if m.CharacterID != nil && charName != nil {
		m.Character = &models.Character{
			ID:     *m.CharacterID,
			UserID: m.UserID,
			Name:   *charName,
		}
		if charBio != nil {
			m.Character.Bio = *charBio
		}
		if charPic != nil {
			m.Character.ProfilePictureURL = *charPic
		}
		if charCreate != nil {
			m.Character.CreatedAt = *charCreate
		}
	}

	return m, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
