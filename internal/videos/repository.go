package videos

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/models"
)

const videoColumns = `id, title, description, video_url, image_url, tags, shared_by, likes, dislikes, shared_at`

// PostgresRepository handles video persistence.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a video repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func scanVideo(row pgx.Row) (*models.Video, error) {
	var v models.Video
	if err := row.Scan(&v.ID, &v.Title, &v.Description, &v.VideoURL, &v.ImageURL, &v.Tags,
		&v.SharedBy, &v.Likes, &v.Dislikes, &v.SharedAt); err != nil {
		return nil, err
	}
	v.SharedAt = v.SharedAt.UTC()
	return &v, nil
}

// Get returns a video by ID.
func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	v, err := scanVideo(r.pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Upstream("select video", err)
	}
	return v, nil
}

// List returns videos joined with the owner's email, newest first. Ties on
// shared_at are broken by id so pages are stable.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter, skip, limit int) ([]models.VideoListItem, error) {
	q := `SELECT v.id, v.title, v.description, v.video_url, v.image_url, v.tags, u.email, v.likes, v.dislikes, v.shared_at
		FROM videos v JOIN users u ON u.id = v.shared_by`
	args := []interface{}{skip, limit}
	if filter.SharedBy != nil {
		q += ` WHERE v.shared_by = $3`
		args = append(args, *filter.SharedBy)
	}
	q += ` ORDER BY v.shared_at DESC, v.id DESC OFFSET $1 LIMIT $2`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, apperr.Upstream("query videos", err)
	}
	defer rows.Close()

	list := make([]models.VideoListItem, 0, limit)
	for rows.Next() {
		var it models.VideoListItem
		if err := rows.Scan(&it.ID, &it.Title, &it.Description, &it.VideoURL, &it.ImageURL, &it.Tags,
			&it.SharedBy, &it.Likes, &it.Dislikes, &it.SharedAt); err != nil {
			return nil, apperr.Upstream("scan video", err)
		}
		it.SharedAt = it.SharedAt.UTC()
		list = append(list, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstream("iterate videos", err)
	}
	return list, nil
}

// Create inserts v. Likes and dislikes start at zero.
func (r *PostgresRepository) Create(ctx context.Context, v *models.Video) error {
	const q = `INSERT INTO videos (id, title, description, video_url, image_url, tags, shared_by, shared_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING likes, dislikes`
	err := r.pool.QueryRow(ctx, q, v.ID, v.Title, v.Description, v.VideoURL, v.ImageURL, v.Tags, v.SharedBy, v.SharedAt).
		Scan(&v.Likes, &v.Dislikes)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return apperr.ErrConflict
			case "23503":
				return fmt.Errorf("owner %s: %w", v.SharedBy, apperr.ErrNotFound)
			}
		}
		return apperr.Upstream("insert video", err)
	}
	return nil
}

// Update applies the non-nil patch fields in one statement. An empty description
// or tags value stores NULL.
func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, patch models.VideoPatch) (*models.Video, error) {
	const q = `UPDATE videos SET
		title = COALESCE($2, title),
		description = CASE WHEN $3::text IS NULL THEN description ELSE NULLIF($3::text, '') END,
		video_url = COALESCE($4, video_url),
		image_url = COALESCE($5, image_url),
		tags = CASE WHEN $6::text IS NULL THEN tags ELSE NULLIF($6::text, '') END
		WHERE id = $1
		RETURNING ` + videoColumns
	v, err := scanVideo(r.pool.QueryRow(ctx, q, id, patch.Title, patch.Description, patch.VideoURL, patch.ImageURL, patch.Tags))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Upstream("update video", err)
	}
	return v, nil
}

// Delete removes a video by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return apperr.Upstream("delete video", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
