package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/models"
)

const userColumns = `id, email, password_hash, created_at, updated_at`

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a user repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func mapErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.ErrConflict
	}
	return apperr.Upstream(op, err)
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr("select user", err)
	}
	return u, nil
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, mapErr("select user", err)
	}
	return u, nil
}

// Create inserts a user. A taken email is ErrConflict.
func (r *Repository) Create(ctx context.Context, email, passwordHash string) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING ` + userColumns
	u, err := scanUser(r.pool.QueryRow(ctx, q, email, passwordHash))
	if err != nil {
		return nil, mapErr("insert user", err)
	}
	return u, nil
}

// List returns users whose email contains search, ordered by email, and the total
// number of matches.
func (r *Repository) List(ctx context.Context, search string, limit, offset int) ([]models.UserPublic, int, error) {
	pattern := "%" + search + "%"
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE email ILIKE $1`, pattern).Scan(&total); err != nil {
		return nil, 0, apperr.Upstream("count users", err)
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, email FROM users WHERE email ILIKE $1 ORDER BY email LIMIT $2 OFFSET $3`,
		pattern, limit, offset)
	if err != nil {
		return nil, 0, apperr.Upstream("query users", err)
	}
	defer rows.Close()
	list := make([]models.UserPublic, 0, limit)
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email); err != nil {
			return nil, 0, apperr.Upstream("scan user", err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Upstream("iterate users", err)
	}
	return list, total, nil
}

// Update sets the non-nil fields and bumps updated_at.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, email, passwordHash *string) (*models.User, error) {
	const q = `UPDATE users SET
		email = COALESCE($2, email),
		password_hash = COALESCE($3, password_hash),
		updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	u, err := scanUser(r.pool.QueryRow(ctx, q, id, email, passwordHash))
	if err != nil {
		return nil, mapErr("update user", err)
	}
	return u, nil
}

// Delete removes a user and, by cascade, their videos.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return apperr.Upstream("delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
