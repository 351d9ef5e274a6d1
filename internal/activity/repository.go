package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for the activity log.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new activity log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores one entry.
func (r *Repository) Insert(ctx context.Context, e Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO activity_log (id, action, method, endpoint, status, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Action, e.Method, e.Endpoint, e.Status, e.Message, e.CreatedAt,
	)
	return err
}

// List returns the most recent entries, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, action, method, endpoint, status, message, created_at
		FROM activity_log
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var id uuid.UUID
		var createdAt time.Time
		if err := rows.Scan(&id, &e.Action, &e.Method, &e.Endpoint, &e.Status, &e.Message, &createdAt); err != nil {
			return nil, err
		}
		e.ID = id
		e.CreatedAt = createdAt
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
