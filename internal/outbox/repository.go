package outbox

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
)

//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsTable = "schema_migrations_outbox"

// Repository is the Postgres-backed Store.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Save(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO outbox_events (id, topic, message_key, payload, status, attempts, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.Topic, e.Key, e.Payload, StatusPending, e.Attempts, e.LastError, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save outbox event: %w", err)
	}
	return nil
}

// Pending returns the oldest unpublished entries first.
func (r *Repository) Pending(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, topic, message_key, payload, attempts, last_error, created_at
		FROM outbox_events
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Topic, &e.Key, &e.Payload, &e.Attempts, &e.LastError, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *Repository) MarkPublished(ctx context.Context, id string) error {
	query := `UPDATE outbox_events SET status = $1, published_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, StatusPublished, time.Now().UTC(), id)
	return err
}

func (r *Repository) MarkFailed(ctx context.Context, id string, reason string) error {
	query := `UPDATE outbox_events SET attempts = attempts + 1, last_error = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, reason, id)
	return err
}
