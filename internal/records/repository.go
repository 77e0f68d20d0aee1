package records

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsTable = "schema_migrations_records"

const uniqueViolation = "23505"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, rec *Record) error {
	rec.ID = uuid.New().String()
	rec.RegisteredAt = time.Now().UTC()

	query := `
		INSERT INTO records (id, name, email, address, date_of_birth, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Name, rec.Email, rec.Address, rec.DateOfBirth, rec.RegisteredAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrEmailExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Record, error) {
	query := `SELECT id, name, email, address, date_of_birth, registered_at FROM records WHERE id = $1`

	var rec Record
	var dob time.Time
	err := r.db.QueryRowContext(ctx, query, id).Scan(&rec.ID, &rec.Name, &rec.Email, &rec.Address, &dob, &rec.RegisteredAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	rec.DateOfBirth = dob.Format(dateLayout)
	return &rec, nil
}

func (r *Repository) Update(ctx context.Context, rec *Record) error {
	query := `
		UPDATE records SET name = $2, email = $3, address = $4, date_of_birth = $5
		WHERE id = $1
		RETURNING registered_at
	`
	err := r.db.QueryRowContext(ctx, query,
		rec.ID, rec.Name, rec.Email, rec.Address, rec.DateOfBirth,
	).Scan(&rec.RegisteredAt)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrEmailExists
	}
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
