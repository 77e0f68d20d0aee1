package provisioning

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsTable = "schema_migrations_accounts"

// Repository is the Postgres-backed Store. The unique index on record_id is
// what makes provisioning idempotent across consumers and replicas.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, a *Account) (Account, bool, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO accounts (id, record_id, name, email, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (record_id) DO NOTHING
		RETURNING id
	`
	var id string
	err := r.db.QueryRowContext(ctx, query, a.ID, a.RecordID, a.Name, a.Email, a.CreatedAt).Scan(&id)
	if err == nil {
		return *a, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Account{}, false, fmt.Errorf("failed to insert account: %w", err)
	}

	existing, err := r.GetByRecordID(ctx, a.RecordID)
	if err != nil {
		return Account{}, false, err
	}
	if existing == nil {
		return Account{}, false, fmt.Errorf("account for record %s vanished after conflict", a.RecordID)
	}
	return *existing, false, nil
}

func (r *Repository) GetByRecordID(ctx context.Context, recordID string) (*Account, error) {
	query := `SELECT id, record_id, name, email, created_at FROM accounts WHERE record_id = $1`

	var a Account
	err := r.db.QueryRowContext(ctx, query, recordID).Scan(&a.ID, &a.RecordID, &a.Name, &a.Email, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by record id: %w", err)
	}
	return &a, nil
}
