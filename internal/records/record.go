// Package records owns record creation on the record side and asks the
// bridge for the matching account.
package records

import (
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const dateLayout = "2006-01-02"

var (
	ErrEmailExists = errors.New("a record with this email already exists")
	ErrNotFound    = errors.New("record not found")
)

type Record struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Address      string    `json:"address"`
	DateOfBirth  string    `json:"date_of_birth"`
	RegisteredAt time.Time `json:"registered_at"`
}

// NewRecord is the create and update payload.
type NewRecord struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	DateOfBirth string `json:"date_of_birth"`
}

func (n NewRecord) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&n.Email, validation.Required, validation.Length(3, 150), is.EmailFormat),
		validation.Field(&n.Address, validation.Required, validation.Length(1, 255)),
		validation.Field(&n.DateOfBirth, validation.Required, validation.Date(dateLayout)),
	)
}

type Store interface {
	// Create assigns ID and RegisteredAt. It returns ErrEmailExists when the
	// email is taken.
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id string) (*Record, error)
	// Update replaces the editable fields of r.ID. It returns ErrNotFound for
	// an unknown id and ErrEmailExists when another record holds the email.
	Update(ctx context.Context, r *Record) error
	Delete(ctx context.Context, id string) error
}
