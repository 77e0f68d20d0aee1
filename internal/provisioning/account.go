// Package provisioning is the account side: it creates at most one account
// per record, whether asked over gRPC or through the event topic.
package provisioning

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

type Account struct {
	ID        string    `json:"id"`
	RecordID  string    `json:"record_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (a Account) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.RecordID, validation.Required, validation.Length(1, 64)),
		validation.Field(&a.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&a.Email, validation.Required, validation.Length(3, 150), is.EmailFormat),
	)
}

// Store persists accounts with record_id unique.
type Store interface {
	// Create inserts a unless an account already exists for a.RecordID. It
	// returns the stored account and whether this call inserted it.
	Create(ctx context.Context, a *Account) (Account, bool, error)
	GetByRecordID(ctx context.Context, recordID string) (*Account, error)
}
