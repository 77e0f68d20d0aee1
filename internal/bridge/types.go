package bridge

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/marwan562/provisioning-bridge/internal/failure"
)

// Status is the provisioning state reported back to the record service.
type Status string

const (
	StatusCreated Status = "CREATED"
	StatusPending Status = "PENDING"
)

// Request asks for an account for a freshly persisted record.
type Request struct {
	RecordID string `json:"record_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

func (r Request) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.RecordID, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 150), is.EmailFormat),
	)
	if err != nil {
		return failure.Application("bridge.Validate", err)
	}
	return nil
}

// Response carries an account id only when Status is CREATED. A pending
// response has an empty AccountID and is not an error.
type Response struct {
	AccountID string `json:"account_id"`
	Status    Status `json:"status"`
}

func Pending() Response {
	return Response{Status: StatusPending}
}
