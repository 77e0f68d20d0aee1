// Package account holds the AccountService wire types described by
// account.proto and the gRPC bindings that carry them.
package account

import (
	"fmt"

	"github.com/marwan562/provisioning-bridge/pkg/wire"
)

type AccountStatus int32

const (
	AccountStatus_UNSPECIFIED AccountStatus = 0
	AccountStatus_CREATED     AccountStatus = 1
	AccountStatus_PENDING     AccountStatus = 2
)

func (s AccountStatus) String() string {
	switch s {
	case AccountStatus_CREATED:
		return "CREATED"
	case AccountStatus_PENDING:
		return "PENDING"
	default:
		return "ACCOUNT_STATUS_UNSPECIFIED"
	}
}

type CreateAccountRequest struct {
	RecordId string
	Name     string
	Email    string
}

func (m *CreateAccountRequest) GetRecordId() string {
	if m == nil {
		return ""
	}
	return m.RecordId
}

func (m *CreateAccountRequest) GetName() string {
	if m == nil {
		return ""
	}
	return m.Name
}

func (m *CreateAccountRequest) GetEmail() string {
	if m == nil {
		return ""
	}
	return m.Email
}

func (m *CreateAccountRequest) Marshal() ([]byte, error) {
	var b []byte
	b = wire.AppendString(b, 1, m.RecordId)
	b = wire.AppendString(b, 2, m.Name)
	b = wire.AppendString(b, 3, m.Email)
	return b, nil
}

func (m *CreateAccountRequest) Unmarshal(b []byte) error {
	*m = CreateAccountRequest{}
	return wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case 1:
			m.RecordId = f.String()
		case 2:
			m.Name = f.String()
		case 3:
			m.Email = f.String()
		}
		return nil
	})
}

func (m *CreateAccountRequest) String() string {
	return fmt.Sprintf("record_id:%q name:%q", m.GetRecordId(), m.GetName())
}

type CreateAccountResponse struct {
	AccountId string
	Status    AccountStatus
}

func (m *CreateAccountResponse) GetAccountId() string {
	if m == nil {
		return ""
	}
	return m.AccountId
}

func (m *CreateAccountResponse) GetStatus() AccountStatus {
	if m == nil {
		return AccountStatus_UNSPECIFIED
	}
	return m.Status
}

func (m *CreateAccountResponse) Marshal() ([]byte, error) {
	var b []byte
	b = wire.AppendString(b, 1, m.AccountId)
	b = wire.AppendEnum(b, 2, int32(m.Status))
	return b, nil
}

func (m *CreateAccountResponse) Unmarshal(b []byte) error {
	*m = CreateAccountResponse{}
	return wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case 1:
			m.AccountId = f.String()
		case 2:
			m.Status = AccountStatus(f.Enum())
		}
		return nil
	})
}

func (m *CreateAccountResponse) String() string {
	return fmt.Sprintf("account_id:%q status:%s", m.GetAccountId(), m.GetStatus())
}
