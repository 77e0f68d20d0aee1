package records

import (
	"context"

	"github.com/marwan562/provisioning-bridge/internal/bridge"
)

type MockStore struct {
	CreateFunc  func(ctx context.Context, r *Record) error
	GetByIDFunc func(ctx context.Context, id string) (*Record, error)
	UpdateFunc  func(ctx context.Context, r *Record) error
	DeleteFunc  func(ctx context.Context, id string) error
}

func (m *MockStore) Create(ctx context.Context, r *Record) error {
	return m.CreateFunc(ctx, r)
}

func (m *MockStore) GetByID(ctx context.Context, id string) (*Record, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockStore) Update(ctx context.Context, r *Record) error {
	return m.UpdateFunc(ctx, r)
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

type MockAccountRequester struct {
	RequestAccountCreationFunc func(ctx context.Context, req bridge.Request) (bridge.Response, error)
}

func (m *MockAccountRequester) RequestAccountCreation(ctx context.Context, req bridge.Request) (bridge.Response, error) {
	return m.RequestAccountCreationFunc(ctx, req)
}

type MockAnnouncer struct {
	PublishRecordCreatedFunc func(ctx context.Context, recordID, name, email string) error
}

func (m *MockAnnouncer) PublishRecordCreated(ctx context.Context, recordID, name, email string) error {
	return m.PublishRecordCreatedFunc(ctx, recordID, name, email)
}
