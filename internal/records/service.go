package records

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marwan562/provisioning-bridge/internal/bridge"
	"github.com/marwan562/provisioning-bridge/internal/failure"
)

type AccountRequester interface {
	RequestAccountCreation(ctx context.Context, req bridge.Request) (bridge.Response, error)
}

type Announcer interface {
	PublishRecordCreated(ctx context.Context, recordID, name, email string) error
}

// Created is a persisted record with the provisioning outcome of its account.
type Created struct {
	Record  Record          `json:"record"`
	Account bridge.Response `json:"account"`
}

type Service struct {
	store     Store
	accounts  AccountRequester
	announcer Announcer
	logger    *slog.Logger
}

func NewService(store Store, accounts AccountRequester, announcer Announcer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		accounts:  accounts,
		announcer: announcer,
		logger:    logger.With("component", "record-service"),
	}
}

// Create persists the record, requests its account and announces it. Once
// the record is stored the call succeeds whether the account was created or
// is pending; the only later failure is an account request the account
// service rejects, returned alongside the stored record.
func (s *Service) Create(ctx context.Context, in NewRecord) (Created, error) {
	if err := in.Validate(); err != nil {
		return Created{}, failure.Application("records.Create", err)
	}

	rec := &Record{
		Name:        in.Name,
		Email:       in.Email,
		Address:     in.Address,
		DateOfBirth: in.DateOfBirth,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return Created{}, fmt.Errorf("failed to persist record: %w", err)
	}
	s.logger.Info("record persisted", "record_id", rec.ID)

	acct, acctErr := s.accounts.RequestAccountCreation(ctx, bridge.Request{
		RecordID: rec.ID,
		Name:     rec.Name,
		Email:    rec.Email,
	})

	// Announced for every persisted record, whatever happened to the account.
	if err := s.announcer.PublishRecordCreated(ctx, rec.ID, rec.Name, rec.Email); err != nil {
		s.logger.Error("record-created announcement failed", "record_id", rec.ID, "error", err)
	}

	if acctErr != nil {
		return Created{Record: *rec}, fmt.Errorf("failed to request account for record %s: %w", rec.ID, acctErr)
	}
	return Created{Record: *rec, Account: acct}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Update replaces a record's fields. The record keeps its id, so its account
// is untouched and nothing is announced.
func (s *Service) Update(ctx context.Context, id string, in NewRecord) (*Record, error) {
	if err := in.Validate(); err != nil {
		return nil, failure.Application("records.Update", err)
	}

	rec := &Record{
		ID:          id,
		Name:        in.Name,
		Email:       in.Email,
		Address:     in.Address,
		DateOfBirth: in.DateOfBirth,
	}
	if err := s.store.Update(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info("record updated", "record_id", id)
	return rec, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("record deleted", "record_id", id)
	return nil
}
