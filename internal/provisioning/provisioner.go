package provisioning

import (
	"context"
	"log/slog"

	"github.com/marwan562/provisioning-bridge/internal/failure"
)

type Provisioner struct {
	store  Store
	cache  DedupCache
	logger *slog.Logger
}

// NewProvisioner wires the account store. cache may be nil.
func NewProvisioner(store Store, cache DedupCache, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{
		store:  store,
		cache:  cache,
		logger: logger.With("component", "provisioner"),
	}
}

// Provision returns the account for recordID, creating it on first sight.
// created is false when the record already had an account. Invalid input is
// an application failure; store errors are transient.
//
// A dedup cache hit only knows the account id, so the returned Account then
// carries just ID and RecordID. Use Store.GetByRecordID for the full row.
func (p *Provisioner) Provision(ctx context.Context, recordID, name, email string) (Account, bool, error) {
	a := Account{RecordID: recordID, Name: name, Email: email}
	if err := a.Validate(); err != nil {
		return Account{}, false, failure.Application("provisioning.Provision", err)
	}

	if p.cache != nil {
		id, found, err := p.cache.Lookup(ctx, recordID)
		if err != nil {
			p.logger.Warn("dedup cache lookup failed, using store", "record_id", recordID, "error", err)
		} else if found {
			return Account{ID: id, RecordID: recordID}, false, nil
		}
	}

	stored, created, err := p.store.Create(ctx, &a)
	if err != nil {
		return Account{}, false, failure.Transient("provisioning.Provision", err)
	}

	if p.cache != nil {
		if err := p.cache.Remember(ctx, recordID, stored.ID); err != nil {
			p.logger.Warn("failed to remember provisioned record", "record_id", recordID, "error", err)
		}
	}

	if created {
		p.logger.Info("account created", "record_id", recordID, "account_id", stored.ID)
	} else {
		p.logger.Info("account already exists for record", "record_id", recordID, "account_id", stored.ID)
	}
	return stored, created, nil
}
