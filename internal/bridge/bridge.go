// Package bridge provisions an account for every new record, synchronously
// when the account service answers and through the broker when it does not.
package bridge

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/marwan562/provisioning-bridge/internal/failure"
	"github.com/marwan562/provisioning-bridge/internal/metrics"
	"github.com/marwan562/provisioning-bridge/internal/retry"
)

var tracer = otel.Tracer("github.com/marwan562/provisioning-bridge/internal/bridge")

// AccountCreator performs a single synchronous attempt.
type AccountCreator interface {
	CreateAccount(ctx context.Context, req Request) (Response, error)
}

// FallbackPublisher announces that an account still has to be created.
type FallbackPublisher interface {
	PublishAccountRequested(ctx context.Context, recordID, name, email string) error
}

type Bridge struct {
	client   AccountCreator
	retry    *retry.Policy
	fallback FallbackPublisher
	logger   *slog.Logger
}

func New(client AccountCreator, policy *retry.Policy, fallback FallbackPublisher, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		client:   client,
		retry:    policy,
		fallback: fallback,
		logger:   logger.With("component", "bridge"),
	}
}

// RequestAccountCreation returns CREATED when the account service created
// the account, or PENDING after handing the request to the broker. The only
// error it returns is an application failure for a request the account
// service would never accept.
func (b *Bridge) RequestAccountCreation(ctx context.Context, req Request) (Response, error) {
	ctx, span := tracer.Start(ctx, "bridge.RequestAccountCreation")
	defer span.End()
	span.SetAttributes(attribute.String("record.id", req.RecordID))

	if err := req.Validate(); err != nil {
		metrics.RecordOutcome(metrics.OutcomeRejected)
		span.RecordError(err)
		return Response{}, err
	}

	resp, err := retry.Execute(ctx, b.retry, func(ctx context.Context) (Response, error) {
		return b.client.CreateAccount(ctx, req)
	})
	if err == nil {
		if resp.Status == StatusCreated {
			metrics.RecordOutcome(metrics.OutcomeCreated)
		} else {
			metrics.RecordOutcome(metrics.OutcomePending)
		}
		span.SetAttributes(attribute.String("account.status", string(resp.Status)))
		return resp, nil
	}

	if failure.IsApplication(err) {
		metrics.RecordOutcome(metrics.OutcomeRejected)
		span.RecordError(err)
		b.logger.Warn("account service rejected request", "record_id", req.RecordID, "error", err)
		return Response{}, err
	}

	b.logger.Warn("account service unavailable, falling back to async provisioning",
		"record_id", req.RecordID,
		"reason", failure.KindOf(err).String(),
		"error", err,
	)

	// Publish errors are already logged (and parked, if an outbox is
	// configured); record creation must not wait on the broker.
	_ = b.fallback.PublishAccountRequested(ctx, req.RecordID, req.Name, req.Email)

	metrics.RecordOutcome(metrics.OutcomePending)
	span.SetAttributes(
		attribute.String("account.status", string(StatusPending)),
		attribute.String("fallback.reason", failure.KindOf(err).String()),
	)
	return Pending(), nil
}
