package events

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/marwan562/provisioning-bridge/internal/failure"
	"github.com/marwan562/provisioning-bridge/internal/metrics"
	"github.com/marwan562/provisioning-bridge/internal/outbox"
	"github.com/marwan562/provisioning-bridge/pkg/messaging"
)

var tracer = otel.Tracer("github.com/marwan562/provisioning-bridge/internal/events")

type Topics struct {
	AccountCreationRequested string
	RecordCreated            string
}

func DefaultTopics() Topics {
	return Topics{
		AccountCreationRequested: "account-creation-requested",
		RecordCreated:            "record-created",
	}
}

// Publisher emits both record lifecycle events through one delivery path.
// Every event is keyed by record id. A failed publish is logged, parked in
// the outbox when one is configured, and reported as a publish failure; it
// is never retried inline.
type Publisher struct {
	broker  messaging.Publisher
	topics  Topics
	timeout time.Duration
	outbox  outbox.Store
	logger  *slog.Logger
}

type PublisherOption func(*Publisher)

// WithOutbox parks events that could not be published.
func WithOutbox(store outbox.Store) PublisherOption {
	return func(p *Publisher) { p.outbox = store }
}

func WithTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) { p.timeout = d }
}

func WithLogger(l *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = l }
}

func NewPublisher(broker messaging.Publisher, topics Topics, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		broker:  broker,
		topics:  topics,
		timeout: 3 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "event-publisher")
	return p
}

func (p *Publisher) PublishAccountRequested(ctx context.Context, recordID, name, email string) error {
	return p.publish(ctx, p.topics.AccountCreationRequested, NewAccountCreationRequested(recordID, name, email))
}

func (p *Publisher) PublishRecordCreated(ctx context.Context, recordID, name, email string) error {
	return p.publish(ctx, p.topics.RecordCreated, NewRecordCreated(recordID, name, email))
}

func (p *Publisher) publish(ctx context.Context, topic string, e Event) error {
	// The caller may already be past its deadline when falling back. The
	// publish and the outbox write each get their own budget.
	ctx, span := tracer.Start(context.WithoutCancel(ctx), "events.publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.destination", topic),
		attribute.String("event.type", e.Type.String()),
		attribute.String("record.id", e.RecordID),
	)

	payload := e.Marshal()
	pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
	err := p.broker.Publish(pubCtx, topic, e.RecordID, payload)
	cancel()
	if err == nil {
		metrics.EventsPublished.WithLabelValues(topic, "ok").Inc()
		p.logger.Info("event published", "topic", topic, "event_type", e.Type.String(), "record_id", e.RecordID)
		return nil
	}

	metrics.EventsPublished.WithLabelValues(topic, "failed").Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, "publish failed")
	p.logger.Error("failed to publish event",
		"topic", topic,
		"event_type", e.Type.String(),
		"record_id", e.RecordID,
		"error", err,
	)

	if p.outbox != nil {
		entry := &outbox.Entry{
			Topic:     topic,
			Key:       e.RecordID,
			Payload:   payload,
			Attempts:  1,
			LastError: err.Error(),
		}
		saveCtx, cancelSave := context.WithTimeout(ctx, p.timeout)
		defer cancelSave()
		if saveErr := p.outbox.Save(saveCtx, entry); saveErr != nil {
			p.logger.Error("failed to park event in outbox, event lost",
				"topic", topic,
				"record_id", e.RecordID,
				"error", saveErr,
			)
		} else {
			p.logger.Warn("event parked in outbox for redelivery", "topic", topic, "record_id", e.RecordID, "outbox_id", entry.ID)
		}
	}

	return failure.Publish("events.publish", err)
}
