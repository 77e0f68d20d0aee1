package provisioning

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/marwan562/provisioning-bridge/internal/events"
	"github.com/marwan562/provisioning-bridge/internal/failure"
	"github.com/marwan562/provisioning-bridge/internal/metrics"
)

// Consumer provisions accounts from account-creation-requested events.
// Delivery is at least once; duplicates resolve to the existing account.
type Consumer struct {
	topic       string
	provisioner *Provisioner
	logger      *slog.Logger
}

func NewConsumer(topic string, p *Provisioner, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		topic:       topic,
		provisioner: p,
		logger:      logger.With("component", "account-consumer", "topic", topic),
	}
}

// OnEvent matches messaging.Handler. Malformed payloads, other event types
// and invalid requests are dropped with a nil error so the broker does not
// redeliver them. Only a store failure is returned.
func (c *Consumer) OnEvent(ctx context.Context, key string, raw []byte) error {
	e, err := events.Unmarshal(raw)
	if err != nil {
		metrics.ConsumedEvents.WithLabelValues(c.topic, "malformed").Inc()
		c.logger.Error("discarding malformed event", "key", key, "size", len(raw), "error", err)
		return nil
	}

	if e.Type != events.EventTypeAccountCreationRequested {
		metrics.ConsumedEvents.WithLabelValues(c.topic, "ignored").Inc()
		c.logger.Debug("ignoring event", "event_type", e.Type.String(), "record_id", e.RecordID)
		return nil
	}

	ctx, span := tracer.Start(ctx, "provisioning.OnEvent")
	defer span.End()
	span.SetAttributes(attribute.String("record.id", e.RecordID))

	a, created, err := c.provisioner.Provision(ctx, e.RecordID, e.Name, e.Email)
	if err != nil {
		span.RecordError(err)
		metrics.AccountsProvisioned.WithLabelValues("event", "failed").Inc()
		if failure.IsApplication(err) {
			metrics.ConsumedEvents.WithLabelValues(c.topic, "rejected").Inc()
			c.logger.Error("discarding invalid account request", "record_id", e.RecordID, "error", err)
			return nil
		}
		metrics.ConsumedEvents.WithLabelValues(c.topic, "failed").Inc()
		return err
	}

	metrics.AccountsProvisioned.WithLabelValues("event", resultLabel(created)).Inc()
	metrics.ConsumedEvents.WithLabelValues(c.topic, resultLabel(created)).Inc()
	c.logger.Info("processed account creation event", "record_id", e.RecordID, "account_id", a.ID, "created", created)
	return nil
}

// RecordLogger consumes record-created announcements. The account side has
// nothing to do with them yet beyond logging.
type RecordLogger struct {
	topic  string
	logger *slog.Logger
}

func NewRecordLogger(topic string, logger *slog.Logger) *RecordLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordLogger{topic: topic, logger: logger.With("component", "record-consumer", "topic", topic)}
}

func (r *RecordLogger) OnEvent(ctx context.Context, key string, raw []byte) error {
	e, err := events.Unmarshal(raw)
	if err != nil {
		metrics.ConsumedEvents.WithLabelValues(r.topic, "malformed").Inc()
		r.logger.Error("discarding malformed event", "key", key, "error", err)
		return nil
	}
	if e.Type != events.EventTypeRecordCreated {
		metrics.ConsumedEvents.WithLabelValues(r.topic, "ignored").Inc()
		return nil
	}

	metrics.ConsumedEvents.WithLabelValues(r.topic, "logged").Inc()
	r.logger.Info("record created", "record_id", e.RecordID, "name", e.Name, "email", e.Email)
	return nil
}
