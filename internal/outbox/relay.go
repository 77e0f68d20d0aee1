package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/marwan562/provisioning-bridge/internal/metrics"
	"github.com/marwan562/provisioning-bridge/pkg/messaging"
)

// Relay periodically republishes pending outbox entries.
type Relay struct {
	store     Store
	publisher messaging.Publisher
	interval  time.Duration
	batchSize int
	timeout   time.Duration
	logger    *slog.Logger
}

func NewRelay(store Store, publisher messaging.Publisher, interval time.Duration, batchSize int, logger *slog.Logger) *Relay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		store:     store,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		timeout:   5 * time.Second,
		logger:    logger.With("component", "outbox-relay"),
	}
}

func (r *Relay) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("outbox relay started", "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil {
				r.logger.Error("outbox relay pass failed", "error", err)
			}
		}
	}
}

// Flush publishes one batch oldest first and returns how many went out. It
// stops at the first publish failure so later events for the same key are
// never delivered ahead of earlier ones.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	entries, err := r.store.Pending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	metrics.OutboxBacklog.Set(float64(len(entries)))

	published := 0
	for _, e := range entries {
		pubCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.publisher.Publish(pubCtx, e.Topic, e.Key, e.Payload)
		cancel()

		if err != nil {
			metrics.EventsPublished.WithLabelValues(e.Topic, "outbox_failed").Inc()
			if markErr := r.store.MarkFailed(ctx, e.ID, err.Error()); markErr != nil {
				r.logger.Error("failed to record outbox attempt", "id", e.ID, "error", markErr)
			}
			r.logger.Warn("outbox publish failed, will retry next pass", "id", e.ID, "topic", e.Topic, "key", e.Key, "error", err)
			break
		}

		if err := r.store.MarkPublished(ctx, e.ID); err != nil {
			// The entry will be sent again next pass; consumers dedup by key.
			r.logger.Error("failed to mark outbox event published", "id", e.ID, "error", err)
			break
		}
		metrics.EventsPublished.WithLabelValues(e.Topic, "outbox_ok").Inc()
		published++
	}

	metrics.OutboxBacklog.Set(float64(len(entries) - published))
	return published, nil
}
