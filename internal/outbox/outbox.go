// Package outbox keeps events whose publish failed and relays them to the
// broker once it is reachable again.
package outbox

import (
	"context"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
)

// Entry is an already encoded message waiting for delivery.
type Entry struct {
	ID          string
	Topic       string
	Key         string
	Payload     []byte
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	PublishedAt *time.Time
}

type Store interface {
	Save(ctx context.Context, e *Entry) error
	Pending(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, reason string) error
}
