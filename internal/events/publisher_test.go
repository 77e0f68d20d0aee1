package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marwan562/provisioning-bridge/internal/failure"
	"github.com/marwan562/provisioning-bridge/internal/outbox"
	"github.com/marwan562/provisioning-bridge/pkg/messaging"
)

func TestPublisher_PublishAccountRequested(t *testing.T) {
	broker := &messaging.MockPublisher{}
	p := NewPublisher(broker, DefaultTopics())

	if err := p.PublishAccountRequested(context.Background(), "rec-1", "Ada", "ada@example.com"); err != nil {
		t.Fatalf("Expected publish to succeed, got %v", err)
	}

	msgs := broker.Messages()
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Topic != "account-creation-requested" || msgs[0].Key != "rec-1" {
		t.Errorf("Expected account-creation-requested keyed rec-1, got %s keyed %s", msgs[0].Topic, msgs[0].Key)
	}

	e, err := Unmarshal(msgs[0].Value)
	if err != nil {
		t.Fatalf("Failed to decode published event: %v", err)
	}
	if e.Type != EventTypeAccountCreationRequested || e.Email != "ada@example.com" {
		t.Errorf("Unexpected event %+v", e)
	}
}

func TestPublisher_PublishRecordCreated(t *testing.T) {
	broker := &messaging.MockPublisher{}
	p := NewPublisher(broker, DefaultTopics())

	if err := p.PublishRecordCreated(context.Background(), "rec-2", "Grace", "grace@example.com"); err != nil {
		t.Fatalf("Expected publish to succeed, got %v", err)
	}

	msgs := broker.Messages()
	if len(msgs) != 1 || msgs[0].Topic != "record-created" {
		t.Fatalf("Expected one record-created message, got %+v", msgs)
	}
	e, _ := Unmarshal(msgs[0].Value)
	if e.Type != EventTypeRecordCreated {
		t.Errorf("Expected RECORD_CREATED, got %s", e.Type)
	}
}

func TestPublisher_FailureIsReportedAndParked(t *testing.T) {
	broker := &messaging.MockPublisher{
		PublishFunc: func(ctx context.Context, topic, key string, value []byte) error {
			return errors.New("broker unreachable")
		},
	}
	store := outbox.NewMemoryStore()
	p := NewPublisher(broker, DefaultTopics(), WithOutbox(store))

	err := p.PublishAccountRequested(context.Background(), "rec-3", "Alan", "alan@example.com")
	if !errors.Is(err, failure.ErrPublish) {
		t.Fatalf("Expected publish failure, got %v", err)
	}
	if broker.Attempts() != 1 {
		t.Errorf("Expected exactly one publish attempt, got %d", broker.Attempts())
	}

	pending, _ := store.Pending(context.Background(), 10)
	if len(pending) != 1 {
		t.Fatalf("Expected 1 parked event, got %d", len(pending))
	}
	if pending[0].Key != "rec-3" || pending[0].Topic != "account-creation-requested" {
		t.Errorf("Unexpected parked entry %+v", pending[0])
	}
	if _, err := Unmarshal(pending[0].Payload); err != nil {
		t.Errorf("Expected parked payload to be a valid event, got %v", err)
	}
}

func TestPublisher_IgnoresCallerCancellation(t *testing.T) {
	var sawDeadline bool
	broker := &messaging.MockPublisher{
		PublishFunc: func(ctx context.Context, topic, key string, value []byte) error {
			_, sawDeadline = ctx.Deadline()
			return ctx.Err()
		},
	}
	p := NewPublisher(broker, DefaultTopics(), WithTimeout(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.PublishAccountRequested(ctx, "rec-4", "Ada", "ada@example.com"); err != nil {
		t.Fatalf("Expected publish to proceed after caller cancel, got %v", err)
	}
	if !sawDeadline {
		t.Error("Expected publish to run under its own timeout")
	}
}

// deadlineStore fails on an expired context the way database/sql does.
type deadlineStore struct {
	mu      sync.Mutex
	entries []outbox.Entry
}

func (s *deadlineStore) Save(ctx context.Context, e *outbox.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *e)
	return nil
}

func (s *deadlineStore) Pending(ctx context.Context, limit int) ([]outbox.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outbox.Entry(nil), s.entries...), nil
}

func (s *deadlineStore) MarkPublished(ctx context.Context, id string) error { return nil }

func (s *deadlineStore) MarkFailed(ctx context.Context, id string, reason string) error { return nil }

func TestPublisher_ParksAfterPublishTimeout(t *testing.T) {
	broker := &messaging.MockPublisher{
		PublishFunc: func(ctx context.Context, topic, key string, value []byte) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	store := &deadlineStore{}
	p := NewPublisher(broker, DefaultTopics(), WithOutbox(store), WithTimeout(20*time.Millisecond))

	err := p.PublishAccountRequested(context.Background(), "rec-5", "Ada", "ada@example.com")
	if !errors.Is(err, failure.ErrPublish) {
		t.Fatalf("Expected publish failure, got %v", err)
	}

	pending, _ := store.Pending(context.Background(), 10)
	if len(pending) != 1 {
		t.Fatalf("Expected the timed-out event to be parked, got %d entries", len(pending))
	}
	if pending[0].Key != "rec-5" || pending[0].LastError == "" {
		t.Errorf("Unexpected parked entry %+v", pending[0])
	}
}
