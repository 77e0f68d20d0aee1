package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marwan562/provisioning-bridge/pkg/messaging"
)

func seed(t *testing.T, store *MemoryStore, keys ...string) {
	t.Helper()
	for _, k := range keys {
		if err := store.Save(context.Background(), &Entry{Topic: "account-creation-requested", Key: k, Payload: []byte(k)}); err != nil {
			t.Fatalf("Failed to seed outbox: %v", err)
		}
	}
}

func TestRelay_FlushPublishesInOrder(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "rec-1", "rec-2", "rec-3")
	pub := &messaging.MockPublisher{}

	relay := NewRelay(store, pub, time.Second, 10, nil)
	n, err := relay.Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("Expected 3 published, got %d", n)
	}

	msgs := pub.Messages()
	for i, want := range []string{"rec-1", "rec-2", "rec-3"} {
		if msgs[i].Key != want {
			t.Errorf("Expected message %d key %s, got %s", i, want, msgs[i].Key)
		}
	}

	pending, _ := store.Pending(context.Background(), 10)
	if len(pending) != 0 {
		t.Errorf("Expected empty outbox, got %d pending", len(pending))
	}
}

func TestRelay_FlushStopsAtFirstFailure(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "rec-1", "rec-2", "rec-3")
	pub := &messaging.MockPublisher{
		PublishFunc: func(ctx context.Context, topic, key string, value []byte) error {
			if key == "rec-2" {
				return errors.New("broker unavailable")
			}
			return nil
		},
	}

	relay := NewRelay(store, pub, time.Second, 10, nil)
	n, err := relay.Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("Expected 1 published, got %d", n)
	}
	if pub.Attempts() != 2 {
		t.Errorf("Expected relay to stop after the failed attempt, got %d attempts", pub.Attempts())
	}

	pending, _ := store.Pending(context.Background(), 10)
	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending, got %d", len(pending))
	}
	if pending[0].Key != "rec-2" || pending[0].Attempts != 1 || pending[0].LastError == "" {
		t.Errorf("Expected rec-2 to carry the failed attempt, got %+v", pending[0])
	}
}

func TestRelay_StartStopsWithContext(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "rec-1")
	pub := &messaging.MockPublisher{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewRelay(store, pub, 5*time.Millisecond, 10, nil).Start(ctx)
		close(done)
	}()

	deadline := time.After(time.Second)
	for len(pub.Messages()) == 0 {
		select {
		case <-deadline:
			t.Fatal("Relay never published the pending entry")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Relay did not stop after cancel")
	}
}
