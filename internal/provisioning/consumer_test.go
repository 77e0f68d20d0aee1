package provisioning

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/marwan562/provisioning-bridge/internal/events"
	"github.com/marwan562/provisioning-bridge/internal/metrics"
)

const requestTopic = "account-creation-requested"

func TestConsumer_DoubleDeliveryCreatesOneAccount(t *testing.T) {
	store := NewMemoryStore()
	c := NewConsumer(requestTopic, NewProvisioner(store, nil, nil), nil)
	raw := events.NewAccountCreationRequested("rec-1", "Ada", "ada@example.com").Marshal()

	duplicates := testutil.ToFloat64(metrics.ConsumedEvents.WithLabelValues(requestTopic, "duplicate"))

	for i := 0; i < 2; i++ {
		if err := c.OnEvent(context.Background(), "rec-1", raw); err != nil {
			t.Fatalf("Delivery %d: expected no error, got %v", i+1, err)
		}
	}

	if store.Len() != 1 {
		t.Errorf("Expected exactly 1 account, got %d", store.Len())
	}
	if got := testutil.ToFloat64(metrics.ConsumedEvents.WithLabelValues(requestTopic, "duplicate")) - duplicates; got != 1 {
		t.Errorf("Expected 1 duplicate recorded, got %v", got)
	}
}

func TestConsumer_ConcurrentRedeliveries(t *testing.T) {
	store := NewMemoryStore()
	c := NewConsumer(requestTopic, NewProvisioner(store, nil, nil), nil)
	raw := events.NewAccountCreationRequested("rec-1", "Ada", "ada@example.com").Marshal()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.OnEvent(context.Background(), "rec-1", raw)
		}()
	}
	wg.Wait()

	if store.Len() != 1 {
		t.Errorf("Expected exactly 1 account, got %d", store.Len())
	}
}

func TestConsumer_DropsWithoutSideEffects(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"Garbage Bytes", []byte{0xff, 0xff, 0xff}},
		{"Empty Payload", nil},
		{"Record Created Event", events.NewRecordCreated("rec-1", "Ada", "ada@example.com").Marshal()},
		{"Invalid Email", events.NewAccountCreationRequested("rec-1", "Ada", "nope").Marshal()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			c := NewConsumer(requestTopic, NewProvisioner(store, nil, nil), nil)

			if err := c.OnEvent(context.Background(), "rec-1", tt.raw); err != nil {
				t.Fatalf("Expected payload to be dropped, got %v", err)
			}
			if store.Len() != 0 {
				t.Errorf("Expected no account, got %d", store.Len())
			}
		})
	}
}

func TestConsumer_StoreFailureIsReturned(t *testing.T) {
	store := &MockStore{CreateFunc: func(ctx context.Context, a *Account) (Account, bool, error) {
		return Account{}, false, errors.New("database is down")
	}}
	c := NewConsumer(requestTopic, NewProvisioner(store, nil, nil), nil)
	raw := events.NewAccountCreationRequested("rec-1", "Ada", "ada@example.com").Marshal()

	if err := c.OnEvent(context.Background(), "rec-1", raw); err == nil {
		t.Error("Expected store failure to be returned for redelivery")
	}
}

func TestRecordLogger_OnEvent(t *testing.T) {
	r := NewRecordLogger("record-created", nil)
	before := testutil.ToFloat64(metrics.ConsumedEvents.WithLabelValues("record-created", "logged"))

	if err := r.OnEvent(context.Background(), "rec-1", events.NewRecordCreated("rec-1", "Ada", "ada@example.com").Marshal()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := r.OnEvent(context.Background(), "rec-1", []byte{0xff}); err != nil {
		t.Fatalf("Expected malformed payload to be dropped, got %v", err)
	}

	if got := testutil.ToFloat64(metrics.ConsumedEvents.WithLabelValues("record-created", "logged")) - before; got != 1 {
		t.Errorf("Expected 1 logged record, got %v", got)
	}
}
