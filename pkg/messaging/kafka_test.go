package messaging

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.messages[0]
	r.messages = r.messages[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Committed() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func testKafkaConsumer() *KafkaConsumer {
	c := NewKafkaConsumer([]string{"localhost:9092"}, "test")
	c.retryInitial = time.Millisecond
	c.retryMax = 5 * time.Millisecond
	return c
}

func TestKafkaConsumer_RedeliversUntilHandled(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		{Key: []byte("rec-1"), Value: []byte("a"), Offset: 1},
		{Key: []byte("rec-2"), Value: []byte("b"), Offset: 2},
	}}

	var seen []string
	failures := 2
	handler := func(ctx context.Context, key string, value []byte) error {
		seen = append(seen, key)
		if key == "rec-1" && failures > 0 {
			failures--
			return errors.New("database unavailable")
		}
		return nil
	}

	if err := testKafkaConsumer().consume(context.Background(), "account-creation-requested", reader, handler); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := []string{"rec-1", "rec-1", "rec-1", "rec-2"}
	if len(seen) != len(want) {
		t.Fatalf("Expected deliveries %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("Expected delivery %d to be %s, got %s", i, want[i], seen[i])
		}
	}

	committed := reader.Committed()
	if len(committed) != 2 || committed[0] != 1 || committed[1] != 2 {
		t.Errorf("Expected offsets [1 2] committed in order, got %v", committed)
	}
}

func TestKafkaConsumer_FailingMessageIsNotCommitted(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{{Key: []byte("rec-1"), Offset: 7}}}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	calls := 0
	handler := func(ctx context.Context, key string, value []byte) error {
		calls++
		return errors.New("database unavailable")
	}

	if err := testKafkaConsumer().consume(ctx, "account-creation-requested", reader, handler); err != nil {
		t.Fatalf("Expected no error on shutdown, got %v", err)
	}
	if calls < 2 {
		t.Errorf("Expected the message to be handled again, got %d calls", calls)
	}
	if committed := reader.Committed(); len(committed) != 0 {
		t.Errorf("Expected no commit for an unhandled message, got %v", committed)
	}
}
