package messaging

import (
	"context"
	"sync"
)

type Message struct {
	Topic string
	Key   string
	Value []byte
}

// MockPublisher records every message it accepts. PublishFunc, when set,
// decides the result; a message is recorded only when it returns nil.
type MockPublisher struct {
	PublishFunc func(ctx context.Context, topic, key string, value []byte) error

	mu       sync.Mutex
	attempts int
	messages []Message
}

func (m *MockPublisher) Publish(ctx context.Context, topic, key string, value []byte) error {
	m.mu.Lock()
	m.attempts++
	m.mu.Unlock()

	if m.PublishFunc != nil {
		if err := m.PublishFunc(ctx, topic, key, value); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, Message{Topic: topic, Key: key, Value: value})
	return nil
}

func (m *MockPublisher) Close() error { return nil }

func (m *MockPublisher) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Attempts counts Publish calls, including failed ones.
func (m *MockPublisher) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}
