package outbox

import (
	"context"
	"strconv"
	"sync"
)

// MemoryStore is an in-process Store for tests and single-node development.
type MemoryStore struct {
	mu      sync.Mutex
	entries []*Entry
	status  map[string]Status
	next    int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{status: make(map[string]Status)}
}

func (m *MemoryStore) Save(ctx context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.ID == "" {
		m.next++
		e.ID = "mem-" + strconv.Itoa(m.next)
	}
	cp := *e
	m.entries = append(m.entries, &cp)
	m.status[e.ID] = StatusPending
	return nil
}

func (m *MemoryStore) Pending(ctx context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Entry
	for _, e := range m.entries {
		if m.status[e.ID] != StatusPending {
			continue
		}
		out = append(out, *e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) MarkPublished(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[id] = StatusPublished
	return nil
}

func (m *MemoryStore) MarkFailed(ctx context.Context, id string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			e.Attempts++
			e.LastError = reason
		}
	}
	return nil
}
