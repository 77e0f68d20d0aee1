package records

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore backs local runs without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]Record
	byEmail map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]Record),
		byEmail: make(map[string]string),
	}
}

func (m *MemoryStore) Create(ctx context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(r.Email)
	if _, taken := m.byEmail[email]; taken {
		return ErrEmailExists
	}
	r.ID = uuid.New().String()
	r.RegisteredAt = time.Now().UTC()
	m.byID[r.ID] = *r
	m.byEmail[email] = r.ID
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.byID[r.ID]
	if !ok {
		return ErrNotFound
	}
	email := strings.ToLower(r.Email)
	if owner, taken := m.byEmail[email]; taken && owner != r.ID {
		return ErrEmailExists
	}

	delete(m.byEmail, strings.ToLower(cur.Email))
	r.RegisteredAt = cur.RegisteredAt
	m.byID[r.ID] = *r
	m.byEmail[email] = r.ID
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.byEmail, strings.ToLower(cur.Email))
	delete(m.byID, id)
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}
