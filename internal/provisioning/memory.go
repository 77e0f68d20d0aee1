package provisioning

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps accounts in process; used by tests and local runs
// without a database.
type MemoryStore struct {
	mu       sync.Mutex
	byRecord map[string]Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byRecord: make(map[string]Account)}
}

func (m *MemoryStore) Create(ctx context.Context, a *Account) (Account, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byRecord[a.RecordID]; ok {
		return existing, false, nil
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.byRecord[a.RecordID] = *a
	return *a, true, nil
}

func (m *MemoryStore) GetByRecordID(ctx context.Context, recordID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byRecord[recordID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byRecord)
}
