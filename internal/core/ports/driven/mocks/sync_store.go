package mocks

import (
	"context"
	"sync"

	"github.com/homeinventory/inventory-sync/internal/core/domain"
)

// MockSyncStateStore is a mock implementation of SyncStateStore for testing
type MockSyncStateStore struct {
	mu    sync.RWMutex
	state *domain.PersistedSyncState
	saves int

	SaveFn func(state *domain.PersistedSyncState) error
}

// NewMockSyncStateStore creates a new MockSyncStateStore
func NewMockSyncStateStore() *MockSyncStateStore {
	return &MockSyncStateStore{}
}

func (m *MockSyncStateStore) Save(ctx context.Context, state *domain.PersistedSyncState) error {
	if m.SaveFn != nil {
		if err := m.SaveFn(state); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *state
	m.state = &copied
	m.saves++
	return nil
}

func (m *MockSyncStateStore) Get(ctx context.Context) (*domain.PersistedSyncState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return nil, domain.ErrNotFound
	}
	copied := *m.state
	return &copied, nil
}

// Helper methods for testing

// Saves returns how many times Save succeeded.
func (m *MockSyncStateStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
