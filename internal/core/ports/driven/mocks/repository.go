package mocks

import (
	"context"
	"sync"

	"github.com/homeinventory/inventory-sync/internal/core/domain"
)

// RepositoryCall records one mutating call on a MockRepository.
type RepositoryCall struct {
	Method string // "save" or "delete"
	ID     string
}

// MockRepository is an in-memory online repository.
type MockRepository[T domain.Entity] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string
	calls []RepositoryCall

	// Custom behavior hooks (optional)
	FetchAllFn func() ([]T, error)
	FetchFn    func(id string) (T, error)
	SaveFn     func(item T) error
	DeleteFn   func(item T) error
}

// NewMockRepository creates a new MockRepository
func NewMockRepository[T domain.Entity]() *MockRepository[T] {
	return &MockRepository[T]{items: make(map[string]T)}
}

func (m *MockRepository[T]) FetchAll(ctx context.Context) ([]T, error) {
	if m.FetchAllFn != nil {
		return m.FetchAllFn()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]T, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.items[id])
	}
	return result, nil
}

func (m *MockRepository[T]) Fetch(ctx context.Context, id string) (T, error) {
	if m.FetchFn != nil {
		return m.FetchFn(id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		var zero T
		return zero, domain.ErrNotFound
	}
	return item, nil
}

func (m *MockRepository[T]) Save(ctx context.Context, item T) error {
	if m.SaveFn != nil {
		if err := m.SaveFn(item); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := item.EntityID()
	if _, ok := m.items[id]; !ok {
		m.order = append(m.order, id)
	}
	m.items[id] = item
	m.calls = append(m.calls, RepositoryCall{Method: "save", ID: id})
	return nil
}

func (m *MockRepository[T]) Delete(ctx context.Context, item T) error {
	if m.DeleteFn != nil {
		if err := m.DeleteFn(item); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := item.EntityID()
	delete(m.items, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.calls = append(m.calls, RepositoryCall{Method: "delete", ID: id})
	return nil
}

// Helper methods for testing

// Calls returns the mutating calls received, in order.
func (m *MockRepository[T]) Calls() []RepositoryCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RepositoryCall(nil), m.calls...)
}

// Has reports whether the repository holds id.
func (m *MockRepository[T]) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.items[id]
	return ok
}

// Count returns the number of stored items.
func (m *MockRepository[T]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
