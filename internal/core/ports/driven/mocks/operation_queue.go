package mocks

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/homeinventory/inventory-sync/internal/core/domain"
)

// MockOperationQueue is an in-memory OperationQueue.
// Operations are deep-copied on the way in and out, as a persistent store would.
type MockOperationQueue struct {
	mu   sync.RWMutex
	ops  []*domain.QueuedOperation
	dead []*domain.QueuedOperation

	// Custom behavior hooks (optional)
	EnqueueFn func(op *domain.QueuedOperation) error
	PingFn    func() error
}

// NewMockOperationQueue creates a new MockOperationQueue
func NewMockOperationQueue() *MockOperationQueue {
	return &MockOperationQueue{}
}

func (m *MockOperationQueue) Enqueue(ctx context.Context, op *domain.QueuedOperation) error {
	if m.EnqueueFn != nil {
		if err := m.EnqueueFn(op); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, cloneOperation(op))
	return nil
}

func (m *MockOperationQueue) DequeueAll(ctx context.Context) ([]*domain.QueuedOperation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.QueuedOperation, 0, len(m.ops))
	for _, op := range m.ops {
		result = append(result, cloneOperation(op))
	}
	return result, nil
}

func (m *MockOperationQueue) Remove(ctx context.Context, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := m.ops[:0]
	for _, op := range m.ops {
		if !drop[op.ID] {
			kept = append(kept, op)
		}
	}
	m.ops = kept
	return nil
}

func (m *MockOperationQueue) Update(ctx context.Context, op *domain.QueuedOperation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.ops {
		if existing.ID == op.ID {
			m.ops[i] = cloneOperation(op)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockOperationQueue) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ops), nil
}

func (m *MockOperationQueue) DeadLetter(ctx context.Context, op *domain.QueuedOperation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.ops {
		if existing.ID == op.ID {
			m.dead = append(m.dead, cloneOperation(op))
			m.ops = append(m.ops[:i], m.ops[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockOperationQueue) ListDeadLetters(ctx context.Context) ([]*domain.QueuedOperation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.QueuedOperation, 0, len(m.dead))
	for _, op := range m.dead {
		result = append(result, cloneOperation(op))
	}
	return result, nil
}

func (m *MockOperationQueue) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = nil
	return nil
}

func (m *MockOperationQueue) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

// Helper methods for testing

// Operations returns a copy of the live queue.
func (m *MockOperationQueue) Operations() []*domain.QueuedOperation {
	ops, _ := m.DequeueAll(context.Background())
	return ops
}

func cloneOperation(op *domain.QueuedOperation) *domain.QueuedOperation {
	data, err := json.Marshal(op)
	if err != nil {
		panic(err)
	}
	var clone domain.QueuedOperation
	if err := json.Unmarshal(data, &clone); err != nil {
		panic(err)
	}
	return &clone
}
