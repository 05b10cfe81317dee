package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MockCache is an in-memory Cache that stores JSON bytes like the real adapters.
type MockCache struct {
	mu   sync.RWMutex
	data map[string][]byte

	// Custom behavior hooks (optional)
	SaveFn func(key string, value any) error
	LoadFn func(key string) error
}

// NewMockCache creates a new MockCache
func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte)}
}

func (m *MockCache) Save(ctx context.Context, key string, value any) error {
	if m.SaveFn != nil {
		if err := m.SaveFn(key, value); err != nil {
			return err
		}
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value %s: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

func (m *MockCache) Load(ctx context.Context, key string, dest any) (bool, error) {
	if m.LoadFn != nil {
		if err := m.LoadFn(key); err != nil {
			return false, err
		}
	}
	m.mu.RLock()
	data, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCache) Size(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var size int64
	for _, v := range m.data {
		size += int64(len(v))
	}
	return size, nil
}

func (m *MockCache) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
	return nil
}

// Helper methods for testing

// SetRaw stores raw bytes under key, bypassing serialization.
func (m *MockCache) SetRaw(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
}

// Has reports whether key is present.
func (m *MockCache) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok
}

// Keys returns the number of stored keys.
func (m *MockCache) Keys() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
