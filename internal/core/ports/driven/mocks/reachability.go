package mocks

import (
	"sync"
)

// MockReachability is a Reachability whose state is set by the test.
type MockReachability struct {
	mu          sync.RWMutex
	connected   bool
	subscribers map[int]chan bool
	nextID      int
}

// NewMockReachability creates a MockReachability with the given initial state.
func NewMockReachability(connected bool) *MockReachability {
	return &MockReachability{
		connected:   connected,
		subscribers: make(map[int]chan bool),
	}
}

func (m *MockReachability) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

func (m *MockReachability) Subscribe(buffer int) (<-chan bool, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	ch := make(chan bool, buffer)
	m.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subscribers, id)
			close(ch)
		})
	}
}

// Set changes the connectivity and notifies subscribers on a transition.
// Subscribers whose buffer is full miss the notification.
func (m *MockReachability) Set(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connected == connected {
		return
	}
	m.connected = connected
	for _, ch := range m.subscribers {
		select {
		case ch <- connected:
		default:
		}
	}
}
