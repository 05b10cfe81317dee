package services

import (
	"sync"
	"sync/atomic"
)

// Broadcaster fans events out to any number of subscribers.
// Each subscriber gets a bounded channel; when it is full the event is
// dropped for that subscriber and counted, so a slow consumer never
// blocks the publisher.
type Broadcaster[E any] struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan E
	nextID      uint64
	closed      bool
	dropped     atomic.Int64
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster[E any]() *Broadcaster[E] {
	return &Broadcaster[E]{subscribers: make(map[uint64]chan E)}
}

// Subscribe registers a subscriber with the given buffer size.
// The returned function unsubscribes and closes the channel; it is safe to call twice.
func (b *Broadcaster[E]) Subscribe(buffer int) (<-chan E, func()) {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan E, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subscribers[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(sub)
		}
	}
}

// Publish delivers event to every subscriber without blocking.
func (b *Broadcaster[E]) Publish(event E) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Close closes every subscriber channel. Later subscriptions get a closed channel.
func (b *Broadcaster[E]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
}

// Subscribers returns the number of active subscribers.
func (b *Broadcaster[E]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped returns how many deliveries were dropped because a subscriber was full.
func (b *Broadcaster[E]) Dropped() int64 {
	return b.dropped.Load()
}
