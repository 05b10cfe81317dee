package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/homeinventory/inventory-sync/internal/core/domain"
	"github.com/homeinventory/inventory-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SyncStateStore = (*SyncStateStore)(nil)

const syncStateKey = "inventory:sync:state"

// SyncStateStore keeps the persisted sync state as a single JSON document
type SyncStateStore struct {
	client *redis.Client
}

// NewSyncStateStore creates a new Redis-backed SyncStateStore
func NewSyncStateStore(client *redis.Client) *SyncStateStore {
	return &SyncStateStore{client: client}
}

// Save replaces the stored state
func (s *SyncStateStore) Save(ctx context.Context, state *domain.PersistedSyncState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}
	if err := s.client.Set(ctx, syncStateKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	return nil
}

// Get returns the stored state, or domain.ErrNotFound
func (s *SyncStateStore) Get(ctx context.Context) (*domain.PersistedSyncState, error) {
	data, err := s.client.Get(ctx, syncStateKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	var state domain.PersistedSyncState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sync state: %w", err)
	}
	return &state, nil
}
