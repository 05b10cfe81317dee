package driven

import (
	"context"

	"github.com/homeinventory/inventory-sync/internal/core/domain"
)

// SyncStateStore persists the sync coordinator state that must survive restarts.
type SyncStateStore interface {
	// Save creates or updates the persisted state
	Save(ctx context.Context, state *domain.PersistedSyncState) error

	// Get retrieves the persisted state, or domain.ErrNotFound if none was saved
	Get(ctx context.Context) (*domain.PersistedSyncState, error)
}
