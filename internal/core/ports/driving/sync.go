package driving

import (
	"context"

	"github.com/homeinventory/inventory-sync/internal/core/domain"
)

// SyncCoordinator drains the offline operation queue against the online repositories
type SyncCoordinator interface {
	// SyncNow runs a drain pass immediately.
	// Fails with domain.ErrNetworkUnavailable when offline and
	// domain.ErrSyncInProgress when a pass is already running.
	SyncNow(ctx context.Context) (*domain.SyncResult, error)

	// TriggerSync starts a pass if possible and reports whether one ran.
	TriggerSync(ctx context.Context) bool

	// Status returns the current sync state
	Status(ctx context.Context) (*domain.SyncState, error)

	// Subscribe registers for sync state updates (progress reporting)
	Subscribe(buffer int) (<-chan domain.SyncState, func())

	// DeadLetters lists operations that exhausted their retries
	DeadLetters(ctx context.Context) ([]*domain.QueuedOperation, error)

	// ClearQueue drops every pending operation without replaying it.
	// Fails with domain.ErrSyncInProgress while a pass is running.
	ClearQueue(ctx context.Context) error
}

// EntityRepository is the offline-aware repository consumed by the application layer
type EntityRepository[T domain.Entity] interface {
	FetchAll(ctx context.Context) ([]T, error)
	Fetch(ctx context.Context, id string) (T, error)
	Save(ctx context.Context, item T) error
	Delete(ctx context.Context, item T) error

	// Subscribe registers for change events
	Subscribe(buffer int) (<-chan domain.RepositoryChange[T], func())
}
