package driven

import (
	"context"

	"github.com/homeinventory/inventory-sync/internal/core/domain"
)

// Repository is the online (authoritative) store for one entity type.
// Fetch returns domain.ErrNotFound when the entity does not exist.
type Repository[T domain.Entity] interface {
	FetchAll(ctx context.Context) ([]T, error)
	Fetch(ctx context.Context, id string) (T, error)
	Save(ctx context.Context, item T) error
	Delete(ctx context.Context, item T) error
}

// Replayer applies queued operations to the repository they came from.
type Replayer interface {
	// Key is the repository key stamped on the operations this replayer owns.
	Key() string

	// Replay applies a single queued operation against the online repository.
	Replay(ctx context.Context, op *domain.QueuedOperation) error
}
