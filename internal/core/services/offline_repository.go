package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/homeinventory/inventory-sync/internal/core/domain"
	"github.com/homeinventory/inventory-sync/internal/core/ports/driven"
	"github.com/homeinventory/inventory-sync/internal/core/ports/driving"
)

// Verify interface compliance
var (
	_ driving.EntityRepository[domain.Item] = (*OfflineRepository[domain.Item])(nil)
	_ driven.Replayer                       = (*OfflineRepository[domain.Item])(nil)
)

const allSuffix = "all"

// OfflineRepository wraps an online repository with a local cache and an
// operation queue. Reads fall back to the cache; writes made while
// disconnected are queued for the SyncCoordinator and applied to the cache
// speculatively. Writes made while connected go straight to the online
// repository and their errors are returned untouched.
type OfflineRepository[T domain.Entity] struct {
	online       driven.Repository[T]
	cache        driven.Cache
	queue        driven.OperationQueue
	reachability driven.Reachability
	cacheKey     string
	logger       *slog.Logger

	changes *Broadcaster[domain.RepositoryChange[T]]

	// mu serializes mutations so the "_all" entry and queue coalescing
	// observe a stable state.
	mu sync.Mutex
}

// OfflineRepositoryConfig holds dependencies for OfflineRepository.
type OfflineRepositoryConfig[T domain.Entity] struct {
	Online       driven.Repository[T]
	Cache        driven.Cache
	Queue        driven.OperationQueue
	Reachability driven.Reachability
	CacheKey     string // Namespace for every cache entry and queued operation of this repository
	Logger       *slog.Logger
}

// NewOfflineRepository creates a new offline-aware repository.
func NewOfflineRepository[T domain.Entity](cfg OfflineRepositoryConfig[T]) (*OfflineRepository[T], error) {
	if cfg.Online == nil || cfg.Cache == nil || cfg.Queue == nil || cfg.Reachability == nil {
		return nil, fmt.Errorf("%w: online repository, cache, queue and reachability are required", domain.ErrInvalidInput)
	}
	if cfg.CacheKey == "" {
		return nil, fmt.Errorf("%w: cache key is required", domain.ErrInvalidInput)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &OfflineRepository[T]{
		online:       cfg.Online,
		cache:        cfg.Cache,
		queue:        cfg.Queue,
		reachability: cfg.Reachability,
		cacheKey:     cfg.CacheKey,
		logger:       logger.With("repository", cfg.CacheKey),
		changes:      NewBroadcaster[domain.RepositoryChange[T]](),
	}, nil
}

// Key returns the repository key stamped on queued operations.
func (r *OfflineRepository[T]) Key() string {
	return r.cacheKey
}

// Subscribe registers for change events.
func (r *OfflineRepository[T]) Subscribe(buffer int) (<-chan domain.RepositoryChange[T], func()) {
	return r.changes.Subscribe(buffer)
}

// FetchAll returns every entity, from the online repository when possible
// and from the "_all" cache entry otherwise.
func (r *OfflineRepository[T]) FetchAll(ctx context.Context) ([]T, error) {
	if r.reachability.IsConnected() {
		items, err := r.online.FetchAll(ctx)
		if err == nil {
			if items == nil {
				items = []T{}
			}
			if cacheErr := r.cache.Save(ctx, r.allKey(), items); cacheErr != nil {
				r.logger.Warn("failed to refresh collection cache", "error", cacheErr)
			}
			return items, nil
		}

		r.logger.Warn("online fetch all failed, falling back to cache", "error", err)
		if cached, ok := r.loadAll(ctx); ok {
			return cached, nil
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrNoOfflineData, err)
	}

	if cached, ok := r.loadAll(ctx); ok {
		return cached, nil
	}
	return nil, domain.ErrNoOfflineData
}

// Fetch returns one entity by ID with the same fallback rules as FetchAll.
// An authoritative domain.ErrNotFound from the online repository is returned
// as-is and evicts the cached copy.
func (r *OfflineRepository[T]) Fetch(ctx context.Context, id string) (T, error) {
	var zero T

	if r.reachability.IsConnected() {
		item, err := r.online.Fetch(ctx, id)
		if err == nil {
			if cacheErr := r.cache.Save(ctx, r.itemKey(id), item); cacheErr != nil {
				r.logger.Warn("failed to refresh item cache", "id", id, "error", cacheErr)
			}
			return item, nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			if cacheErr := r.cache.Delete(ctx, r.itemKey(id)); cacheErr != nil {
				r.logger.Warn("failed to evict item cache", "id", id, "error", cacheErr)
			}
			return zero, err
		}

		r.logger.Warn("online fetch failed, falling back to cache", "id", id, "error", err)
		if cached, ok := r.loadItem(ctx, id); ok {
			return cached, nil
		}
		return zero, fmt.Errorf("%w: %w", domain.ErrNoOfflineData, err)
	}

	if cached, ok := r.loadItem(ctx, id); ok {
		return cached, nil
	}
	return zero, domain.ErrNoOfflineData
}

// Save writes item through to the online repository when connected, or
// queues it and updates the cache when not. Both paths emit the same event.
func (r *OfflineRepository[T]) Save(ctx context.Context, item T) error {
	id := item.EntityID()
	if err := r.validateID(id); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, existed := r.loadItem(ctx, id)

	if r.reachability.IsConnected() {
		if err := r.online.Save(ctx, item); err != nil {
			return err
		}
		if err := r.cache.Save(ctx, r.itemKey(id), item); err != nil {
			r.logger.Warn("failed to mirror saved item", "id", id, "error", err)
		}
		r.upsertAll(ctx, item, false)
		r.publishSave(item, existed)
		return nil
	}

	opType := domain.OperationCreateItem
	if existed {
		opType = domain.OperationUpdateItem
	}
	op, err := domain.NewQueuedOperation(opType, r.cacheKey, id, item)
	if err != nil {
		return err
	}
	if err := r.queue.Enqueue(ctx, op); err != nil {
		return fmt.Errorf("queue %s for %s: %w", opType, id, err)
	}
	if err := r.cache.Save(ctx, r.itemKey(id), item); err != nil {
		// A failed save must leave nothing behind to replay.
		if rmErr := r.queue.Remove(ctx, op.ID); rmErr != nil {
			r.logger.Error("failed to withdraw queued save", "id", id, "operation_id", op.ID, "error", rmErr)
		}
		return fmt.Errorf("cache %s: %w", id, err)
	}
	r.upsertAll(ctx, item, true)

	r.logger.Debug("queued offline save", "id", id, "operation_id", op.ID, "type", opType)
	r.publishSave(item, existed)
	return nil
}

// Delete removes item online when connected, or queues the delete and
// evicts it from the cache when not.
func (r *OfflineRepository[T]) Delete(ctx context.Context, item T) error {
	id := item.EntityID()
	if err := r.validateID(id); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reachability.IsConnected() {
		if err := r.online.Delete(ctx, item); err != nil {
			return err
		}
		r.evict(ctx, id)
		r.changes.Publish(domain.Deleted(item))
		return nil
	}

	// Queued saves of this item are superseded by the delete; dropping them
	// keeps the item from reappearing on the backend mid-drain.
	if err := r.dropQueuedSaves(ctx, id); err != nil {
		r.logger.Warn("failed to coalesce queued saves", "id", id, "error", err)
	}

	op, err := domain.NewQueuedOperation(domain.OperationDeleteItem, r.cacheKey, id, item)
	if err != nil {
		return err
	}
	if err := r.queue.Enqueue(ctx, op); err != nil {
		return fmt.Errorf("queue %s for %s: %w", op.Type, id, err)
	}
	r.evict(ctx, id)

	r.logger.Debug("queued offline delete", "id", id, "operation_id", op.ID)
	r.changes.Publish(domain.Deleted(item))
	return nil
}

// Replay applies a queued operation to the online repository.
// Deleting an entity the backend no longer has counts as success.
func (r *OfflineRepository[T]) Replay(ctx context.Context, op *domain.QueuedOperation) error {
	if op.RepositoryKey() != r.cacheKey {
		return fmt.Errorf("%w: operation %s targets %q, not %q", domain.ErrInvalidInput, op.ID, op.RepositoryKey(), r.cacheKey)
	}

	var item T
	if err := op.DecodeItem(&item); err != nil {
		return err
	}

	switch op.Type {
	case domain.OperationCreateItem, domain.OperationUpdateItem:
		return r.online.Save(ctx, item)
	case domain.OperationDeleteItem:
		err := r.online.Delete(ctx, item)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("%w: unknown operation type %q", domain.ErrInvalidInput, op.Type)
	}
}

func (r *OfflineRepository[T]) publishSave(item T, existed bool) {
	if existed {
		r.changes.Publish(domain.Updated(item))
		return
	}
	r.changes.Publish(domain.Created(item))
}

// upsertAll appends or replaces item in the "_all" entry.
// When create is false a missing entry is left missing, since a partial
// collection would hide the next cache miss.
func (r *OfflineRepository[T]) upsertAll(ctx context.Context, item T, create bool) {
	all, ok := r.loadAll(ctx)
	if !ok && !create {
		return
	}

	id := item.EntityID()
	replaced := false
	for i := range all {
		if all[i].EntityID() == id {
			all[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, item)
	}

	if err := r.cache.Save(ctx, r.allKey(), all); err != nil {
		r.logger.Warn("failed to update collection cache", "id", id, "error", err)
	}
}

// evict removes every cache trace of id.
func (r *OfflineRepository[T]) evict(ctx context.Context, id string) {
	if err := r.cache.Delete(ctx, r.itemKey(id)); err != nil {
		r.logger.Warn("failed to evict item cache", "id", id, "error", err)
	}

	all, ok := r.loadAll(ctx)
	if !ok {
		return
	}
	kept := all[:0]
	for _, existing := range all {
		if existing.EntityID() != id {
			kept = append(kept, existing)
		}
	}
	if err := r.cache.Save(ctx, r.allKey(), kept); err != nil {
		r.logger.Warn("failed to update collection cache", "id", id, "error", err)
	}
}

func (r *OfflineRepository[T]) dropQueuedSaves(ctx context.Context, id string) error {
	ops, err := r.queue.DequeueAll(ctx)
	if err != nil {
		return err
	}

	var superseded []string
	for _, op := range ops {
		if op.RepositoryKey() != r.cacheKey || op.Payload.ItemID != id {
			continue
		}
		if op.Type == domain.OperationCreateItem || op.Type == domain.OperationUpdateItem {
			superseded = append(superseded, op.ID)
		}
	}
	if len(superseded) == 0 {
		return nil
	}

	r.logger.Debug("dropping superseded queued saves", "id", id, "count", len(superseded))
	return r.queue.Remove(ctx, superseded...)
}

// loadItem reads the per-id entry, falling back to the "_all" entry.
func (r *OfflineRepository[T]) loadItem(ctx context.Context, id string) (T, bool) {
	if item, ok := loadCached[T](ctx, r.cache, r.itemKey(id), r.logger); ok {
		return item, true
	}

	var zero T
	all, ok := r.loadAll(ctx)
	if !ok {
		return zero, false
	}
	for _, item := range all {
		if item.EntityID() == id {
			return item, true
		}
	}
	return zero, false
}

func (r *OfflineRepository[T]) loadAll(ctx context.Context) ([]T, bool) {
	all, ok := loadCached[[]T](ctx, r.cache, r.allKey(), r.logger)
	if ok && all == nil {
		all = []T{}
	}
	return all, ok
}

func (r *OfflineRepository[T]) validateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: entity id is required", domain.ErrInvalidInput)
	}
	if id == allSuffix {
		return fmt.Errorf("%w: entity id %q is reserved", domain.ErrInvalidInput, id)
	}
	return nil
}

func (r *OfflineRepository[T]) itemKey(id string) string {
	return r.cacheKey + "_" + id
}

func (r *OfflineRepository[T]) allKey() string {
	return r.cacheKey + "_" + allSuffix
}

// loadCached is a typed Cache.Load. Backend failures are logged and
// reported as a miss.
func loadCached[V any](ctx context.Context, cache driven.Cache, key string, logger *slog.Logger) (V, bool) {
	var value V
	ok, err := cache.Load(ctx, key, &value)
	if err != nil {
		logger.Warn("cache load failed", "key", key, "error", err)
		return value, false
	}
	return value, ok
}
