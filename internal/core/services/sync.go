package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/homeinventory/inventory-sync/internal/core/domain"
	"github.com/homeinventory/inventory-sync/internal/core/ports/driven"
	"github.com/homeinventory/inventory-sync/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.SyncCoordinator = (*SyncCoordinator)(nil)

const (
	syncLockName       = "offline-sync"
	defaultMaxAttempts = 5
	defaultLockTTL     = 5 * time.Minute
)

// SyncCoordinator drains the operation queue against the online repositories.
// A drain pass:
//  1. Snapshots the queue (operations enqueued during the pass wait for the next one)
//  2. Replays each operation in order through the replayer registered for its repository
//  3. Removes replayed operations; failed ones get their attempt counter bumped
//     and are dead-lettered once MaxAttempts is reached
//  4. Records and persists the completion time
//
// At most one pass runs per coordinator. With a DistributedLock, at most one
// pass runs across every process sharing the queue.
type SyncCoordinator struct {
	queue        driven.OperationQueue
	reachability driven.Reachability
	stateStore   driven.SyncStateStore
	lock         driven.DistributedLock
	logger       *slog.Logger
	maxAttempts  int
	lockTTL      time.Duration
	now          func() time.Time

	replayersMu sync.RWMutex
	replayers   map[string]driven.Replayer

	syncing atomic.Bool

	mu         sync.RWMutex
	progress   float64
	pending    int
	lastSyncAt *time.Time
	lastResult *domain.SyncResult

	updates *Broadcaster[domain.SyncState]
}

// SyncCoordinatorConfig holds dependencies for SyncCoordinator.
type SyncCoordinatorConfig struct {
	Queue        driven.OperationQueue
	Reachability driven.Reachability
	StateStore   driven.SyncStateStore  // Optional: persists the last sync time
	Lock         driven.DistributedLock // Optional: cross-process mutual exclusion
	Logger       *slog.Logger
	MaxAttempts  int              // Failed replays before dead-lettering (default: 5, negative: never)
	LockTTL      time.Duration    // TTL of the distributed lock (default: 5m)
	Clock        func() time.Time // Defaults to time.Now
}

// NewSyncCoordinator creates a new sync coordinator.
func NewSyncCoordinator(cfg SyncCoordinatorConfig) *SyncCoordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = defaultMaxAttempts
	}
	if maxAttempts < 0 {
		maxAttempts = 0
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = defaultLockTTL
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &SyncCoordinator{
		queue:        cfg.Queue,
		reachability: cfg.Reachability,
		stateStore:   cfg.StateStore,
		lock:         cfg.Lock,
		logger:       logger,
		maxAttempts:  maxAttempts,
		lockTTL:      lockTTL,
		now:          now,
		replayers:    make(map[string]driven.Replayer),
		updates:      NewBroadcaster[domain.SyncState](),
	}
}

// Register routes operations stamped with r.Key() to r.
func (c *SyncCoordinator) Register(r driven.Replayer) error {
	c.replayersMu.Lock()
	defer c.replayersMu.Unlock()

	key := r.Key()
	if _, exists := c.replayers[key]; exists {
		return fmt.Errorf("%w: replayer for %q already registered", domain.ErrInvalidInput, key)
	}
	c.replayers[key] = r
	return nil
}

// LoadState restores the persisted sync state. A missing state is not an error.
func (c *SyncCoordinator) LoadState(ctx context.Context) error {
	if c.stateStore == nil {
		return nil
	}

	persisted, err := c.stateStore.Get(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load sync state: %w", err)
	}

	c.mu.Lock()
	c.lastSyncAt = persisted.LastSyncAt
	c.lastResult = persisted.LastResult
	c.mu.Unlock()
	return nil
}

// SyncNow runs a drain pass immediately.
func (c *SyncCoordinator) SyncNow(ctx context.Context) (*domain.SyncResult, error) {
	if !c.reachability.IsConnected() {
		return nil, domain.ErrNetworkUnavailable
	}
	if !c.syncing.CompareAndSwap(false, true) {
		return nil, domain.ErrSyncInProgress
	}
	defer c.finish(ctx)

	release, err := c.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return c.drain(ctx)
}

// TriggerSync runs a pass unless one is already running or the backend is
// unreachable. It reports whether a pass ran.
func (c *SyncCoordinator) TriggerSync(ctx context.Context) bool {
	result, err := c.SyncNow(ctx)
	switch {
	case errors.Is(err, domain.ErrSyncInProgress), errors.Is(err, domain.ErrNetworkUnavailable):
		c.logger.Debug("sync trigger skipped", "reason", err)
		return false
	case err != nil:
		c.logger.Error("triggered sync failed", "error", err)
		return false
	}
	return result != nil
}

// Status returns the current state. PendingOperations is read from the queue.
func (c *SyncCoordinator) Status(ctx context.Context) (*domain.SyncState, error) {
	count, err := c.queue.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count pending operations: %w", err)
	}

	c.mu.Lock()
	c.pending = count
	c.mu.Unlock()

	state := c.snapshot()
	return &state, nil
}

// Subscribe registers for state updates, published at every progress step.
func (c *SyncCoordinator) Subscribe(buffer int) (<-chan domain.SyncState, func()) {
	return c.updates.Subscribe(buffer)
}

// DeadLetters lists operations that exhausted their retries.
func (c *SyncCoordinator) DeadLetters(ctx context.Context) ([]*domain.QueuedOperation, error) {
	return c.queue.ListDeadLetters(ctx)
}

// ClearQueue discards every live operation without replaying it. Dead
// letters are kept. It refuses with domain.ErrSyncInProgress while a pass
// runs here or in another instance.
func (c *SyncCoordinator) ClearQueue(ctx context.Context) error {
	if !c.syncing.CompareAndSwap(false, true) {
		return domain.ErrSyncInProgress
	}
	defer c.finish(ctx)

	release, err := c.acquireLock(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := c.queue.Clear(ctx); err != nil {
		return fmt.Errorf("clear operation queue: %w", err)
	}
	c.logger.Warn("operation queue cleared")
	return nil
}

// IsSyncing reports whether a pass is in flight.
func (c *SyncCoordinator) IsSyncing() bool {
	return c.syncing.Load()
}

func (c *SyncCoordinator) drain(ctx context.Context) (*domain.SyncResult, error) {
	startedAt := c.now()

	ops, err := c.queue.DequeueAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot operation queue: %w", err)
	}

	total := len(ops)
	result := &domain.SyncResult{StartedAt: startedAt, Total: total}

	c.logger.Info("starting sync", "pending_operations", total)
	c.setProgress(ctx, 0)

	lastExtend := c.now()
	for i, op := range ops {
		c.process(ctx, op, result)

		c.setProgress(ctx, float64(i+1)/float64(total))

		if c.lock != nil && c.now().Sub(lastExtend) > c.lockTTL/2 {
			if err := c.lock.Extend(ctx, syncLockName, c.lockTTL); err != nil {
				c.logger.Warn("failed to extend sync lock", "error", err)
			}
			lastExtend = c.now()
		}
	}
	if total == 0 {
		c.setProgress(ctx, 1)
	}

	completedAt := c.now()
	result.CompletedAt = completedAt

	c.mu.Lock()
	c.lastSyncAt = &completedAt
	c.lastResult = result
	c.mu.Unlock()

	if c.stateStore != nil {
		persisted := &domain.PersistedSyncState{LastSyncAt: &completedAt, LastResult: result}
		if err := c.stateStore.Save(ctx, persisted); err != nil {
			c.logger.Warn("failed to persist sync state", "error", err)
		}
	}

	c.logger.Info("sync completed",
		"duration", result.Duration(),
		"total", result.Total,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"dead_lettered", result.DeadLettered,
	)

	return result, nil
}

// process replays one operation and records the outcome in the queue.
func (c *SyncCoordinator) process(ctx context.Context, op *domain.QueuedOperation, result *domain.SyncResult) {
	logger := c.logger.With(
		"operation_id", op.ID,
		"type", op.Type,
		"repository", op.RepositoryKey(),
		"item_id", op.Payload.ItemID,
	)

	err := c.replay(ctx, op)
	if err == nil {
		if rmErr := c.queue.Remove(ctx, op.ID); rmErr != nil {
			logger.Warn("replayed operation could not be removed", "error", rmErr)
		}
		result.Succeeded++
		return
	}

	result.Failed++
	op.RecordFailure(err)

	if op.Exhausted(c.maxAttempts) {
		logger.Error("operation exhausted retries, dead-lettering", "attempts", op.Attempts, "error", err)
		if dlErr := c.queue.DeadLetter(ctx, op); dlErr != nil {
			logger.Error("failed to dead-letter operation", "error", dlErr)
			return
		}
		result.DeadLettered++
		return
	}

	logger.Warn("operation replay failed", "attempts", op.Attempts, "error", err)
	if upErr := c.queue.Update(ctx, op); upErr != nil && !errors.Is(upErr, domain.ErrNotFound) {
		logger.Warn("failed to record replay failure", "error", upErr)
	}
}

func (c *SyncCoordinator) replay(ctx context.Context, op *domain.QueuedOperation) error {
	c.replayersMu.RLock()
	replayer, ok := c.replayers[op.RepositoryKey()]
	c.replayersMu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrNoReplayer, op.RepositoryKey())
	}
	return replayer.Replay(ctx, op)
}

// acquireLock takes the distributed lock if one is configured.
func (c *SyncCoordinator) acquireLock(ctx context.Context) (func(), error) {
	if c.lock == nil {
		return func() {}, nil
	}

	acquired, err := c.lock.Acquire(ctx, syncLockName, c.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !acquired {
		c.logger.Debug("sync lock held by another instance")
		return nil, domain.ErrSyncInProgress
	}

	return func() {
		if err := c.lock.Release(context.WithoutCancel(ctx), syncLockName); err != nil {
			c.logger.Warn("failed to release sync lock", "error", err)
		}
	}, nil
}

// finish marks the pass as done and publishes the final state.
func (c *SyncCoordinator) finish(ctx context.Context) {
	c.syncing.Store(false)
	c.refreshPending(ctx)
	c.updates.Publish(c.snapshot())
}

func (c *SyncCoordinator) setProgress(ctx context.Context, progress float64) {
	c.mu.Lock()
	c.progress = progress
	c.mu.Unlock()

	c.refreshPending(ctx)
	c.updates.Publish(c.snapshot())
}

func (c *SyncCoordinator) refreshPending(ctx context.Context) {
	count, err := c.queue.Count(ctx)
	if err != nil {
		c.logger.Debug("failed to count pending operations", "error", err)
		return
	}
	c.mu.Lock()
	c.pending = count
	c.mu.Unlock()
}

func (c *SyncCoordinator) snapshot() domain.SyncState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	syncing := c.syncing.Load()
	status := domain.SyncStatusIdle
	if syncing {
		status = domain.SyncStatusSyncing
	}

	return domain.SyncState{
		Status:            status,
		IsSyncing:         syncing,
		Progress:          c.progress,
		LastSyncAt:        c.lastSyncAt,
		PendingOperations: c.pending,
		LastResult:        c.lastResult,
	}
}
