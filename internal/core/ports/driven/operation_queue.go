package driven

import (
	"context"

	"github.com/homeinventory/inventory-sync/internal/core/domain"
)

// OperationQueue is the durable, ordered log of mutations made while offline.
// Implementations can use Redis (preferred) or Postgres (fallback).
// The queue never reorders and never interprets payloads.
type OperationQueue interface {
	// Enqueue appends an operation and persists it before returning.
	Enqueue(ctx context.Context, op *domain.QueuedOperation) error

	// DequeueAll returns every live operation in enqueue order.
	// It does not remove anything; callers Remove after a successful replay.
	DequeueAll(ctx context.Context) ([]*domain.QueuedOperation, error)

	// Remove deletes operations by ID. Unknown IDs are ignored.
	Remove(ctx context.Context, ids ...string) error

	// Update persists the retry bookkeeping of an operation in place.
	Update(ctx context.Context, op *domain.QueuedOperation) error

	// Count returns the number of live operations.
	Count(ctx context.Context) (int, error)

	// DeadLetter moves an operation out of the live queue so it is no longer replayed.
	// The stored record is replaced by op, keeping its final attempt count and error.
	// Returns domain.ErrNotFound if op is not in the live queue.
	DeadLetter(ctx context.Context, op *domain.QueuedOperation) error

	// ListDeadLetters returns dead-lettered operations, oldest first.
	ListDeadLetters(ctx context.Context) ([]*domain.QueuedOperation, error)

	// Clear drops every live operation.
	Clear(ctx context.Context) error

	// Ping checks if the queue backend is healthy.
	Ping(ctx context.Context) error
}
