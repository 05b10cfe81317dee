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

const (
	// Lists of operation IDs, in enqueue order
	queueKey     = "inventory:queue"
	deadQueueKey = "inventory:queue:dead"

	// Operation bodies, one JSON string per operation
	opKeyPrefix = "inventory:op:"
)

// Verify interface compliance
var _ driven.OperationQueue = (*Queue)(nil)

// Queue implements OperationQueue with a Redis list of operation IDs plus one
// key per operation body. Keeping bodies outside the list lets Update rewrite
// retry bookkeeping without touching the order.
type Queue struct {
	client *redis.Client
}

// NewQueue creates a new Redis-backed operation queue.
func NewQueue(client *redis.Client) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &Queue{client: client}, nil
}

// Enqueue appends an operation to the tail of the queue.
func (q *Queue) Enqueue(ctx context.Context, op *domain.QueuedOperation) error {
	if op == nil {
		return errors.New("operation is required")
	}

	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to marshal operation: %w", err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, opKeyPrefix+op.ID, data, 0)
		pipe.RPush(ctx, queueKey, op.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue operation %s: %w", op.ID, err)
	}
	return nil
}

// DequeueAll returns every live operation in enqueue order without removing them.
func (q *Queue) DequeueAll(ctx context.Context) ([]*domain.QueuedOperation, error) {
	return q.load(ctx, queueKey)
}

// Remove drops operations by ID.
func (q *Queue) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.LRem(ctx, queueKey, 0, id)
			pipe.Del(ctx, opKeyPrefix+id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove operations: %w", err)
	}
	return nil
}

// Update rewrites the stored body of a queued operation.
func (q *Queue) Update(ctx context.Context, op *domain.QueuedOperation) error {
	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to marshal operation: %w", err)
	}

	updated, err := q.client.SetXX(ctx, opKeyPrefix+op.ID, data, redis.KeepTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to update operation %s: %w", op.ID, err)
	}
	if !updated {
		return domain.ErrNotFound
	}
	return nil
}

// Count returns the number of live operations.
func (q *Queue) Count(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, queueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count operations: %w", err)
	}
	return int(n), nil
}

// moveToDead drops an ID from the live list and, only if it was there,
// rewrites the body and appends the ID to the dead-letter list.
var moveToDead = redis.NewScript(`
if redis.call("LREM", KEYS[1], 0, ARGV[1]) == 0 then
	return 0
end
redis.call("SET", KEYS[2], ARGV[2])
redis.call("RPUSH", KEYS[3], ARGV[1])
return 1
`)

// DeadLetter moves an operation from the live queue to the dead-letter list,
// storing op as given so its final retry bookkeeping is kept.
func (q *Queue) DeadLetter(ctx context.Context, op *domain.QueuedOperation) error {
	if op == nil {
		return errors.New("operation is required")
	}

	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to marshal operation: %w", err)
	}

	moved, err := moveToDead.Run(ctx, q.client,
		[]string{queueKey, opKeyPrefix + op.ID, deadQueueKey},
		op.ID, data,
	).Int64()
	if err != nil {
		return fmt.Errorf("failed to dead-letter operation %s: %w", op.ID, err)
	}
	if moved == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListDeadLetters returns dead-lettered operations, oldest first.
func (q *Queue) ListDeadLetters(ctx context.Context) ([]*domain.QueuedOperation, error) {
	return q.load(ctx, deadQueueKey)
}

// Clear drops every live operation. Dead letters are kept for inspection.
func (q *Queue) Clear(ctx context.Context) error {
	ids, err := q.client.LRange(ctx, queueKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list operations: %w", err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, opKeyPrefix+id)
		}
		pipe.Del(ctx, queueKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}

// Ping checks if Redis is reachable.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// load resolves the IDs in list into operation bodies. IDs whose body has
// vanished are skipped.
func (q *Queue) load(ctx context.Context, list string) ([]*domain.QueuedOperation, error) {
	ids, err := q.client.LRange(ctx, list, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}

	ops := make([]*domain.QueuedOperation, 0, len(ids))
	if len(ids) == 0 {
		return ops, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = opKeyPrefix + id
	}
	values, err := q.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load operations: %w", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var op domain.QueuedOperation
		if err := json.Unmarshal([]byte(raw), &op); err != nil {
			return nil, fmt.Errorf("failed to unmarshal operation %s: %w", ids[i], err)
		}
		ops = append(ops, &op)
	}
	return ops, nil
}
