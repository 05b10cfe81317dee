package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	pgstore "github.com/homeinventory/inventory-sync/internal/adapters/driven/postgres"
	"github.com/homeinventory/inventory-sync/internal/core/domain"
	"github.com/homeinventory/inventory-sync/internal/core/ports/driven"
)

// Ensure Queue implements OperationQueue
var _ driven.OperationQueue = (*Queue)(nil)

// Queue implements OperationQueue on the offline_operations table.
// Order comes from the BIGSERIAL seq column; dead letters stay in the table
// with dead_lettered_at set. This is the fallback when Redis is not available.
type Queue struct {
	db *pgstore.DB
}

// NewQueue creates a new PostgreSQL-backed operation queue.
// Assumes the schema has been initialized.
func NewQueue(db *pgstore.DB) *Queue {
	return &Queue{db: db}
}

const selectOperation = `
	SELECT id, type, payload, enqueued_at, attempts, last_error, last_attempt_at
	FROM offline_operations
`

// Enqueue appends an operation
func (q *Queue) Enqueue(ctx context.Context, op *domain.QueuedOperation) error {
	if op == nil {
		return errors.New("operation is required")
	}

	payload, err := json.Marshal(op.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO offline_operations (id, type, payload, enqueued_at, attempts, last_error, last_attempt_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = q.db.ExecContext(ctx, query,
		op.ID,
		string(op.Type),
		payload,
		op.EnqueuedAt,
		op.Attempts,
		pgstore.NullString(op.LastError),
		pgstore.NullTime(op.LastAttemptAt),
	)
	if err != nil {
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

// DequeueAll returns live operations in enqueue order
func (q *Queue) DequeueAll(ctx context.Context) ([]*domain.QueuedOperation, error) {
	return q.list(ctx, selectOperation+` WHERE dead_lettered_at IS NULL ORDER BY seq`)
}

// Remove deletes operations by ID
func (q *Queue) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := q.db.ExecContext(ctx, `DELETE FROM offline_operations WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("delete operations: %w", err)
	}
	return nil
}

// Update persists retry bookkeeping of a live operation
func (q *Queue) Update(ctx context.Context, op *domain.QueuedOperation) error {
	query := `
		UPDATE offline_operations
		SET attempts = $2, last_error = $3, last_attempt_at = $4
		WHERE id = $1 AND dead_lettered_at IS NULL
	`
	result, err := q.db.ExecContext(ctx, query,
		op.ID,
		op.Attempts,
		pgstore.NullString(op.LastError),
		pgstore.NullTime(op.LastAttemptAt),
	)
	if err != nil {
		return fmt.Errorf("update operation: %w", err)
	}
	return expectOneRow(result)
}

// Count returns the number of live operations
func (q *Queue) Count(ctx context.Context) (int, error) {
	var count int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM offline_operations WHERE dead_lettered_at IS NULL`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count operations: %w", err)
	}
	return count, nil
}

// DeadLetter marks a live operation as dead, persisting its final retry bookkeeping
func (q *Queue) DeadLetter(ctx context.Context, op *domain.QueuedOperation) error {
	if op == nil {
		return errors.New("operation is required")
	}

	query := `
		UPDATE offline_operations
		SET dead_lettered_at = NOW(), attempts = $2, last_error = $3, last_attempt_at = $4
		WHERE id = $1 AND dead_lettered_at IS NULL
	`
	result, err := q.db.ExecContext(ctx, query,
		op.ID,
		op.Attempts,
		pgstore.NullString(op.LastError),
		pgstore.NullTime(op.LastAttemptAt),
	)
	if err != nil {
		return fmt.Errorf("dead-letter operation: %w", err)
	}
	return expectOneRow(result)
}

// ListDeadLetters returns dead operations, oldest first
func (q *Queue) ListDeadLetters(ctx context.Context) ([]*domain.QueuedOperation, error) {
	return q.list(ctx, selectOperation+` WHERE dead_lettered_at IS NOT NULL ORDER BY dead_lettered_at, seq`)
}

// Clear drops every live operation
func (q *Queue) Clear(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM offline_operations WHERE dead_lettered_at IS NULL`); err != nil {
		return fmt.Errorf("clear operations: %w", err)
	}
	return nil
}

// Ping checks database connectivity
func (q *Queue) Ping(ctx context.Context) error {
	return q.db.PingContext(ctx)
}

func (q *Queue) list(ctx context.Context, query string) ([]*domain.QueuedOperation, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	ops := make([]*domain.QueuedOperation, 0)
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return ops, nil
}

func scanOperation(rows *sql.Rows) (*domain.QueuedOperation, error) {
	var op domain.QueuedOperation
	var opType string
	var payload []byte
	var lastError sql.NullString
	var lastAttemptAt sql.NullTime

	if err := rows.Scan(&op.ID, &opType, &payload, &op.EnqueuedAt, &op.Attempts, &lastError, &lastAttemptAt); err != nil {
		return nil, fmt.Errorf("scan operation: %w", err)
	}
	if err := json.Unmarshal(payload, &op.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload of %s: %w", op.ID, err)
	}

	op.Type = domain.OperationType(opType)
	op.LastError = lastError.String
	op.LastAttemptAt = pgstore.TimePtr(lastAttemptAt)
	return &op, nil
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
