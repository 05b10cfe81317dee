package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/homeinventory/inventory-sync/internal/core/domain"
	"github.com/homeinventory/inventory-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SyncStateStore = (*SyncStateStore)(nil)

// SyncStateStore implements driven.SyncStateStore on the single-row sync_state table
type SyncStateStore struct {
	db *DB
}

// NewSyncStateStore creates a new SyncStateStore
func NewSyncStateStore(db *DB) *SyncStateStore {
	return &SyncStateStore{db: db}
}

// Save creates or replaces the persisted state
func (s *SyncStateStore) Save(ctx context.Context, state *domain.PersistedSyncState) error {
	var result []byte
	if state.LastResult != nil {
		var err error
		result, err = json.Marshal(state.LastResult)
		if err != nil {
			return fmt.Errorf("marshal sync result: %w", err)
		}
	}

	query := `
		INSERT INTO sync_state (id, last_sync_at, last_result, updated_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET
			last_sync_at = EXCLUDED.last_sync_at,
			last_result = EXCLUDED.last_result,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, NullTime(state.LastSyncAt), result); err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}
	return nil
}

// Get returns the persisted state, or domain.ErrNotFound before the first Save
func (s *SyncStateStore) Get(ctx context.Context) (*domain.PersistedSyncState, error) {
	var lastSyncAt sql.NullTime
	var result []byte

	err := s.db.QueryRowContext(ctx, `SELECT last_sync_at, last_result FROM sync_state WHERE id = 1`).
		Scan(&lastSyncAt, &result)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sync state: %w", err)
	}

	state := &domain.PersistedSyncState{LastSyncAt: TimePtr(lastSyncAt)}
	if len(result) > 0 {
		var r domain.SyncResult
		if err := json.Unmarshal(result, &r); err != nil {
			return nil, fmt.Errorf("unmarshal sync result: %w", err)
		}
		state.LastResult = &r
	}
	return state, nil
}
