package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/homeinventory/inventory-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Cache = (*Cache)(nil)

// Cache implements driven.Cache on the offline_cache table
type Cache struct {
	db *DB
}

// NewCache creates a new Postgres-backed Cache
func NewCache(db *DB) *Cache {
	return &Cache{db: db}
}

// Save upserts the JSON encoding of value
func (c *Cache) Save(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value %s: %w", key, err)
	}

	query := `
		INSERT INTO offline_cache (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := c.db.ExecContext(ctx, query, key, data); err != nil {
		return fmt.Errorf("save cache value %s: %w", key, err)
	}
	return nil
}

// Load decodes the stored value into dest; undecodable rows are a miss
func (c *Cache) Load(ctx context.Context, key string, dest any) (bool, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx, `SELECT value FROM offline_cache WHERE key = $1`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load cache value %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, nil
	}
	return true, nil
}

// Delete removes key
func (c *Cache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM offline_cache WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete cache value %s: %w", key, err)
	}
	return nil
}

// Size sums the stored payload bytes
func (c *Cache) Size(ctx context.Context) (int64, error) {
	var size int64
	err := c.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(octet_length(value)), 0) FROM offline_cache`).Scan(&size)
	if err != nil {
		return 0, fmt.Errorf("measure cache: %w", err)
	}
	return size, nil
}

// Clear removes every cached value
func (c *Cache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM offline_cache`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}
