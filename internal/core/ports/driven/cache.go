package driven

import "context"

// Cache is a durable key-value mirror of entities and entity collections.
// Values are JSON-serialized. The cache is unbounded and never evicts;
// callers own key hygiene ("{repositoryKey}_{id}" and "{repositoryKey}_all").
type Cache interface {
	// Save serializes value and stores it under key, overwriting any prior value.
	// Serialization errors are returned.
	Save(ctx context.Context, key string, value any) error

	// Load decodes the value stored under key into dest.
	// Returns false, nil when the key is missing or the stored bytes cannot be
	// decoded into dest. An error means the backend itself failed.
	Load(ctx context.Context, key string, dest any) (bool, error)

	// Delete removes key. A missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Size returns the total size in bytes of all cached values.
	Size(ctx context.Context) (int64, error)

	// Clear removes every cached value.
	Clear(ctx context.Context) error
}
