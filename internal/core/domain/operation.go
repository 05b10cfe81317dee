package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	return uuid.NewString()
}

// OperationType identifies the kind of deferred mutation
type OperationType string

const (
	// OperationCreateItem replays a save of an item the backend has not seen
	OperationCreateItem OperationType = "createItem"
	// OperationUpdateItem replays a save of an item that already existed
	OperationUpdateItem OperationType = "updateItem"
	// OperationDeleteItem replays a delete
	OperationDeleteItem OperationType = "deleteItem"
)

// IsValid reports whether t is a known operation type
func (t OperationType) IsValid() bool {
	switch t {
	case OperationCreateItem, OperationUpdateItem, OperationDeleteItem:
		return true
	}
	return false
}

// OperationPayload is the opaque body of a queued operation.
// The queue store never interprets it; the owning repository decodes Item.
type OperationPayload struct {
	// RepositoryKey is the cache key of the wrapped repository that produced the operation
	RepositoryKey string `json:"repository_key"`

	// ItemType is the Go type name of the serialized entity (diagnostics only)
	ItemType string `json:"item_type"`

	// ItemID is the entity ID, used for coalescing
	ItemID string `json:"item_id"`

	// Item is the JSON-encoded entity
	Item json.RawMessage `json:"item"`
}

// QueuedOperation represents one mutation made while offline, waiting for replay.
type QueuedOperation struct {
	// ID is assigned at enqueue time
	ID string `json:"id"`

	// Type is the kind of mutation
	Type OperationType `json:"type"`

	// Payload carries the serialized entity and the target repository
	Payload OperationPayload `json:"payload"`

	// EnqueuedAt is when the mutation happened locally
	EnqueuedAt time.Time `json:"enqueued_at"`

	// Attempts counts failed replays
	Attempts int `json:"attempts"`

	// LastError holds the error of the most recent failed replay
	LastError string `json:"last_error,omitempty"`

	// LastAttemptAt is when the last replay was attempted (nil if never)
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
}

// NewQueuedOperation serializes item and wraps it into an operation for repositoryKey.
func NewQueuedOperation(opType OperationType, repositoryKey, itemID string, item any) (*QueuedOperation, error) {
	if !opType.IsValid() {
		return nil, fmt.Errorf("%w: unknown operation type %q", ErrInvalidInput, opType)
	}
	if repositoryKey == "" {
		return nil, fmt.Errorf("%w: repository key is required", ErrInvalidInput)
	}

	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("marshal operation item: %w", err)
	}

	return &QueuedOperation{
		ID:   GenerateID(),
		Type: opType,
		Payload: OperationPayload{
			RepositoryKey: repositoryKey,
			ItemType:      typeName(item),
			ItemID:        itemID,
			Item:          data,
		},
		EnqueuedAt: time.Now(),
	}, nil
}

// RepositoryKey returns the repository the operation must be replayed against
func (o *QueuedOperation) RepositoryKey() string {
	return o.Payload.RepositoryKey
}

// DecodeItem unmarshals the payload entity into dest
func (o *QueuedOperation) DecodeItem(dest any) error {
	if err := json.Unmarshal(o.Payload.Item, dest); err != nil {
		return fmt.Errorf("decode %s payload of operation %s: %w", o.Payload.ItemType, o.ID, err)
	}
	return nil
}

// RecordFailure bumps the attempt counter after a failed replay
func (o *QueuedOperation) RecordFailure(err error) {
	now := time.Now()
	o.Attempts++
	o.LastAttemptAt = &now
	if err != nil {
		o.LastError = err.Error()
	}
}

// Exhausted reports whether the operation reached maxAttempts.
// A non-positive maxAttempts means retry forever.
func (o *QueuedOperation) Exhausted(maxAttempts int) bool {
	return maxAttempts > 0 && o.Attempts >= maxAttempts
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
