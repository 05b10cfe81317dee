package domain

import (
	"errors"
	"testing"
)

type opTestItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestOperationTypeConstants(t *testing.T) {
	if OperationCreateItem != "createItem" {
		t.Errorf("expected createItem, got %s", OperationCreateItem)
	}
	if OperationUpdateItem != "updateItem" {
		t.Errorf("expected updateItem, got %s", OperationUpdateItem)
	}
	if OperationDeleteItem != "deleteItem" {
		t.Errorf("expected deleteItem, got %s", OperationDeleteItem)
	}
}

func TestOperationType_IsValid(t *testing.T) {
	tests := []struct {
		opType OperationType
		want   bool
	}{
		{OperationCreateItem, true},
		{OperationUpdateItem, true},
		{OperationDeleteItem, true},
		{OperationType("uploadPhoto"), false},
		{OperationType(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.opType), func(t *testing.T) {
			if got := tt.opType.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewQueuedOperation(t *testing.T) {
	item := opTestItem{ID: "item-1", Name: "Drill"}

	op, err := NewQueuedOperation(OperationCreateItem, "items", item.ID, item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if op.ID == "" {
		t.Error("expected ID to be assigned")
	}
	if op.Type != OperationCreateItem {
		t.Errorf("expected type createItem, got %s", op.Type)
	}
	if op.RepositoryKey() != "items" {
		t.Errorf("expected repository key items, got %s", op.RepositoryKey())
	}
	if op.Payload.ItemID != "item-1" {
		t.Errorf("expected item id item-1, got %s", op.Payload.ItemID)
	}
	if op.Payload.ItemType != "opTestItem" {
		t.Errorf("expected item type opTestItem, got %s", op.Payload.ItemType)
	}
	if op.EnqueuedAt.IsZero() {
		t.Error("expected EnqueuedAt to be set")
	}
	if op.Attempts != 0 {
		t.Errorf("expected 0 attempts, got %d", op.Attempts)
	}

	var decoded opTestItem
	if err := op.DecodeItem(&decoded); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if decoded != item {
		t.Errorf("expected %+v, got %+v", item, decoded)
	}
}

func TestNewQueuedOperation_PointerItemTypeName(t *testing.T) {
	op, err := NewQueuedOperation(OperationUpdateItem, "items", "item-1", &opTestItem{ID: "item-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op.Payload.ItemType != "opTestItem" {
		t.Errorf("expected item type opTestItem, got %s", op.Payload.ItemType)
	}
}

func TestNewQueuedOperation_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		op, err := NewQueuedOperation(OperationCreateItem, "items", "id", opTestItem{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[op.ID] {
			t.Fatalf("duplicate operation id %s", op.ID)
		}
		seen[op.ID] = true
	}
}

func TestNewQueuedOperation_InvalidInput(t *testing.T) {
	_, err := NewQueuedOperation(OperationType("syncData"), "items", "id", opTestItem{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown type, got %v", err)
	}

	_, err = NewQueuedOperation(OperationCreateItem, "", "id", opTestItem{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty repository key, got %v", err)
	}
}

func TestNewQueuedOperation_MarshalError(t *testing.T) {
	_, err := NewQueuedOperation(OperationCreateItem, "items", "id", make(chan int))
	if err == nil {
		t.Fatal("expected marshal error")
	}
}

func TestQueuedOperation_DecodeItem_Invalid(t *testing.T) {
	op := &QueuedOperation{ID: "op-1", Payload: OperationPayload{Item: []byte("{not json")}}

	var dest opTestItem
	if err := op.DecodeItem(&dest); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestQueuedOperation_RecordFailure(t *testing.T) {
	op := &QueuedOperation{ID: "op-1"}

	op.RecordFailure(errors.New("backend timeout"))

	if op.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", op.Attempts)
	}
	if op.LastError != "backend timeout" {
		t.Errorf("expected last error to be recorded, got %q", op.LastError)
	}
	if op.LastAttemptAt == nil {
		t.Error("expected LastAttemptAt to be set")
	}
}

func TestQueuedOperation_Exhausted(t *testing.T) {
	op := &QueuedOperation{Attempts: 3}

	if !op.Exhausted(3) {
		t.Error("expected exhausted at max attempts")
	}
	if op.Exhausted(4) {
		t.Error("expected not exhausted below max attempts")
	}
	if op.Exhausted(0) {
		t.Error("expected unbounded retries when max attempts is zero")
	}
}
