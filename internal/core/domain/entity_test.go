package domain

import (
	"errors"
	"testing"
)

func TestNewItem(t *testing.T) {
	item := NewItem("Cordless Drill")

	if item.ID == "" {
		t.Error("expected ID to be generated")
	}
	if item.EntityID() != item.ID {
		t.Errorf("expected EntityID %s, got %s", item.ID, item.EntityID())
	}
	if item.Quantity != 1 {
		t.Errorf("expected default quantity 1, got %d", item.Quantity)
	}
	if item.CreatedAt.IsZero() || item.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestItem_Validate(t *testing.T) {
	tests := []struct {
		name    string
		item    Item
		wantErr bool
	}{
		{"valid", Item{ID: "1", Name: "Lamp", Quantity: 2}, false},
		{"zero quantity", Item{ID: "1", Name: "Lamp"}, false},
		{"missing id", Item{Name: "Lamp"}, true},
		{"missing name", Item{ID: "1"}, true},
		{"negative quantity", Item{ID: "1", Name: "Lamp", Quantity: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRepositoryChangeConstructors(t *testing.T) {
	item := Item{ID: "1", Name: "Lamp"}

	if c := Created(item); c.Kind != ChangeCreated || c.Item.ID != "1" {
		t.Errorf("unexpected created change: %+v", c)
	}
	if c := Updated(item); c.Kind != ChangeUpdated {
		t.Errorf("unexpected updated change: %+v", c)
	}
	if c := Deleted(item); c.Kind != ChangeDeleted {
		t.Errorf("unexpected deleted change: %+v", c)
	}
}
