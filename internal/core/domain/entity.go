package domain

import "time"

// Entity is anything an offline repository can cache and queue.
// Implementations must be JSON-serializable and uniquely identified.
type Entity interface {
	EntityID() string
}

// Item is an inventory item
type Item struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Category      string    `json:"category,omitempty"`
	Location      string    `json:"location,omitempty"`
	Quantity      int       `json:"quantity"`
	PurchasePrice float64   `json:"purchase_price,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// EntityID implements Entity
func (i Item) EntityID() string {
	return i.ID
}

// NewItem creates an item with a fresh ID
func NewItem(name string) Item {
	now := time.Now()
	return Item{
		ID:        GenerateID(),
		Name:      name,
		Quantity:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the minimal invariants of an item
func (i Item) Validate() error {
	if i.ID == "" || i.Name == "" || i.Quantity < 0 {
		return ErrInvalidInput
	}
	return nil
}
