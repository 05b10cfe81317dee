package driven

import (
	"context"

	"github.com/homeinventory/inventory-sync/internal/core/domain"
)

// Reachability reports whether the online backend can be reached.
// It has no mutation surface. When connectivity cannot be determined
// implementations must report false.
type Reachability interface {
	// IsConnected returns the current (debounced) connectivity.
	IsConnected() bool

	// Subscribe registers for connectivity transitions.
	// Every value sent differs from the previous one.
	// The returned function unsubscribes and closes the channel.
	Subscribe(buffer int) (<-chan bool, func())
}

// Prober performs one connectivity check against the backend.
type Prober interface {
	Probe(ctx context.Context) error
}

// ReachabilityStatus is implemented by monitors that expose probe diagnostics.
type ReachabilityStatus interface {
	Status() domain.ConnectivityStatus
}
