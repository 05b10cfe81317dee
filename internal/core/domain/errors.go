package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoOfflineData indicates a read could not be served from the network
	// and no cached copy exists
	ErrNoOfflineData = errors.New("no offline data available")

	// ErrSyncInProgress indicates a sync is already running
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrNetworkUnavailable indicates the backend is not reachable
	ErrNetworkUnavailable = errors.New("network connection is not available")

	// ErrNoReplayer indicates a queued operation targets a repository that is not registered
	ErrNoReplayer = errors.New("no replayer registered for repository")
)
