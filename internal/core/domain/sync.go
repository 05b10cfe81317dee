package domain

import "time"

// SyncStatus represents the current state of the sync coordinator
type SyncStatus string

const (
	SyncStatusIdle    SyncStatus = "idle"
	SyncStatusSyncing SyncStatus = "syncing"
)

// SyncState is the observable state of the sync coordinator
type SyncState struct {
	Status            SyncStatus  `json:"status"`
	IsSyncing         bool        `json:"is_syncing"`
	Progress          float64     `json:"progress"` // 0.0 - 1.0
	LastSyncAt        *time.Time  `json:"last_sync_at,omitempty"`
	PendingOperations int         `json:"pending_operations"`
	LastResult        *SyncResult `json:"last_result,omitempty"`
}

// SyncResult summarizes one drain pass
type SyncResult struct {
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
	Total        int       `json:"total"`
	Succeeded    int       `json:"succeeded"`
	Failed       int       `json:"failed"`
	DeadLettered int       `json:"dead_lettered"`
}

// Success reports whether every operation of the pass was replayed
func (r *SyncResult) Success() bool {
	return r.Failed == 0
}

// Duration returns how long the pass took
func (r *SyncResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// PersistedSyncState is the subset of SyncState that survives restarts
type PersistedSyncState struct {
	LastSyncAt *time.Time  `json:"last_sync_at,omitempty"`
	LastResult *SyncResult `json:"last_result,omitempty"`
}
