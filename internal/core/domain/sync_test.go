package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSyncStatusConstants(t *testing.T) {
	if SyncStatusIdle != "idle" {
		t.Errorf("expected SyncStatusIdle = 'idle', got %s", SyncStatusIdle)
	}
	if SyncStatusSyncing != "syncing" {
		t.Errorf("expected SyncStatusSyncing = 'syncing', got %s", SyncStatusSyncing)
	}
}

func TestSyncResult_Success(t *testing.T) {
	result := &SyncResult{Total: 3, Succeeded: 3}
	if !result.Success() {
		t.Error("expected success when nothing failed")
	}

	result.Failed = 1
	if result.Success() {
		t.Error("expected failure when an operation failed")
	}
}

func TestSyncResult_Duration(t *testing.T) {
	start := time.Date(2025, 6, 25, 10, 0, 0, 0, time.UTC)
	result := &SyncResult{StartedAt: start, CompletedAt: start.Add(1500 * time.Millisecond)}

	if result.Duration() != 1500*time.Millisecond {
		t.Errorf("expected 1.5s, got %v", result.Duration())
	}
}

func TestSyncState_JSON(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	state := SyncState{
		Status:            SyncStatusIdle,
		Progress:          1.0,
		LastSyncAt:        &now,
		PendingOperations: 2,
	}

	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, field := range []string{"status", "is_syncing", "progress", "last_sync_at", "pending_operations"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("expected field %s in JSON", field)
		}
	}
	if _, ok := raw["last_result"]; ok {
		t.Error("expected last_result to be omitted when nil")
	}
}
