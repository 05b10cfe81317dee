package domain

import "time"

// ConnectivityStatus describes what the reachability monitor last observed
type ConnectivityStatus struct {
	Connected           bool       `json:"connected"`
	LastCheckedAt       *time.Time `json:"last_checked_at,omitempty"`
	LastChangedAt       *time.Time `json:"last_changed_at,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastError           string     `json:"last_error,omitempty"`
}
