package coordinator

import "time"

// Scan/test lifecycle states as persisted to history.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Trigger sources for a scan cycle.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerStartup  = "startup"
)

// ScanStatus holds the outcome of one full-scan refresh cycle.
type ScanStatus struct {
	ID               string    `json:"id"`
	Trigger          string    `json:"trigger"`
	Status           string    `json:"status"` // "running", "completed", "failed"
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time,omitempty"`
	CacheHit         bool      `json:"cache_hit"`
	ProvidersUpdated []string  `json:"providers_updated,omitempty"`
	ProvidersMissing []string  `json:"providers_missing,omitempty"`
	Error            string    `json:"error,omitempty"`
}

// TestStatus holds the outcome of one manual provider test.
type TestStatus struct {
	ID             string    `json:"id"`
	ProviderID     string    `json:"provider_id"`
	Status         string    `json:"status"`
	Success        bool      `json:"success"`
	Cached         bool      `json:"cached"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time,omitempty"`
	Error          string    `json:"error,omitempty"`
}
