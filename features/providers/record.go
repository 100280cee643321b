package providers

import "time"

// State is the lifecycle state of a provider status record.
type State string

const (
	StateChecking     State = "checking"
	StateReady        State = "ready"
	StateDisconnected State = "disconnected"
	StateUnconfigured State = "unconfigured"
	StateError        State = "error"
)

// StatusRecord is the mutable status of a single upstream AI provider.
// One record exists per registered provider id for the whole process
// lifetime; records are overwritten in place, never deleted.
type StatusRecord struct {
	ID                 string     `json:"id"`
	DisplayName        string     `json:"display_name"`
	State              State      `json:"state"`
	Connected          bool       `json:"connected"`
	Configured         bool       `json:"configured"`
	ResponseTimeMs     *int64     `json:"response_time_ms,omitempty"`
	SuccessRatePercent float64    `json:"success_rate_percent"`
	LastUpdate         time.Time  `json:"last_update"`
	LastActive         *time.Time `json:"last_active,omitempty"`
	ErrorCount         int64      `json:"error_count"`
}

// Patch carries a partial update for a status record. Nil fields are left
// untouched by Table.Update.
type Patch struct {
	State          *State
	Configured     *bool
	ResponseTimeMs *int64
	SuccessRate    *float64
	LastActive     *time.Time

	// IncrementErrors bumps the monotonic error counter; the counter is
	// only ever reset through Table.ResetErrors.
	IncrementErrors bool
}

func StatePtr(s State) *State        { return &s }
func BoolPtr(b bool) *bool           { return &b }
func Int64Ptr(v int64) *int64        { return &v }
func Float64Ptr(v float64) *float64  { return &v }
func TimePtr(t time.Time) *time.Time { return &t }
