package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T) *Table {
	reg, err := NewRegistry([]string{"openai", "anthropic", "gemini"})
	require.NoError(t, err)
	return NewTable(reg)
}

func TestNewTable_AllRecordsStartChecking(t *testing.T) {
	table := newTestTable(t)

	snapshot := table.Snapshot()
	assert.Len(t, snapshot, 3)

	for id, rec := range snapshot {
		assert.Equal(t, id, rec.ID)
		assert.Equal(t, StateChecking, rec.State)
		assert.False(t, rec.Connected)
		assert.NotEmpty(t, rec.DisplayName)
		assert.False(t, rec.LastUpdate.IsZero())
	}
}

func TestUpdate_MergesPartialPatch(t *testing.T) {
	table := newTestTable(t)

	table.Update("openai", Patch{
		State:       StatePtr(StateReady),
		Configured:  BoolPtr(true),
		SuccessRate: Float64Ptr(99.5),
	})

	// A patch touching only response time must leave the rest intact.
	table.Update("openai", Patch{ResponseTimeMs: Int64Ptr(120)})

	rec, ok := table.Get("openai")
	require.True(t, ok)
	assert.Equal(t, StateReady, rec.State)
	assert.True(t, rec.Configured)
	assert.Equal(t, 99.5, rec.SuccessRatePercent)
	require.NotNil(t, rec.ResponseTimeMs)
	assert.Equal(t, int64(120), *rec.ResponseTimeMs)
}

func TestUpdate_RecomputesConnected(t *testing.T) {
	table := newTestTable(t)

	testCases := []struct {
		name       string
		state      State
		configured bool
		connected  bool
	}{
		{name: "configured and ready", state: StateReady, configured: true, connected: true},
		{name: "ready but unconfigured", state: StateReady, configured: false, connected: false},
		{name: "configured but errored", state: StateError, configured: true, connected: false},
		{name: "configured but checking", state: StateChecking, configured: true, connected: false},
		{name: "configured but disconnected", state: StateDisconnected, configured: true, connected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			table.Update("openai", Patch{
				State:      StatePtr(tc.state),
				Configured: BoolPtr(tc.configured),
			})

			rec, ok := table.Get("openai")
			require.True(t, ok)
			assert.Equal(t, tc.connected, rec.Connected)
		})
	}
}

func TestUpdate_UnknownProviderDropped(t *testing.T) {
	table := newTestTable(t)

	table.Update("deepseek", Patch{State: StatePtr(StateReady)})

	_, ok := table.Get("deepseek")
	assert.False(t, ok)
	assert.Len(t, table.Snapshot(), 3)
}

func TestUpdate_ClampsSuccessRate(t *testing.T) {
	table := newTestTable(t)

	table.Update("openai", Patch{SuccessRate: Float64Ptr(150)})
	rec, _ := table.Get("openai")
	assert.Equal(t, float64(100), rec.SuccessRatePercent)

	table.Update("openai", Patch{SuccessRate: Float64Ptr(-5)})
	rec, _ = table.Get("openai")
	assert.Equal(t, float64(0), rec.SuccessRatePercent)
}

func TestUpdate_ErrorCounterMonotonic(t *testing.T) {
	table := newTestTable(t)

	table.Update("openai", Patch{IncrementErrors: true})
	table.Update("openai", Patch{IncrementErrors: true})
	table.Update("openai", Patch{State: StatePtr(StateReady)})

	rec, _ := table.Get("openai")
	assert.Equal(t, int64(2), rec.ErrorCount, "State changes must never touch the counter")

	table.ResetErrors("openai")
	rec, _ = table.Get("openai")
	assert.Equal(t, int64(0), rec.ErrorCount)
}

func TestMarkAllChecking(t *testing.T) {
	table := newTestTable(t)

	table.Update("openai", Patch{State: StatePtr(StateReady), Configured: BoolPtr(true)})
	table.MarkAllChecking()

	for _, rec := range table.Snapshot() {
		assert.Equal(t, StateChecking, rec.State)
		assert.False(t, rec.Connected)
	}
}

func TestCheckingSince(t *testing.T) {
	table := newTestTable(t)

	table.Update("openai", Patch{State: StatePtr(StateReady)})

	time.Sleep(5 * time.Millisecond)
	stale := table.CheckingSince(time.Now())

	assert.Len(t, stale, 2)
	assert.NotContains(t, stale, "openai")
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	table := newTestTable(t)

	table.Update("openai", Patch{ResponseTimeMs: Int64Ptr(42)})

	snapshot := table.Snapshot()
	rec := snapshot["openai"]
	*rec.ResponseTimeMs = 9999
	rec.State = StateError
	snapshot["openai"] = rec

	fresh, _ := table.Get("openai")
	assert.Equal(t, int64(42), *fresh.ResponseTimeMs, "Mutating a snapshot must not leak into the table")
	assert.Equal(t, StateChecking, fresh.State)
}
