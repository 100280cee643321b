package providers

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Table is the source of truth for provider status. Update is the only
// mutation path; every write recomputes the derived connected flag so it can
// never drift from configured + lifecycle state.
type Table struct {
	mu       sync.RWMutex
	registry *Registry
	records  map[string]*StatusRecord
}

func NewTable(registry *Registry) *Table {
	t := &Table{
		registry: registry,
		records:  make(map[string]*StatusRecord, registry.Len()),
	}

	now := time.Now()
	for _, id := range registry.IDs() {
		t.records[id] = &StatusRecord{
			ID:          id,
			DisplayName: registry.DisplayName(id),
			State:       StateChecking,
			Connected:   false,
			LastUpdate:  now,
		}
	}

	return t
}

func (t *Table) Registry() *Registry {
	return t.registry
}

// Get returns a copy of the record for the given id.
func (t *Table) Get(id string) (StatusRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.records[id]
	if !ok {
		return StatusRecord{}, false
	}
	return cloneRecord(rec), true
}

// Snapshot returns a deep copy of every record keyed by provider id.
func (t *Table) Snapshot() map[string]StatusRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]StatusRecord, len(t.records))
	for id, rec := range t.records {
		out[id] = cloneRecord(rec)
	}
	return out
}

// Update merges the patch into the record and stamps LastUpdate. Unknown ids
// are logged and ignored; status sources are untrusted external data and must
// not be able to grow the table.
func (t *Table) Update(id string, patch Patch) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[id]
	if !ok {
		log.Warn().Str("provider", id).Msg("Status update for unknown provider, dropping")
		return
	}

	if patch.State != nil {
		rec.State = *patch.State
	}
	if patch.Configured != nil {
		rec.Configured = *patch.Configured
	}
	if patch.ResponseTimeMs != nil {
		rec.ResponseTimeMs = Int64Ptr(*patch.ResponseTimeMs)
	}
	if patch.SuccessRate != nil {
		rec.SuccessRatePercent = clampRate(*patch.SuccessRate)
	}
	if patch.LastActive != nil {
		rec.LastActive = TimePtr(*patch.LastActive)
	}
	if patch.IncrementErrors {
		rec.ErrorCount++
	}

	rec.Connected = rec.Configured && rec.State == StateReady
	rec.LastUpdate = time.Now()
}

// MarkAllChecking flips every record to the checking state in one pass. The
// coordinator calls this at the start of each scan cycle so observers see an
// immediate in-progress signal instead of stale data.
func (t *Table) MarkAllChecking() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for _, rec := range t.records {
		rec.State = StateChecking
		rec.Connected = false
		rec.LastUpdate = now
	}
}

// ResetErrors zeroes the error counter for the given provider. This is the
// only way the counter ever goes down.
func (t *Table) ResetErrors(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[id]
	if !ok {
		log.Warn().Str("provider", id).Msg("Error reset for unknown provider, dropping")
		return
	}

	rec.ErrorCount = 0
	rec.LastUpdate = time.Now()
}

// CheckingSince returns the ids of records that have been sitting in the
// checking state since before the given cutoff. Used by the staleness
// watchdog.
func (t *Table) CheckingSince(cutoff time.Time) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var stale []string
	for id, rec := range t.records {
		if rec.State == StateChecking && rec.LastUpdate.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	return stale
}

func cloneRecord(rec *StatusRecord) StatusRecord {
	out := *rec
	if rec.ResponseTimeMs != nil {
		out.ResponseTimeMs = Int64Ptr(*rec.ResponseTimeMs)
	}
	if rec.LastActive != nil {
		out.LastActive = TimePtr(*rec.LastActive)
	}
	return out
}

func clampRate(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	if rate > 100 {
		return 100
	}
	return rate
}
