package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"provwatch/features/cache"
	"provwatch/features/providers"
	"provwatch/internal/collector"
	"provwatch/internal/config"
	"provwatch/internal/netclient"

	"github.com/alitto/pond/v2"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Coordinator errors
var (
	ErrBulkFetchFailed = errors.New("bulk status fetch failed")
	ErrUnknownProvider = errors.New("provider not in registry")
)

const scanCacheKeyPrefix = "scan:bulk"

// HistoryRecorder is the persistence hook for scan and test outcomes. The
// sqlite repository satisfies it; a nil recorder disables history.
type HistoryRecorder interface {
	InsertScan(ctx context.Context, status *ScanStatus) error
	UpdateScanStatus(ctx context.Context, status *ScanStatus) error
	InsertTest(ctx context.Context, status *TestStatus) error
}

// Coordinator owns the provider status refresh machinery: the full-scan
// update path guarded by the scan lock, and the manual test path guarded by
// the pending set. Both write through the status table and fan results out on
// the bus.
type Coordinator struct {
	table   *providers.Table
	store   *cache.BucketStore
	client  netclient.Client
	bus     *Bus
	history HistoryRecorder
	cfg     *config.Config

	scanning atomic.Bool
	scanMu   sync.Mutex
	pending  *PendingSet
	pool     pond.Pool
}

func NewCoordinator(
	table *providers.Table,
	store *cache.BucketStore,
	client netclient.Client,
	bus *Bus,
	cfg *config.Config,
) *Coordinator {
	concurrency := cfg.Coordinator.TestConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Coordinator{
		table:   table,
		store:   store,
		client:  client,
		bus:     bus,
		cfg:     cfg,
		pending: NewPendingSet(),
		pool:    pond.NewPool(concurrency),
	}
}

// SetHistoryRecorder wires the optional persistence hook.
func (c *Coordinator) SetHistoryRecorder(history HistoryRecorder) {
	c.history = history
}

func (c *Coordinator) Table() *providers.Table {
	return c.table
}

func (c *Coordinator) Bus() *Bus {
	return c.bus
}

// IsScanning reports whether a full scan is currently executing.
func (c *Coordinator) IsScanning() bool {
	return c.scanning.Load()
}

// PendingTests returns the number of manual tests in flight.
func (c *Coordinator) PendingTests() int {
	return c.pending.Len()
}

// RefreshAll runs one full-scan refresh cycle. The call is a deliberate
// no-op when a scan is already in flight or any manual test is pending:
// staleness is bounded by the next scheduler tick, and queuing would only
// reorder, not reduce, total work. Returns whether a scan actually ran.
func (c *Coordinator) RefreshAll(ctx context.Context, trigger string) (bool, error) {
	if n := c.pending.Len(); n > 0 {
		log.Debug().Int("pending_tests", n).Str("trigger", trigger).Msg("Refresh skipped, manual tests in flight")
		c.recordScanSkipped()
		return false, nil
	}

	if !c.tryAcquireScanLock() {
		log.Debug().Str("trigger", trigger).Msg("Refresh skipped, scan already in flight")
		c.recordScanSkipped()
		return false, nil
	}
	defer c.releaseScanLock()

	startedAt := time.Now()
	scanID := xid.New().String()

	tracer := otel.Tracer("provwatch/coordinator")
	ctx, span := tracer.Start(ctx, "coordinator.refresh_all",
		trace.WithAttributes(
			attribute.String("scan_id", scanID),
			attribute.String("trigger", trigger),
		),
	)
	defer span.End()

	scanLogger := log.With().
		Str("scan_id", scanID).
		Str("trigger", trigger).
		Logger()

	scanLogger.Info().Time("starts", startedAt).Msg("Starting full provider status scan")

	status := &ScanStatus{
		ID:        scanID,
		Trigger:   trigger,
		Status:    StatusRunning,
		StartTime: startedAt,
	}
	c.insertScanHistory(ctx, status)

	if mc, err := collector.GetMetricsCollector(); err == nil {
		mc.ScanStarted()
	}

	// Flip every record to checking before the network round-trip so
	// observers see an immediate in-progress signal instead of stale data.
	c.table.MarkAllChecking()
	c.publishSnapshot()

	payload, cacheHit, err := c.loadBulkStatus(ctx)
	status.CacheHit = cacheHit
	if err != nil {
		// The records were already rolled to checking; they stay visibly
		// checking until the next tick succeeds or the watchdog flags them.
		span.RecordError(err)
		scanLogger.Error().Err(err).Msg("Bulk status fetch failed, aborting scan cycle")

		status.Status = StatusFailed
		status.EndTime = time.Now()
		status.Error = err.Error()
		c.updateScanHistory(ctx, status)

		if mc, mErr := collector.GetMetricsCollector(); mErr == nil {
			mc.ScanFailed(time.Since(startedAt))
		}
		return true, errors.Join(ErrBulkFetchFailed, err)
	}

	updated, missing := c.applyBulkStatus(payload)
	c.publishSnapshot()
	span.AddEvent("bulk status applied")

	status.Status = StatusCompleted
	status.EndTime = time.Now()
	status.ProvidersUpdated = updated
	status.ProvidersMissing = missing
	c.updateScanHistory(ctx, status)

	if mc, mErr := collector.GetMetricsCollector(); mErr == nil {
		mc.ScanSucceeded(time.Since(startedAt))
	}

	scanLogger.Info().
		Bool("cache_hit", cacheHit).
		Strs("updated", updated).
		Strs("missing", missing).
		Dur("duration", time.Since(startedAt)).
		Msg("Full provider status scan finished")

	return true, nil
}

// FlagStaleChecking marks records stuck in checking since before the cutoff
// as errored. This is the watchdog extension for cycles that keep failing.
func (c *Coordinator) FlagStaleChecking(staleAfter time.Duration) []string {
	if staleAfter <= 0 {
		return nil
	}

	stale := c.table.CheckingSince(time.Now().Add(-staleAfter))
	if len(stale) == 0 {
		return nil
	}

	for _, id := range stale {
		log.Warn().Str("provider", id).Dur("stale_after", staleAfter).Msg("Provider stuck in checking, flagging as error")
		c.table.Update(id, providers.Patch{
			State:           providers.StatePtr(providers.StateError),
			IncrementErrors: true,
		})
	}
	c.publishSnapshot()

	return stale
}

// tryAcquireScanLock claims the scan lock. Fast path on the atomic, double
// checked under the mutex.
func (c *Coordinator) tryAcquireScanLock() bool {
	if c.scanning.Load() {
		return false
	}

	c.scanMu.Lock()
	defer c.scanMu.Unlock()

	if c.scanning.Load() {
		return false
	}
	c.scanning.Store(true)
	return true
}

// releaseScanLock frees the lock after a short fixed grace delay. The delay
// keeps a caller arriving right behind the notification fan-out from
// re-entering before downstream listeners settle; with a zero delay the
// release is immediate.
func (c *Coordinator) releaseScanLock() {
	delay := c.cfg.Coordinator.ReleaseGraceDelay
	if delay <= 0 {
		c.scanning.Store(false)
		return
	}
	time.AfterFunc(delay, func() {
		c.scanning.Store(false)
	})
}

// loadBulkStatus returns the bulk payload from the bucketed cache when the
// current window already holds one, falling through to a single network call
// otherwise. Fetch failures are never memoized, so the next caller in the
// same window retries instead of being pinned to a failure.
func (c *Coordinator) loadBulkStatus(ctx context.Context) (netclient.BulkStatus, bool, error) {
	key := cache.BucketKey(scanCacheKeyPrefix, time.Now(), c.cfg.Cache.ScanBucket)

	if raw, err := c.store.Get(key); err == nil {
		var payload netclient.BulkStatus
		if err := json.Unmarshal(raw, &payload); err == nil {
			if mc, mErr := collector.GetMetricsCollector(); mErr == nil {
				mc.CacheHit("scan")
			}
			log.Debug().Str("key", key).Msg("Bulk status served from cache bucket")
			return payload, true, nil
		}
		log.Warn().Err(err).Str("key", key).Msg("Corrupt cached bulk payload, refetching")
	}

	if mc, mErr := collector.GetMetricsCollector(); mErr == nil {
		mc.CacheMiss("scan")
	}

	payload, err := c.client.FetchBulkStatus(ctx)
	if err != nil {
		return nil, false, err
	}

	if raw, mErr := json.Marshal(payload); mErr == nil {
		_ = c.store.Set(key, raw, c.cfg.Cache.ScanBucket)
	}

	return payload, false, nil
}

// applyBulkStatus derives and writes a status patch for every registered
// provider present in the payload. Providers absent from the payload are left
// in checking and logged; an incomplete payload never fails the cycle.
func (c *Coordinator) applyBulkStatus(payload netclient.BulkStatus) (updated, missing []string) {
	for _, id := range c.table.Registry().IDs() {
		entry, ok := payload[id]
		if !ok {
			log.Warn().Str("provider", id).Msg("Provider missing from bulk payload, leaving in checking")
			missing = append(missing, id)
			continue
		}

		c.table.Update(id, patchFromPayload(entry))
		updated = append(updated, id)

		if mc, err := collector.GetMetricsCollector(); err == nil {
			if rec, found := c.table.Get(id); found {
				mc.SetProviderUp(id, rec.Connected)
				mc.SetProviderErrorCount(id, rec.ErrorCount)
			}
		}
	}
	return updated, missing
}

// patchFromPayload maps one upstream payload entry onto a table patch.
// Configuration wins over reachability: an unconfigured provider is
// unconfigured no matter what the probe saw.
func patchFromPayload(entry netclient.ProviderStatusPayload) providers.Patch {
	var state providers.State
	switch {
	case !entry.Configured:
		state = providers.StateUnconfigured
	case entry.IsActive:
		state = providers.StateReady
	case entry.Status == string(providers.StateDisconnected):
		state = providers.StateDisconnected
	default:
		state = providers.StateError
	}

	patch := providers.Patch{
		State:           providers.StatePtr(state),
		Configured:      providers.BoolPtr(entry.Configured),
		SuccessRate:     providers.Float64Ptr(entry.SuccessRate),
		IncrementErrors: state == providers.StateError || state == providers.StateDisconnected,
	}

	if entry.AverageResponseTime > 0 {
		patch.ResponseTimeMs = providers.Int64Ptr(entry.AverageResponseTime)
	}
	if entry.LastActive != nil {
		patch.LastActive = providers.TimePtr(*entry.LastActive)
	}

	return patch
}

func (c *Coordinator) publishSnapshot() {
	c.bus.Publish(c.table.Snapshot())
}

func (c *Coordinator) recordScanSkipped() {
	if mc, err := collector.GetMetricsCollector(); err == nil {
		mc.ScanSkipped()
	}
}

func (c *Coordinator) insertScanHistory(ctx context.Context, status *ScanStatus) {
	if c.history == nil {
		return
	}
	if err := c.history.InsertScan(ctx, status); err != nil {
		log.Error().Err(err).Str("scan_id", status.ID).Msg("Failed to insert scan history")
	}
}

func (c *Coordinator) updateScanHistory(ctx context.Context, status *ScanStatus) {
	if c.history == nil {
		return
	}
	if err := c.history.UpdateScanStatus(ctx, status); err != nil {
		log.Error().Err(err).Str("scan_id", status.ID).Msg("Failed to update scan history")
	}
}
