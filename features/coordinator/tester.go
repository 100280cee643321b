package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"provwatch/features/cache"
	"provwatch/features/providers"
	"provwatch/internal/collector"
	"provwatch/internal/netclient"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const testCacheKeyPrefix = "test:provider"

// TestResult is the caller-facing outcome of one manual provider test.
type TestResult struct {
	ProviderID     string          `json:"provider_id"`
	Success        bool            `json:"success"`
	Skipped        bool            `json:"skipped"`
	Cached         bool            `json:"cached"`
	State          providers.State `json:"state,omitempty"`
	ResponseTimeMs int64           `json:"response_time_ms"`
	Error          string          `json:"error,omitempty"`
}

// TestAggregate is the settled result of a multi-provider test fan-out.
type TestAggregate struct {
	SuccessCount int          `json:"success_count"`
	FailureCount int          `json:"failure_count"`
	SkippedCount int          `json:"skipped_count"`
	ElapsedMs    int64        `json:"elapsed_ms"`
	Results      []TestResult `json:"results"`
}

// TestOne runs a single on-demand verification call for the provider. A
// provider already in the pending set is not tested twice; the duplicate
// caller gets a skipped result. Pending-set cleanup and observer
// notification always run, whatever the outcome.
func (c *Coordinator) TestOne(ctx context.Context, providerID string) TestResult {
	if !c.table.Registry().Contains(providerID) {
		log.Warn().Str("provider", providerID).Msg("Manual test requested for unknown provider")
		return TestResult{
			ProviderID: providerID,
			Error:      ErrUnknownProvider.Error(),
		}
	}

	if !c.pending.Add(providerID) {
		log.Debug().Str("provider", providerID).Msg("Manual test already in flight, skipping duplicate")
		return TestResult{
			ProviderID: providerID,
			Skipped:    true,
			Error:      "test already in flight",
		}
	}

	defer func() {
		c.pending.Remove(providerID)
		c.publishSnapshot()
	}()

	startedAt := time.Now()
	testID := xid.New().String()

	tracer := otel.Tracer("provwatch/coordinator")
	ctx, span := tracer.Start(ctx, "coordinator.test_provider",
		trace.WithAttributes(
			attribute.String("test_id", testID),
			attribute.String("provider", providerID),
		),
	)
	defer span.End()

	testLogger := log.With().
		Str("test_id", testID).
		Str("provider", providerID).
		Logger()

	if mc, err := collector.GetMetricsCollector(); err == nil {
		mc.TestStarted(providerID)
	}

	// Longer bucket than the scan cache; a recent confirmed success is
	// reused instead of burning another generation call.
	key := cache.BucketKey(testCacheKeyPrefix+":"+providerID, startedAt, c.cfg.Cache.TestBucket)
	if raw, err := c.store.Get(key); err == nil {
		var outcome netclient.TestOutcome
		if err := json.Unmarshal(raw, &outcome); err == nil {
			testLogger.Debug().Str("key", key).Msg("Manual test served from cache bucket")
			if mc, mErr := collector.GetMetricsCollector(); mErr == nil {
				mc.CacheHit("test")
			}
			result := c.applyTestSuccess(providerID, outcome)
			result.Cached = true
			c.recordTestHistory(ctx, testID, startedAt, result)
			return result
		}
	}

	if mc, err := collector.GetMetricsCollector(); err == nil {
		mc.CacheMiss("test")
	}

	testCtx, cancel := context.WithTimeout(ctx, c.cfg.Upstream.TestTimeout)
	defer cancel()

	outcome, err := c.client.TestProvider(testCtx, providerID, c.cfg.Upstream.TestPrompt)
	elapsed := time.Since(startedAt)

	if err != nil || !outcome.Success {
		if err != nil {
			span.RecordError(err)
		}
		result := c.applyTestFailure(providerID, outcome, err, testCtx)
		result.ResponseTimeMs = elapsed.Milliseconds()

		testLogger.Warn().
			Err(err).
			Str("state", string(result.State)).
			Dur("duration", elapsed).
			Msg("Manual provider test failed")

		if mc, mErr := collector.GetMetricsCollector(); mErr == nil {
			mc.TestFailed(providerID, elapsed)
		}
		c.recordTestHistory(ctx, testID, startedAt, result)
		return result
	}

	// Only successes are memoized; a failed test must be retryable in the
	// very next call rather than pinned for the bucket's duration.
	if raw, mErr := json.Marshal(outcome); mErr == nil {
		_ = c.store.Set(key, raw, c.cfg.Cache.TestBucket)
	}

	result := c.applyTestSuccess(providerID, outcome)

	testLogger.Info().
		Int64("response_time_ms", result.ResponseTimeMs).
		Dur("duration", elapsed).
		Msg("Manual provider test succeeded")

	if mc, mErr := collector.GetMetricsCollector(); mErr == nil {
		mc.TestSucceeded(providerID, elapsed)
	}
	c.recordTestHistory(ctx, testID, startedAt, result)
	return result
}

// TestMany fans TestOne out concurrently for every id and waits for all of
// them to settle; an individual failure never short-circuits the rest. Total
// latency is bounded by the slowest single test, not the sum.
func (c *Coordinator) TestMany(ctx context.Context, providerIDs []string) TestAggregate {
	startedAt := time.Now()

	ids := dedupeIDs(providerIDs)
	results := make([]TestResult, len(ids))

	group := c.pool.NewGroup()
	for i, id := range ids {
		group.Submit(func() {
			results[i] = c.TestOne(ctx, id)
		})
	}
	_ = group.Wait()

	agg := TestAggregate{
		ElapsedMs: time.Since(startedAt).Milliseconds(),
		Results:   results,
	}
	for _, res := range results {
		switch {
		case res.Skipped:
			agg.SkippedCount++
		case res.Success:
			agg.SuccessCount++
		default:
			agg.FailureCount++
		}
	}

	log.Info().
		Int("providers", len(ids)).
		Int("success", agg.SuccessCount).
		Int("failed", agg.FailureCount).
		Int("skipped", agg.SkippedCount).
		Int64("elapsed_ms", agg.ElapsedMs).
		Msg("Manual provider test fan-out settled")

	return agg
}

// applyTestSuccess writes a confirmed-contact patch and returns the result.
func (c *Coordinator) applyTestSuccess(providerID string, outcome netclient.TestOutcome) TestResult {
	now := time.Now()
	c.table.Update(providerID, providers.Patch{
		State:          providers.StatePtr(providers.StateReady),
		Configured:     providers.BoolPtr(true),
		ResponseTimeMs: providers.Int64Ptr(outcome.ResponseTimeMs),
		LastActive:     providers.TimePtr(now),
	})

	c.syncProviderGauges(providerID)

	return TestResult{
		ProviderID:     providerID,
		Success:        true,
		State:          providers.StateReady,
		ResponseTimeMs: outcome.ResponseTimeMs,
	}
}

// applyTestFailure classifies the failure and writes the patch. A fired
// timeout counts as a transport-level disconnect; everything else is a
// provider error.
func (c *Coordinator) applyTestFailure(providerID string, outcome netclient.TestOutcome, err error, testCtx context.Context) TestResult {
	state := providers.StateError
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(testCtx.Err(), context.DeadlineExceeded) {
		state = providers.StateDisconnected
	}

	msg := outcome.Error
	if err != nil {
		msg = err.Error()
	}

	c.table.Update(providerID, providers.Patch{
		State:           providers.StatePtr(state),
		IncrementErrors: true,
	})

	c.syncProviderGauges(providerID)

	return TestResult{
		ProviderID: providerID,
		State:      state,
		Error:      msg,
	}
}

func (c *Coordinator) syncProviderGauges(providerID string) {
	mc, err := collector.GetMetricsCollector()
	if err != nil {
		return
	}
	if rec, found := c.table.Get(providerID); found {
		mc.SetProviderUp(providerID, rec.Connected)
		mc.SetProviderErrorCount(providerID, rec.ErrorCount)
	}
}

func (c *Coordinator) recordTestHistory(ctx context.Context, testID string, startedAt time.Time, result TestResult) {
	if c.history == nil || result.Skipped {
		return
	}

	status := &TestStatus{
		ID:             testID,
		ProviderID:     result.ProviderID,
		Status:         StatusCompleted,
		Success:        result.Success,
		Cached:         result.Cached,
		ResponseTimeMs: result.ResponseTimeMs,
		StartTime:      startedAt,
		EndTime:        time.Now(),
		Error:          result.Error,
	}
	if !result.Success {
		status.Status = StatusFailed
	}

	if err := c.history.InsertTest(ctx, status); err != nil {
		log.Error().Err(err).Str("test_id", testID).Msg("Failed to insert test history")
	}
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
