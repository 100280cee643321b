package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"provwatch/features/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshAll_AppliesBulkStatus(t *testing.T) {
	client := &mockClient{bulk: readyPayload()}
	coord := newTestCoordinator(t, client, testConfig())

	ran, err := coord.RefreshAll(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, client.BulkCalls())

	snapshot := coord.Table().Snapshot()

	openai := snapshot["openai"]
	assert.Equal(t, providers.StateReady, openai.State)
	assert.True(t, openai.Connected)
	assert.Equal(t, 99.1, openai.SuccessRatePercent)
	require.NotNil(t, openai.ResponseTimeMs)
	assert.Equal(t, int64(120), *openai.ResponseTimeMs)
	assert.NotNil(t, openai.LastActive)
	assert.Equal(t, int64(0), openai.ErrorCount)

	anthropic := snapshot["anthropic"]
	assert.Equal(t, providers.StateUnconfigured, anthropic.State)
	assert.False(t, anthropic.Connected)
	assert.Equal(t, int64(0), anthropic.ErrorCount)

	gemini := snapshot["gemini"]
	assert.Equal(t, providers.StateDisconnected, gemini.State)
	assert.False(t, gemini.Connected)
	assert.Equal(t, int64(1), gemini.ErrorCount)
}

func TestRefreshAll_SingleFlight(t *testing.T) {
	client := &mockClient{bulk: readyPayload(), bulkDelay: 100 * time.Millisecond}
	coord := newTestCoordinator(t, client, testConfig())

	const callers = 5
	ranCount := 0

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ran, err := coord.RefreshAll(context.Background(), TriggerManual)
			assert.NoError(t, err)
			if ran {
				mu.Lock()
				ranCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ranCount, "Exactly one concurrent caller may win the scan lock")
	assert.Equal(t, 1, client.BulkCalls(), "Losers must not reach the network")
	assert.False(t, coord.IsScanning())
}

func TestRefreshAll_CacheHitSkipsNetwork(t *testing.T) {
	client := &mockClient{bulk: readyPayload()}
	coord := newTestCoordinator(t, client, testConfig())

	ran, err := coord.RefreshAll(context.Background(), TriggerManual)
	require.NoError(t, err)
	require.True(t, ran)

	ran, err = coord.RefreshAll(context.Background(), TriggerSchedule)
	require.NoError(t, err)
	assert.True(t, ran, "A cache hit still counts as a completed scan")
	assert.Equal(t, 1, client.BulkCalls(), "Second scan in the same bucket must reuse the cached payload")
}

func TestRefreshAll_FetchFailureLeavesCheckingAndRetries(t *testing.T) {
	client := &mockClient{bulkErr: errors.New("gateway unreachable")}
	coord := newTestCoordinator(t, client, testConfig())

	ran, err := coord.RefreshAll(context.Background(), TriggerManual)
	assert.True(t, ran)
	assert.ErrorIs(t, err, ErrBulkFetchFailed)

	for _, rec := range coord.Table().Snapshot() {
		assert.Equal(t, providers.StateChecking, rec.State, "Failed fetch must leave records in checking")
	}

	// Failures are never memoized; the next cycle in the same bucket hits the
	// network again.
	_, err = coord.RefreshAll(context.Background(), TriggerManual)
	assert.Error(t, err)
	assert.Equal(t, 2, client.BulkCalls())
}

func TestRefreshAll_MissingProviderLeftChecking(t *testing.T) {
	payload := readyPayload()
	delete(payload, "gemini")

	client := &mockClient{bulk: payload}
	coord := newTestCoordinator(t, client, testConfig())

	ran, err := coord.RefreshAll(context.Background(), TriggerManual)
	require.NoError(t, err)
	require.True(t, ran)

	snapshot := coord.Table().Snapshot()
	assert.Equal(t, providers.StateChecking, snapshot["gemini"].State)
	assert.Equal(t, providers.StateReady, snapshot["openai"].State)
}

func TestRefreshAll_SkippedWhileTestsPending(t *testing.T) {
	client := &mockClient{bulk: readyPayload()}
	coord := newTestCoordinator(t, client, testConfig())

	require.True(t, coord.pending.Add("openai"))

	ran, err := coord.RefreshAll(context.Background(), TriggerSchedule)
	assert.NoError(t, err)
	assert.False(t, ran, "A scan must not start while manual tests are in flight")
	assert.Equal(t, 0, client.BulkCalls())

	coord.pending.Remove("openai")

	ran, err = coord.RefreshAll(context.Background(), TriggerSchedule)
	assert.NoError(t, err)
	assert.True(t, ran)
}

func TestRefreshAll_GraceDelayBlocksImmediateReentry(t *testing.T) {
	cfg := testConfig()
	cfg.Coordinator.ReleaseGraceDelay = 60 * time.Millisecond

	client := &mockClient{bulk: readyPayload()}
	coord := newTestCoordinator(t, client, cfg)

	ran, err := coord.RefreshAll(context.Background(), TriggerManual)
	require.NoError(t, err)
	require.True(t, ran)

	ran, err = coord.RefreshAll(context.Background(), TriggerManual)
	assert.NoError(t, err)
	assert.False(t, ran, "Lock must stay held through the grace delay")

	time.Sleep(100 * time.Millisecond)

	ran, err = coord.RefreshAll(context.Background(), TriggerManual)
	assert.NoError(t, err)
	assert.True(t, ran)
}

func TestRefreshAll_PublishesCheckingThenResult(t *testing.T) {
	client := &mockClient{bulk: readyPayload()}
	coord := newTestCoordinator(t, client, testConfig())

	var mu sync.Mutex
	var observedStates []providers.State
	unsubscribe := coord.Bus().Subscribe(func(snapshot Snapshot) {
		mu.Lock()
		observedStates = append(observedStates, snapshot["openai"].State)
		mu.Unlock()
	})
	defer unsubscribe()

	_, err := coord.RefreshAll(context.Background(), TriggerManual)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, observedStates, 2)
	assert.Equal(t, providers.StateChecking, observedStates[0], "Observers must see the in-progress signal first")
	assert.Equal(t, providers.StateReady, observedStates[1])
}

func TestFlagStaleChecking(t *testing.T) {
	client := &mockClient{bulk: readyPayload()}
	coord := newTestCoordinator(t, client, testConfig())

	time.Sleep(10 * time.Millisecond)

	stale := coord.FlagStaleChecking(time.Millisecond)
	assert.Len(t, stale, 3)

	for _, rec := range coord.Table().Snapshot() {
		assert.Equal(t, providers.StateError, rec.State)
		assert.Equal(t, int64(1), rec.ErrorCount)
	}

	assert.Empty(t, coord.FlagStaleChecking(time.Millisecond), "Flagged records are no longer checking")
	assert.Empty(t, coord.FlagStaleChecking(0), "Zero cutoff disables the watchdog")
}
