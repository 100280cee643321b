package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"provwatch/features/providers"
	"provwatch/internal/netclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestOne_Success(t *testing.T) {
	client := &mockClient{
		outcomes: map[string]netclient.TestOutcome{
			"openai": {Success: true, ResponseTimeMs: 87},
		},
	}
	coord := newTestCoordinator(t, client, testConfig())

	result := coord.TestOne(context.Background(), "openai")

	assert.True(t, result.Success)
	assert.False(t, result.Skipped)
	assert.False(t, result.Cached)
	assert.Equal(t, providers.StateReady, result.State)
	assert.Equal(t, int64(87), result.ResponseTimeMs)

	rec, ok := coord.Table().Get("openai")
	require.True(t, ok)
	assert.Equal(t, providers.StateReady, rec.State)
	assert.True(t, rec.Connected, "A confirmed test success proves the provider is configured and reachable")
	assert.NotNil(t, rec.LastActive)
	assert.Equal(t, 0, coord.PendingTests())
}

func TestTestOne_UnknownProvider(t *testing.T) {
	client := &mockClient{}
	coord := newTestCoordinator(t, client, testConfig())

	result := coord.TestOne(context.Background(), "deepseek")

	assert.False(t, result.Success)
	assert.Equal(t, ErrUnknownProvider.Error(), result.Error)
	assert.Equal(t, 0, client.TestCalls("deepseek"))
	assert.Equal(t, 0, coord.PendingTests())
}

func TestTestOne_DedupesConcurrentCalls(t *testing.T) {
	client := &mockClient{testDelay: 100 * time.Millisecond}
	coord := newTestCoordinator(t, client, testConfig())

	const callers = 5
	results := make([]TestResult, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = coord.TestOne(context.Background(), "openai")
		}()
	}
	wg.Wait()

	executed, skipped := 0, 0
	for _, result := range results {
		if result.Skipped {
			skipped++
		} else {
			executed++
		}
	}

	assert.Equal(t, 1, executed, "Exactly one concurrent caller may run the test")
	assert.Equal(t, callers-1, skipped)
	assert.Equal(t, 1, client.TestCalls("openai"), "Duplicates must not reach the network")
	assert.Equal(t, 0, coord.PendingTests(), "Pending set must be clean after settlement")
}

func TestTestOne_SecondCallServedFromCache(t *testing.T) {
	client := &mockClient{}
	coord := newTestCoordinator(t, client, testConfig())

	first := coord.TestOne(context.Background(), "openai")
	require.True(t, first.Success)
	assert.False(t, first.Cached)

	second := coord.TestOne(context.Background(), "openai")
	assert.True(t, second.Success)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, client.TestCalls("openai"), "A recent confirmed success must be reused")
}

func TestTestOne_FailureNotCached(t *testing.T) {
	client := &mockClient{
		testErr: map[string]error{"openai": errors.New("upstream rejected prompt")},
	}
	coord := newTestCoordinator(t, client, testConfig())

	first := coord.TestOne(context.Background(), "openai")
	assert.False(t, first.Success)
	assert.Equal(t, providers.StateError, first.State)

	second := coord.TestOne(context.Background(), "openai")
	assert.False(t, second.Success)
	assert.False(t, second.Cached)
	assert.Equal(t, 2, client.TestCalls("openai"), "Failures must stay retryable in the next call")

	rec, _ := coord.Table().Get("openai")
	assert.Equal(t, int64(2), rec.ErrorCount)
}

func TestTestOne_TimeoutMarksDisconnected(t *testing.T) {
	cfg := testConfig()
	cfg.Upstream.TestTimeout = 50 * time.Millisecond

	client := &mockClient{testDelay: 300 * time.Millisecond}
	coord := newTestCoordinator(t, client, cfg)

	result := coord.TestOne(context.Background(), "openai")

	assert.False(t, result.Success)
	assert.Equal(t, providers.StateDisconnected, result.State, "A fired deadline is a transport-level disconnect")

	rec, _ := coord.Table().Get("openai")
	assert.Equal(t, providers.StateDisconnected, rec.State)
	assert.Equal(t, int64(1), rec.ErrorCount)
}

func TestTestMany_AggregatesMixedResults(t *testing.T) {
	client := &mockClient{
		testErr: map[string]error{"gemini": errors.New("quota exceeded")},
	}
	coord := newTestCoordinator(t, client, testConfig())

	aggregate := coord.TestMany(context.Background(), []string{"openai", "anthropic", "gemini"})

	assert.Equal(t, 2, aggregate.SuccessCount)
	assert.Equal(t, 1, aggregate.FailureCount)
	assert.Equal(t, 0, aggregate.SkippedCount)
	assert.Len(t, aggregate.Results, 3)
}

func TestTestMany_DedupesInput(t *testing.T) {
	client := &mockClient{}
	coord := newTestCoordinator(t, client, testConfig())

	aggregate := coord.TestMany(context.Background(), []string{"openai", "openai", "anthropic"})

	assert.Len(t, aggregate.Results, 2)
	assert.Equal(t, 1, client.TestCalls("openai"))
}

func TestTestMany_RunsConcurrently(t *testing.T) {
	perTestDelay := 100 * time.Millisecond
	client := &mockClient{testDelay: perTestDelay}
	coord := newTestCoordinator(t, client, testConfig())

	startTime := time.Now()
	aggregate := coord.TestMany(context.Background(), []string{"openai", "anthropic", "gemini"})
	duration := time.Since(startTime)

	assert.Equal(t, 3, aggregate.SuccessCount)

	// Assert that total duration is *less* than the sum of individual test
	// delays if they were processed sequentially. This indicates concurrency.
	expectedSequentialDuration := 3 * perTestDelay
	assert.Less(t, duration, expectedSequentialDuration, "Expected concurrent testing to be faster than sequential")
}
