package collector

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once
	mc   *MetricsCollector
)

type MetricsCollector struct {
	scanCount        prometheus.Counter   // Counter for full scan cycles initiated
	scanSuccessCount prometheus.Counter   // Counter for successful scan cycles
	scanFailedCount  prometheus.Counter   // Counter for scan cycles aborted by a bulk fetch failure
	scanSkippedCount prometheus.Counter   // Counter for refresh requests dropped by the lock/pending guard
	scanDuration     prometheus.Gauge     // Gauge for duration of the last scan cycle
	cacheHitCount    *prometheus.CounterVec // Counter for bucketed cache hits per cache
	cacheMissCount   *prometheus.CounterVec // Counter for bucketed cache misses per cache

	testCount        *prometheus.CounterVec // Counter for manual tests initiated per provider
	testSuccessCount *prometheus.CounterVec // Counter for successful manual tests per provider
	testFailedCount  *prometheus.CounterVec // Counter for failed manual tests per provider
	testDuration     *prometheus.GaugeVec   // Gauge for duration of the last manual test per provider

	providerUp     *prometheus.GaugeVec // Gauge: 1 when the provider is connected, 0 otherwise
	providerErrors *prometheus.GaugeVec // Gauge mirroring the monotonic error counter per provider
}

func GetMetricsCollector() (*MetricsCollector, error) {
	if mc == nil {
		return nil, fmt.Errorf("MetricsCollector not initialized")
	}
	return mc, nil
}

// NewMetricsCollector - Initialize Prometheus metrics here
func NewMetricsCollector(providerIDs []string) *MetricsCollector {
	once.Do(func() {
		_mc := &MetricsCollector{
			scanCount: promauto.NewCounter(prometheus.CounterOpts{
				Name: "provwatch_scan_total",
				Help: "Total number of full provider status scans initiated.",
			}),

			scanSuccessCount: promauto.NewCounter(prometheus.CounterOpts{
				Name: "provwatch_scan_success_total",
				Help: "Total number of full scans that completed successfully.",
			}),

			scanFailedCount: promauto.NewCounter(prometheus.CounterOpts{
				Name: "provwatch_scan_failed_total",
				Help: "Total number of full scans aborted by a bulk fetch failure.",
			}),

			scanSkippedCount: promauto.NewCounter(prometheus.CounterOpts{
				Name: "provwatch_scan_skipped_total",
				Help: "Total number of refresh requests dropped because a scan or manual test was in flight.",
			}),

			scanDuration: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "provwatch_scan_duration_seconds",
				Help: "Duration of the last full scan cycle in seconds.",
			}),

			cacheHitCount: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "provwatch_cache_hits_total",
				Help: "Total number of bucketed cache hits by cache name.",
			}, []string{"cache"}),

			cacheMissCount: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "provwatch_cache_misses_total",
				Help: "Total number of bucketed cache misses by cache name.",
			}, []string{"cache"}),

			testCount: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "provwatch_provider_test_total",
				Help: "Total number of manual provider tests initiated by provider.",
			}, []string{"provider"}),

			testSuccessCount: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "provwatch_provider_test_success_total",
				Help: "Total number of successful manual provider tests by provider.",
			}, []string{"provider"}),

			testFailedCount: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "provwatch_provider_test_failed_total",
				Help: "Total number of failed manual provider tests by provider.",
			}, []string{"provider"}),

			testDuration: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "provwatch_provider_test_duration_seconds",
				Help: "Duration of the last manual test in seconds by provider.",
			}, []string{"provider"}),

			providerUp: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "provwatch_provider_up",
				Help: "Whether the provider is currently connected (1) or not (0).",
			}, []string{"provider"}),

			providerErrors: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "provwatch_provider_error_count",
				Help: "Current value of the provider's monotonic error counter.",
			}, []string{"provider"}),
		}

		// Pre-register the fixed provider set so the gauges exist before the
		// first scan lands.
		for _, id := range providerIDs {
			_mc.providerUp.With(prometheus.Labels{"provider": id}).Set(0)
			_mc.providerErrors.With(prometheus.Labels{"provider": id}).Set(0)
		}

		// After _mc is fully ready, set the global mc
		mc = _mc
	})

	return mc
}

func (mc *MetricsCollector) ScanStarted() {
	mc.scanCount.Inc()
}

func (mc *MetricsCollector) ScanSucceeded(duration time.Duration) {
	mc.scanSuccessCount.Inc()
	mc.scanDuration.Set(duration.Seconds())
}

func (mc *MetricsCollector) ScanFailed(duration time.Duration) {
	mc.scanFailedCount.Inc()
	mc.scanDuration.Set(duration.Seconds())
}

func (mc *MetricsCollector) ScanSkipped() {
	mc.scanSkippedCount.Inc()
}

func (mc *MetricsCollector) CacheHit(cacheName string) {
	mc.cacheHitCount.With(prometheus.Labels{"cache": cacheName}).Inc()
}

func (mc *MetricsCollector) CacheMiss(cacheName string) {
	mc.cacheMissCount.With(prometheus.Labels{"cache": cacheName}).Inc()
}

func (mc *MetricsCollector) TestStarted(providerID string) {
	mc.testCount.With(prometheus.Labels{"provider": providerID}).Inc()
}

func (mc *MetricsCollector) TestSucceeded(providerID string, duration time.Duration) {
	mc.testSuccessCount.With(prometheus.Labels{"provider": providerID}).Inc()
	mc.testDuration.With(prometheus.Labels{"provider": providerID}).Set(duration.Seconds())
}

func (mc *MetricsCollector) TestFailed(providerID string, duration time.Duration) {
	mc.testFailedCount.With(prometheus.Labels{"provider": providerID}).Inc()
	mc.testDuration.With(prometheus.Labels{"provider": providerID}).Set(duration.Seconds())
}

func (mc *MetricsCollector) SetProviderUp(providerID string, up bool) {
	v := 0.0
	if up {
		v = 1.0
	}
	mc.providerUp.With(prometheus.Labels{"provider": providerID}).Set(v)
}

func (mc *MetricsCollector) SetProviderErrorCount(providerID string, count int64) {
	mc.providerErrors.With(prometheus.Labels{"provider": providerID}).Set(float64(count))
}
