// collector/export.go
package collector

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// in the Prometheus text exposition format for standard http.Server.
func (mc *MetricsCollector) ExposeMetricsHTTPHandler() http.Handler {
	return promhttp.Handler()
}

func (mc *MetricsCollector) ExposeWebMetrics(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(mc.ExposeMetricsHTTPHandler()))
}
