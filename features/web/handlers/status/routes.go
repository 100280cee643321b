package status

import (
	"provwatch/features/coordinator/services"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

func MapStatusRoutes(e *echo.Echo, svc *services.StatusService) error {
	handler := NewStatusHandler(svc)

	g := e.Group("/providers")
	g.GET("", handler.ListProviders)
	g.GET("/events", handler.StreamEvents)
	g.POST("/refresh", handler.Refresh)
	g.POST("/test", handler.TestProviders)
	g.GET("/:providerID", handler.GetProvider)
	g.POST("/:providerID/test", handler.TestProvider)
	g.POST("/:providerID/errors/reset", handler.ResetErrors)

	s := e.Group("/scans")
	s.GET("", handler.ListScans)
	s.GET("/tests", handler.ListTests)
	s.GET("/:scanID", handler.GetScan)

	log.Info().
		Str("snapshot", "/providers").
		Str("events", "/providers/events").
		Str("refresh", "/providers/refresh").
		Str("test_many", "/providers/test").
		Str("scan_history", "/scans").
		Msg("Status routes mapped successfully.")

	return nil
}
