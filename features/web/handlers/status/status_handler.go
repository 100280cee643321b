package status

import (
	"net/http"
	"strconv"

	"provwatch/features/coordinator"
	"provwatch/features/coordinator/services"

	"github.com/labstack/echo/v4"
)

const defaultHistoryLimit = 50

// TestInput is the request body for the multi-provider test endpoint.
type TestInput struct {
	ProviderIDs []string `json:"provider_ids" validate:"required,min=1,dive,required"`
}

type StatusHandler struct {
	svc *services.StatusService
}

func NewStatusHandler(svc *services.StatusService) *StatusHandler {
	return &StatusHandler{svc: svc}
}

// ListProviders returns the full status snapshot.
func (h *StatusHandler) ListProviders(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"scanning":  h.svc.IsScanning(),
		"providers": h.svc.Snapshot(),
	})
}

func (h *StatusHandler) GetProvider(c echo.Context) error {
	providerID := c.Param("providerID")

	rec, ok := h.svc.GetProvider(providerID)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error":    "Provider not found",
			"provider": providerID,
		})
	}

	return c.JSON(http.StatusOK, rec)
}

// Refresh triggers a full scan. The response always comes back 202; the
// body says whether a scan actually started or the coordinator was busy.
func (h *StatusHandler) Refresh(c echo.Context) error {
	ran, err := h.svc.Refresh(c.Request().Context(), coordinator.TriggerManual)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]interface{}{
			"error":   "Scan failed",
			"details": err.Error(),
		})
	}

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"started": ran,
		"message": refreshMessage(ran),
	})
}

func refreshMessage(ran bool) string {
	if ran {
		return "Full status scan completed."
	}
	return "Scan or manual test already in flight; request dropped."
}

func (h *StatusHandler) TestProvider(c echo.Context) error {
	providerID := c.Param("providerID")

	result := h.svc.TestOne(c.Request().Context(), providerID)
	if result.Error == coordinator.ErrUnknownProvider.Error() {
		return c.JSON(http.StatusNotFound, result)
	}
	if result.Skipped {
		return c.JSON(http.StatusConflict, result)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *StatusHandler) TestProviders(c echo.Context) error {
	input := &TestInput{}
	if err := c.Bind(input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
	}
	if err := c.Validate(input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "Validation failed",
			"details": err.Error(),
		})
	}

	aggregate := h.svc.TestMany(c.Request().Context(), input.ProviderIDs)
	return c.JSON(http.StatusOK, aggregate)
}

func (h *StatusHandler) ResetErrors(c echo.Context) error {
	providerID := c.Param("providerID")

	if err := h.svc.ResetErrors(providerID); err != nil {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error":    "Provider not found",
			"provider": providerID,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"provider": providerID,
		"message":  "Error counter reset.",
	})
}

func (h *StatusHandler) ListScans(c echo.Context) error {
	limit := parseLimit(c.QueryParam("limit"))

	scans, err := h.svc.ListScans(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to list scans",
		})
	}

	return c.JSON(http.StatusOK, scans)
}

func (h *StatusHandler) GetScan(c echo.Context) error {
	scanID := c.Param("scanID")

	scan, err := h.svc.GetScan(c.Request().Context(), scanID)
	if err != nil || scan == nil {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error":   "Scan not found",
			"scan_id": scanID,
		})
	}

	return c.JSON(http.StatusOK, scan)
}

func (h *StatusHandler) ListTests(c echo.Context) error {
	limit := parseLimit(c.QueryParam("limit"))

	tests, err := h.svc.ListTests(c.Request().Context(), c.QueryParam("provider"), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to list tests",
		})
	}

	return c.JSON(http.StatusOK, tests)
}

func parseLimit(raw string) int {
	if raw == "" {
		return defaultHistoryLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultHistoryLimit
	}
	return limit
}
