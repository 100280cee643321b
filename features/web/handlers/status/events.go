package status

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"provwatch/features/coordinator"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const heartbeatInterval = 15 * time.Second

// StreamEvents pushes status snapshots to the client as server-sent events.
// The subscription callback only enqueues; it never blocks the bus. A full
// channel drops the update, which is safe because every event carries the
// complete snapshot and rendering is idempotent.
func (h *StatusHandler) StreamEvents(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	updates := make(chan coordinator.Snapshot, 8)
	unsubscribe := h.svc.Subscribe(func(snapshot coordinator.Snapshot) {
		select {
		case updates <- snapshot:
		default:
		}
	})
	defer unsubscribe()

	if err := writeSnapshotEvent(c, h.svc.Snapshot()); err != nil {
		return nil
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request().Context().Done():
			log.Debug().Msg("Status event stream closed by client")
			return nil
		case snapshot := <-updates:
			if err := writeSnapshotEvent(c, snapshot); err != nil {
				return nil
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(c.Response(), ": ping\n\n"); err != nil {
				return nil
			}
			c.Response().Flush()
		}
	}
}

func writeSnapshotEvent(c echo.Context, snapshot coordinator.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal status snapshot for event stream")
		return nil
	}

	if _, err := fmt.Fprintf(c.Response(), "event: status\ndata: %s\n\n", payload); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}
