package middlewares

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// RequestLogger middleware logs information about each incoming HTTP request and its response
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := uuid.New().String()
			c.Set("request_id", requestID)
			c.Response().Header().Set("X-Request-ID", requestID)

			req := c.Request()
			start := time.Now()

			logCtx := log.With().
				Str("request_id", requestID).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("remote_ip", c.RealIP())

			err := next(c)

			status := c.Response().Status
			latency := time.Since(start)

			respLogger := logCtx.
				Int("status", status).
				Dur("latency", latency).
				Str("bytes_out", formatByteCount(c.Response().Size)).
				Logger()

			if err != nil {
				respLogger.Error().Err(err).Msg("Request failed")
				return err
			}

			switch {
			case status >= 500:
				respLogger.Error().Msg("Server error")
			case status >= 400:
				respLogger.Warn().Msg("Client error")
			case status >= 300:
				respLogger.Debug().Msg("Redirection")
			default:
				respLogger.Debug().Msg("Request completed")
			}

			return nil
		}
	}
}

func formatByteCount(bytes int64) string {
	if bytes == 0 {
		return "-"
	}

	const unit = 1024
	if bytes < unit {
		return strconv.FormatInt(bytes, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatInt(bytes/div, 10) + " " + string("KMGTPE"[exp]) + "B"
}
