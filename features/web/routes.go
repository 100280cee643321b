package web

import (
	"provwatch/features/web/handlers/health"
	"provwatch/features/web/handlers/problem"
	"provwatch/features/web/handlers/status"

	"github.com/labstack/echo/v4"
)

func (app *Application) ConfigureRoutes() error {
	e := app.Echo

	app.MapHome()

	if err := status.MapStatusRoutes(e, app.services.Status); err != nil {
		return err
	}

	problem.MapRoutes(e)
	health.MapHealth(e, *app.config)

	return nil
}

func (app *Application) MapHome() {
	e := app.Echo

	e.GET("/", func(c echo.Context) error {
		return c.String(200, "Welcome to PROVWATCH Service")
	})
}
