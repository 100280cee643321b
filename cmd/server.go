package cmd

import (
	"provwatch/features/cache"
	"provwatch/features/web"
	"provwatch/internal/config"
	"provwatch/internal/db"
	"provwatch/internal/runner"
	"provwatch/internal/telemetry"

	"github.com/ory/graceful"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// WebServer is the CLI command that starts the status API server.
var WebServer = &cli.Command{
	Name:    "serve",
	Aliases: []string{"s"},
	Usage:   "Start the provider status API server",
	Action:  serve,
}

func serve(c *cli.Context) (err error) {
	cfg := config.GetConfig()

	coord, repo, err := buildStack()
	if err != nil {
		log.Error().Err(err).Msg("Failed to wire status stack")
		return err
	}
	defer db.DeferClose()
	defer func() {
		if closeErr := cache.CloseBadgerInstance(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close badger cache")
		}
	}()

	// Telemetry export is best effort; a missing OTLP endpoint must not keep
	// the service from serving status.
	shutdownTelemetry, err := telemetry.InitTelemetry(c.Context, "provwatch", Version)
	if err != nil {
		log.Warn().Err(err).Msg("Telemetry initialization failed, continuing without traces")
	} else {
		defer func() {
			if shutdownErr := shutdownTelemetry(c.Context); shutdownErr != nil {
				log.Warn().Err(shutdownErr).Msg("Telemetry shutdown failed")
			}
		}()
	}

	app, err := web.NewApplication(&cfg.Server, web.NewServices(coord, repo))
	if err != nil {
		log.Error().Err(err).Msg("Failed to create web application")
		return err
	}

	server := graceful.WithDefaults(app.Echo.Server)
	log.Info().Msgf("Starting server on %s", server.Addr)

	if _runner, err := runner.InitializeRunner(coord, &cfg.Coordinator); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler runner")
	} else {
		if cfg.Coordinator.RunAtStartup {
			log.Info().Msg("Running startup status scan")
			_runner.RunScanNow()
		}
	}

	defer runner.ShutdownRunner(c.Context)

	if err = graceful.Graceful(server.ListenAndServe, server.Shutdown); err != nil {
		log.Error().Err(err).Msg("Failed to start server")
		return err
	}

	log.Info().Msg("Server stopped gracefully.")
	return nil
}
