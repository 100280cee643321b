package cmd

import (
	"provwatch/features/cache"
	"provwatch/features/coordinator"
	"provwatch/features/coordinator/repository"
	"provwatch/features/providers"
	"provwatch/internal/collector"
	"provwatch/internal/config"
	"provwatch/internal/db"
	"provwatch/internal/netclient"

	"github.com/rs/zerolog/log"
)

// buildStack wires the status tracking stack shared by the serve, scan and
// probe commands: registry, table, bucketed cache, upstream client, bus,
// coordinator and the sqlite history repository.
func buildStack() (*coordinator.Coordinator, repository.ScanHistoryRepository, error) {
	cfg := config.GetConfig()

	registry, err := providers.NewRegistry(cfg.Provider.Enabled)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build provider registry")
		return nil, nil, err
	}

	collector.NewMetricsCollector(registry.IDs())

	badgerDB, err := cache.BadgerSingleInstance()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open badger cache")
		return nil, nil, err
	}

	store, err := cache.NewBucketStore(badgerDB)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create bucket store")
		return nil, nil, err
	}

	table := providers.NewTable(registry)
	client := netclient.NewHTTPClient(&cfg.Upstream)
	bus := coordinator.NewBus()

	coord := coordinator.NewCoordinator(table, store, client, bus, cfg)

	dbConn, err := db.GetDB()
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to history database")
		return nil, nil, err
	}

	repo := repository.NewSQLiteScanHistoryRepository(dbConn)
	coord.SetHistoryRecorder(repo)

	log.Debug().
		Strs("providers", registry.IDs()).
		Str("upstream", cfg.Upstream.BaseURL).
		Msg("Status stack wired")

	return coord, repo, nil
}
