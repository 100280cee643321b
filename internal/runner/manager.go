package runner

import (
	"context"
	"errors"
	"sync"

	"provwatch/features/coordinator"
	"provwatch/internal/config"

	"github.com/rs/zerolog/log"
)

// Error variables for runner manager
var (
	ErrRunnerCreate  = errors.New("failed to create runner")
	ErrRunnerNotInit = errors.New("runner not initialized")
)

var (
	globalRunner *Runner
	initOnce     sync.Once
	initError    error
)

// InitializeRunner creates and starts the global scheduler runner.
func InitializeRunner(coord *coordinator.Coordinator, cfg *config.CoordinatorConfig) (*Runner, error) {
	initOnce.Do(func() {
		_globalRunner, err := NewRunner(coord, cfg)
		if err != nil {
			log.Err(err).Msg("Failed to create runner")
			initError = ErrRunnerCreate
			return
		}

		globalRunner = _globalRunner
		globalRunner.Start()
		log.Info().Msg("Global scheduler runner initialized and started")
	})

	return globalRunner, initError
}

// GetRunner returns the global runner instance
func GetRunner() (*Runner, error) {
	if globalRunner == nil {
		log.Error().Msg("Runner not initialized")
		return nil, ErrRunnerNotInit
	}
	return globalRunner, nil
}

// ShutdownRunner stops the global runner
func ShutdownRunner(ctx context.Context) error {
	if globalRunner == nil {
		return nil
	}
	return globalRunner.Stop(ctx)
}
