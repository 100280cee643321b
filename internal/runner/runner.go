package runner

import (
	"context"
	"errors"
	"time"

	"provwatch/features/coordinator"
	"provwatch/internal/config"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

var (
	ErrFailedToCreateScheduler = errors.New("failed to create scheduler")
	ErrFailedToCreateJob       = errors.New("failed to create job")
	ErrFailedToGetNextRun      = errors.New("failed to get next run time")
)

// Runner drives the coordinator on a fixed interval. A tick that lands while
// a scan or manual test is in flight is dropped by the coordinator's own
// guard; singleton job mode additionally keeps gocron from stacking ticks
// behind a slow cycle.
type Runner struct {
	scheduler   gocron.Scheduler
	coordinator *coordinator.Coordinator
	scanJob     gocron.Job
	watchdogJob gocron.Job
}

func NewRunner(coord *coordinator.Coordinator, cfg *config.CoordinatorConfig) (*Runner, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithGlobalJobOptions(
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		),
	)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create scheduler")
		return nil, ErrFailedToCreateScheduler
	}

	r := &Runner{
		scheduler:   scheduler,
		coordinator: coord,
	}

	if err := r.registerScanJob(cfg.ScanInterval); err != nil {
		return nil, err
	}

	if cfg.StaleAfter > 0 {
		if err := r.registerWatchdogJob(cfg.ScanInterval, cfg.StaleAfter); err != nil {
			return nil, err
		}
	} else {
		log.Warn().Msg("Staleness watchdog disabled")
	}

	return r, nil
}

func (r *Runner) registerScanJob(interval time.Duration) error {
	job, err := r.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(r.executeScan),
		gocron.WithName("provider_status_scan"),
		gocron.WithTags("scan"),
	)
	if err != nil {
		log.Error().Err(err).Msg("Failed to schedule status scan job")
		return ErrFailedToCreateJob
	}

	r.scanJob = job
	log.Info().Dur("interval", interval).Msg("Status scan job registered with scheduler")
	return nil
}

func (r *Runner) registerWatchdogJob(interval, staleAfter time.Duration) error {
	job, err := r.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(r.executeWatchdog, staleAfter),
		gocron.WithName("provider_staleness_watchdog"),
		gocron.WithTags("watchdog"),
	)
	if err != nil {
		log.Error().Err(err).Msg("Failed to schedule staleness watchdog job")
		return ErrFailedToCreateJob
	}

	r.watchdogJob = job
	log.Info().Dur("stale_after", staleAfter).Msg("Staleness watchdog registered with scheduler")
	return nil
}

// executeScan is the function that gets called on schedule.
func (r *Runner) executeScan() {
	ran, err := r.coordinator.RefreshAll(context.Background(), coordinator.TriggerSchedule)
	if err != nil {
		log.Error().Err(err).Msg("Scheduled status scan failed")
		return
	}
	if !ran {
		log.Debug().Msg("Scheduled status scan tick skipped")
	}
}

func (r *Runner) executeWatchdog(staleAfter time.Duration) {
	if stale := r.coordinator.FlagStaleChecking(staleAfter); len(stale) > 0 {
		log.Warn().Strs("providers", stale).Msg("Watchdog flagged stale providers")
	}
}

// Start begins the scheduler
func (r *Runner) Start() {
	r.scheduler.Start()
	log.Info().Msg("Scheduler started")
}

// Stop halts the scheduler
func (r *Runner) Stop(ctx context.Context) error {
	return r.scheduler.Shutdown()
}

// RunScanNow executes a full scan right away without waiting for the next
// tick.
func (r *Runner) RunScanNow() {
	ran, err := r.coordinator.RefreshAll(context.Background(), coordinator.TriggerStartup)
	if err != nil {
		log.Error().Err(err).Msg("Startup status scan failed")
		return
	}
	if !ran {
		log.Debug().Msg("Startup status scan skipped, coordinator busy")
	}
}

// GetNextScanTime returns the next scheduled scan run.
func (r *Runner) GetNextScanTime() (time.Time, error) {
	if r.scanJob == nil {
		return time.Time{}, ErrFailedToGetNextRun
	}
	return r.scanJob.NextRun()
}
