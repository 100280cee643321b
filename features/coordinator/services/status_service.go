package services

import (
	"context"
	"fmt"

	"provwatch/features/coordinator"
	"provwatch/features/coordinator/repository"
	"provwatch/features/providers"
)

// StatusService is the consumer-facing surface over the coordinator and the
// history repository; the web handlers and CLI commands talk to this, never
// to the table directly.
type StatusService struct {
	coord *coordinator.Coordinator
	repo  repository.ScanHistoryRepository
}

func NewStatusService(coord *coordinator.Coordinator, repo repository.ScanHistoryRepository) *StatusService {
	return &StatusService{
		coord: coord,
		repo:  repo,
	}
}

// Snapshot returns the full current status table.
func (s *StatusService) Snapshot() coordinator.Snapshot {
	return s.coord.Table().Snapshot()
}

// GetProvider returns a single provider record.
func (s *StatusService) GetProvider(id string) (providers.StatusRecord, bool) {
	return s.coord.Table().Get(id)
}

// Refresh triggers a full scan; returns whether one actually started.
func (s *StatusService) Refresh(ctx context.Context, trigger string) (bool, error) {
	return s.coord.RefreshAll(ctx, trigger)
}

func (s *StatusService) TestOne(ctx context.Context, providerID string) coordinator.TestResult {
	return s.coord.TestOne(ctx, providerID)
}

func (s *StatusService) TestMany(ctx context.Context, providerIDs []string) coordinator.TestAggregate {
	return s.coord.TestMany(ctx, providerIDs)
}

// ResetErrors zeroes the provider's error counter and notifies observers.
func (s *StatusService) ResetErrors(providerID string) error {
	if !s.coord.Table().Registry().Contains(providerID) {
		return fmt.Errorf("%w: %s", coordinator.ErrUnknownProvider, providerID)
	}

	s.coord.Table().ResetErrors(providerID)
	s.coord.Bus().Publish(s.coord.Table().Snapshot())
	return nil
}

// Subscribe registers a snapshot listener; returns the unsubscribe function.
func (s *StatusService) Subscribe(l coordinator.Listener) func() {
	return s.coord.Bus().Subscribe(l)
}

func (s *StatusService) IsScanning() bool {
	return s.coord.IsScanning()
}

func (s *StatusService) ListScans(ctx context.Context, limit int) ([]*coordinator.ScanStatus, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.ListScans(ctx, limit)
}

func (s *StatusService) GetScan(ctx context.Context, scanID string) (*coordinator.ScanStatus, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.GetScanByID(ctx, scanID)
}

func (s *StatusService) ListTests(ctx context.Context, providerID string, limit int) ([]*coordinator.TestStatus, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.ListTests(ctx, providerID, limit)
}
