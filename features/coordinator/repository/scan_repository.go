package repository

import (
	"context"

	"provwatch/features/coordinator"
)

// ScanHistoryRepository defines data access methods for scan and manual test
// history.
type ScanHistoryRepository interface {
	InsertScan(ctx context.Context, status *coordinator.ScanStatus) error
	UpdateScanStatus(ctx context.Context, status *coordinator.ScanStatus) error
	GetScanByID(ctx context.Context, scanID string) (*coordinator.ScanStatus, error)
	ListScans(ctx context.Context, limit int) ([]*coordinator.ScanStatus, error)

	InsertTest(ctx context.Context, status *coordinator.TestStatus) error
	ListTests(ctx context.Context, providerID string, limit int) ([]*coordinator.TestStatus, error)
}
