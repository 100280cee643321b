package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"provwatch/features/coordinator"
)

// Repository error variables
var (
	ErrInsertScan      = errors.New("failed to insert scan status")
	ErrUpdateScan      = errors.New("failed to update scan status")
	ErrQueryScans      = errors.New("failed to query scans")
	ErrScanRow         = errors.New("failed to scan history row")
	ErrIterateScanRows = errors.New("error iterating scan rows")
	ErrInsertTest      = errors.New("failed to insert test status")
	ErrQueryTests      = errors.New("failed to query tests")
)

// SQLiteScanHistoryRepository is the concrete implementation of
// ScanHistoryRepository using SQLite.
type SQLiteScanHistoryRepository struct {
	db *sql.DB
}

func NewSQLiteScanHistoryRepository(db *sql.DB) *SQLiteScanHistoryRepository {
	return &SQLiteScanHistoryRepository{db: db}
}

func (r *SQLiteScanHistoryRepository) InsertScan(ctx context.Context, status *coordinator.ScanStatus) error {
	updatedJSON, _ := json.Marshal(status.ProvidersUpdated)
	missingJSON, _ := json.Marshal(status.ProvidersMissing)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO provider_scans (
			id, trigger_source, status, start_time, end_time, cache_hit, providers_updated, providers_missing, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, status.ID, status.Trigger, status.Status, status.StartTime, status.EndTime, status.CacheHit, updatedJSON, missingJSON, status.Error)
	if err != nil {
		return ErrInsertScan
	}
	return nil
}

func (r *SQLiteScanHistoryRepository) UpdateScanStatus(ctx context.Context, status *coordinator.ScanStatus) error {
	updatedJSON, _ := json.Marshal(status.ProvidersUpdated)
	missingJSON, _ := json.Marshal(status.ProvidersMissing)

	_, err := r.db.ExecContext(ctx, `
		UPDATE provider_scans
		SET status = ?, end_time = ?, cache_hit = ?, providers_updated = ?, providers_missing = ?, error = ?
		WHERE id = ?
	`, status.Status, status.EndTime, status.CacheHit, updatedJSON, missingJSON, status.Error, status.ID)
	if err != nil {
		return ErrUpdateScan
	}
	return nil
}

func (r *SQLiteScanHistoryRepository) GetScanByID(ctx context.Context, scanID string) (*coordinator.ScanStatus, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, trigger_source, status, start_time, end_time, cache_hit, providers_updated, providers_missing, error
		FROM provider_scans WHERE id = ?
	`, scanID)

	return scanRowToStatus(row.Scan)
}

func (r *SQLiteScanHistoryRepository) ListScans(ctx context.Context, limit int) ([]*coordinator.ScanStatus, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, trigger_source, status, start_time, end_time, cache_hit, providers_updated, providers_missing, error
		FROM provider_scans ORDER BY start_time DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, ErrQueryScans
	}
	defer rows.Close()

	var statuses []*coordinator.ScanStatus
	for rows.Next() {
		status, err := scanRowToStatus(rows.Scan)
		if err != nil {
			return nil, ErrScanRow
		}
		statuses = append(statuses, status)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrIterateScanRows
	}
	return statuses, nil
}

func (r *SQLiteScanHistoryRepository) InsertTest(ctx context.Context, status *coordinator.TestStatus) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO provider_tests (
			id, provider_id, status, success, cached, response_time_ms, start_time, end_time, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, status.ID, status.ProviderID, status.Status, status.Success, status.Cached, status.ResponseTimeMs, status.StartTime, status.EndTime, status.Error)
	if err != nil {
		return ErrInsertTest
	}
	return nil
}

func (r *SQLiteScanHistoryRepository) ListTests(ctx context.Context, providerID string, limit int) ([]*coordinator.TestStatus, error) {
	query := `
		SELECT id, provider_id, status, success, cached, response_time_ms, start_time, end_time, error
		FROM provider_tests
	`
	args := []any{}
	if providerID != "" {
		query += " WHERE provider_id = ?"
		args = append(args, providerID)
	}
	query += " ORDER BY start_time DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ErrQueryTests
	}
	defer rows.Close()

	var statuses []*coordinator.TestStatus
	for rows.Next() {
		status := &coordinator.TestStatus{}
		if err := rows.Scan(
			&status.ID, &status.ProviderID, &status.Status, &status.Success, &status.Cached,
			&status.ResponseTimeMs, &status.StartTime, &status.EndTime, &status.Error,
		); err != nil {
			return nil, ErrScanRow
		}
		statuses = append(statuses, status)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrIterateScanRows
	}
	return statuses, nil
}

func scanRowToStatus(scan func(dest ...any) error) (*coordinator.ScanStatus, error) {
	status := &coordinator.ScanStatus{}
	var updatedJSON, missingJSON []byte

	err := scan(
		&status.ID, &status.Trigger, &status.Status, &status.StartTime, &status.EndTime,
		&status.CacheHit, &updatedJSON, &missingJSON, &status.Error,
	)
	if err != nil {
		return nil, err
	}

	_ = json.Unmarshal(updatedJSON, &status.ProvidersUpdated)
	_ = json.Unmarshal(missingJSON, &status.ProvidersMissing)

	return status, nil
}
