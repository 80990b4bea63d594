package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/simlok-id/simlok-api/internal/models"
)

// ScanRepository persists the append-only gate scan log.
type ScanRepository struct {
	db *sqlx.DB
}

// NewScanRepository constructs the repository.
func NewScanRepository(db *sqlx.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// Create appends a scan event. Rows are never updated or deleted.
func (r *ScanRepository) Create(ctx context.Context, scan *models.QrScan) error {
	if scan.ID == "" {
		scan.ID = uuid.NewString()
	}
	if scan.ScannedAt.IsZero() {
		scan.ScannedAt = time.Now().UTC()
	}
	const query = `INSERT INTO qr_scans
	(id, submission_id, scanned_by, scanner_name, scan_location, notes, scanned_at)
	VALUES (:id, :submission_id, :scanned_by, :scanner_name, :scan_location, :notes, :scanned_at)`
	if _, err := r.db.NamedExecContext(ctx, query, scan); err != nil {
		return fmt.Errorf("create qr scan: %w", err)
	}
	return nil
}

// ListBySubmission returns scan history for a submission, newest first,
// with the total count for pagination.
func (r *ScanRepository) ListBySubmission(ctx context.Context, filter models.QrScanFilter) ([]models.QrScan, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT id, submission_id, scanned_by, scanner_name, scan_location, notes, scanned_at
	FROM qr_scans WHERE submission_id = $1 ORDER BY scanned_at DESC LIMIT %d OFFSET %d`, pageSize, offset)
	var scans []models.QrScan
	if err := r.db.SelectContext(ctx, &scans, query, filter.SubmissionID); err != nil {
		return nil, 0, fmt.Errorf("list qr scans: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM qr_scans WHERE submission_id = $1`, filter.SubmissionID); err != nil {
		return nil, 0, fmt.Errorf("count qr scans: %w", err)
	}
	return scans, total, nil
}
