package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/simlok-id/simlok-api/internal/models"
)

// WorkerRepository persists roster entries owned by submissions.
type WorkerRepository struct {
	db *sqlx.DB
}

// NewWorkerRepository constructs the repository.
func NewWorkerRepository(db *sqlx.DB) *WorkerRepository {
	return &WorkerRepository{db: db}
}

// Create inserts a roster entry.
func (r *WorkerRepository) Create(ctx context.Context, worker *models.WorkerPhoto) error {
	if worker.ID == "" {
		worker.ID = uuid.NewString()
	}
	if worker.CreatedAt.IsZero() {
		worker.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO worker_photos
	(id, submission_id, worker_name, photo_path, hsse_pass_number, hsse_pass_expiry, hsse_pass_doc, created_at)
	VALUES (:id, :submission_id, :worker_name, :photo_path, :hsse_pass_number, :hsse_pass_expiry, :hsse_pass_doc, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, worker); err != nil {
		return fmt.Errorf("create worker photo: %w", err)
	}
	return nil
}

// GetByID fetches a roster entry.
func (r *WorkerRepository) GetByID(ctx context.Context, id string) (*models.WorkerPhoto, error) {
	const query = `SELECT id, submission_id, worker_name, photo_path, hsse_pass_number, hsse_pass_expiry, hsse_pass_doc, created_at
	FROM worker_photos WHERE id = $1 LIMIT 1`
	var worker models.WorkerPhoto
	if err := r.db.GetContext(ctx, &worker, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get worker photo: %w", err)
	}
	return &worker, nil
}

// ListBySubmission returns the roster for a submission, oldest first.
func (r *WorkerRepository) ListBySubmission(ctx context.Context, submissionID string) ([]models.WorkerPhoto, error) {
	const query = `SELECT id, submission_id, worker_name, photo_path, hsse_pass_number, hsse_pass_expiry, hsse_pass_doc, created_at
	FROM worker_photos WHERE submission_id = $1 ORDER BY created_at ASC`
	var workers []models.WorkerPhoto
	if err := r.db.SelectContext(ctx, &workers, query, submissionID); err != nil {
		return nil, fmt.Errorf("list worker photos: %w", err)
	}
	return workers, nil
}

// CountBySubmission returns the roster length.
func (r *WorkerRepository) CountBySubmission(ctx context.Context, submissionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM worker_photos WHERE submission_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, submissionID); err != nil {
		return 0, fmt.Errorf("count worker photos: %w", err)
	}
	return count, nil
}

// Delete removes one roster entry and touches the parent submission in a
// single transaction so partial failures never leave the pair half-written.
func (r *WorkerRepository) Delete(ctx context.Context, submissionID, workerID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete worker: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx, `DELETE FROM worker_photos WHERE id = $1 AND submission_id = $2`, workerID, submissionID)
	if err != nil {
		return fmt.Errorf("delete worker photo: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check worker delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `UPDATE submissions SET updated_at = $2 WHERE id = $1`, submissionID, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch submission after worker delete: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete worker: %w", err)
	}
	return nil
}
