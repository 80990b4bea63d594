package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/simlok-id/simlok-api/internal/models"
)

const submissionColumns = `id, user_id, permit_number, vendor_name, based_on, officer_name, job_description,
	work_location, implementation, working_hours, other_notes, work_facilities, worker_count,
	simja_number, simja_date, sika_number, sika_date,
	supporting_doc1_name, supporting_doc1_number, supporting_doc1_date,
	supporting_doc2_name, supporting_doc2_number, supporting_doc2_date,
	implementation_start, implementation_end, holiday_working_hours, signer_position, signer_name, content,
	review_status, review_note, note_for_vendor, reviewed_by, reviewed_at,
	final_status, final_note, simlok_date, tembusan, approved_by, approved_at,
	qrcode, created_at, updated_at`

// SubmissionRepository persists permit requests.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a new submission row.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.ReviewStatus == "" {
		submission.ReviewStatus = models.ReviewStatusPending
	}
	if submission.FinalStatus == "" {
		submission.FinalStatus = models.FinalStatusPending
	}
	now := time.Now().UTC()
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = now
	}
	submission.UpdatedAt = now

	const query = `INSERT INTO submissions
	(id, user_id, permit_number, vendor_name, based_on, officer_name, job_description,
	 work_location, implementation, working_hours, other_notes, work_facilities, worker_count,
	 simja_number, simja_date, sika_number, sika_date,
	 supporting_doc1_name, supporting_doc1_number, supporting_doc1_date,
	 supporting_doc2_name, supporting_doc2_number, supporting_doc2_date,
	 implementation_start, implementation_end, holiday_working_hours, signer_position, signer_name, content,
	 review_status, review_note, note_for_vendor, reviewed_by, reviewed_at,
	 final_status, final_note, simlok_date, tembusan, approved_by, approved_at,
	 qrcode, created_at, updated_at)
	VALUES (:id, :user_id, :permit_number, :vendor_name, :based_on, :officer_name, :job_description,
	 :work_location, :implementation, :working_hours, :other_notes, :work_facilities, :worker_count,
	 :simja_number, :simja_date, :sika_number, :sika_date,
	 :supporting_doc1_name, :supporting_doc1_number, :supporting_doc1_date,
	 :supporting_doc2_name, :supporting_doc2_number, :supporting_doc2_date,
	 :implementation_start, :implementation_end, :holiday_working_hours, :signer_position, :signer_name, :content,
	 :review_status, :review_note, :note_for_vendor, :reviewed_by, :reviewed_at,
	 :final_status, :final_note, :simlok_date, :tembusan, :approved_by, :approved_at,
	 :qrcode, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// GetByID fetches a submission by identifier.
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	query := fmt.Sprintf("SELECT %s FROM submissions WHERE id = $1 LIMIT 1", submissionColumns)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return &submission, nil
}

// GetByQRCode resolves a submission from its stored scan code.
func (r *SubmissionRepository) GetByQRCode(ctx context.Context, code string) (*models.Submission, error) {
	query := fmt.Sprintf("SELECT %s FROM submissions WHERE qrcode = $1 LIMIT 1", submissionColumns)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get submission by qrcode: %w", err)
	}
	return &submission, nil
}

// List returns submissions matching the filter plus the total row count.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	baseQuery := "FROM submissions WHERE 1=1"
	var conditions []string
	var args []interface{}

	if len(filter.ReviewStatus) > 0 {
		placeholders := make([]string, len(filter.ReviewStatus))
		for i, status := range filter.ReviewStatus {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("review_status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.FinalStatus) > 0 {
		placeholders := make([]string, len(filter.FinalStatus))
		for i, status := range filter.FinalStatus {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("final_status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Vendor != "" {
		args = append(args, "%"+strings.ToLower(filter.Vendor)+"%")
		conditions = append(conditions, fmt.Sprintf("LOWER(vendor_name) LIKE $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		idx := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(vendor_name) LIKE $%d OR LOWER(officer_name) LIKE $%d OR LOWER(job_description) LIKE $%d OR LOWER(COALESCE(permit_number, '')) LIKE $%d)",
			idx, idx, idx, idx))
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"created_at":    true,
		"updated_at":    true,
		"vendor_name":   true,
		"review_status": true,
		"final_status":  true,
		"permit_number": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d",
		submissionColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}

	return submissions, total, nil
}

// Update persists the editable content fields. The guard on final_status
// keeps finalized rows immutable even if a stale caller slips past the
// service-level check.
func (r *SubmissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	submission.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`UPDATE submissions SET
	vendor_name = :vendor_name, based_on = :based_on, officer_name = :officer_name,
	job_description = :job_description, work_location = :work_location, implementation = :implementation,
	working_hours = :working_hours, other_notes = :other_notes, work_facilities = :work_facilities,
	worker_count = :worker_count,
	simja_number = :simja_number, simja_date = :simja_date, sika_number = :sika_number, sika_date = :sika_date,
	supporting_doc1_name = :supporting_doc1_name, supporting_doc1_number = :supporting_doc1_number, supporting_doc1_date = :supporting_doc1_date,
	supporting_doc2_name = :supporting_doc2_name, supporting_doc2_number = :supporting_doc2_number, supporting_doc2_date = :supporting_doc2_date,
	implementation_start = :implementation_start, implementation_end = :implementation_end,
	holiday_working_hours = :holiday_working_hours, signer_position = :signer_position, signer_name = :signer_name,
	content = :content, updated_at = :updated_at
	WHERE id = :id AND final_status = '%s'`, models.FinalStatusPending)
	result, err := r.db.NamedExecContext(ctx, query, submission)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check submission update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReviewParams groups the columns written by a reviewer verdict.
type ReviewParams struct {
	ID            string
	Verdict       models.ReviewStatus
	ReviewNote    string
	NoteForVendor string
	ReviewedBy    string
	ReviewedAt    time.Time
}

// SetReview records the reviewer verdict. Repeatable while the submission is
// still awaiting approval; the conditional update refuses finalized rows.
func (r *SubmissionRepository) SetReview(ctx context.Context, params ReviewParams) error {
	query := fmt.Sprintf(`UPDATE submissions SET
	review_status = :review_status, review_note = :review_note, note_for_vendor = :note_for_vendor,
	reviewed_by = :reviewed_by, reviewed_at = :reviewed_at, updated_at = :reviewed_at
	WHERE id = :id AND final_status = '%s'`, models.FinalStatusPending)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":              params.ID,
		"review_status":   params.Verdict,
		"review_note":     params.ReviewNote,
		"note_for_vendor": params.NoteForVendor,
		"reviewed_by":     params.ReviewedBy,
		"reviewed_at":     params.ReviewedAt,
	})
	if err != nil {
		return fmt.Errorf("set submission review: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check review rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FinalizeParams groups the columns written by the approver decision.
type FinalizeParams struct {
	ID           string
	Decision     models.FinalStatus
	PermitNumber *string
	Tembusan     *string
	FinalNote    *string
	SimlokDate   *time.Time
	ApprovedBy   string
	ApprovedAt   time.Time
}

// Finalize applies the one-way approval decision. The WHERE clause only
// matches rows still pending, so two racing finalize calls cannot both
// succeed; the loser observes sql.ErrNoRows.
func (r *SubmissionRepository) Finalize(ctx context.Context, params FinalizeParams) error {
	query := fmt.Sprintf(`UPDATE submissions SET
	final_status = :final_status, permit_number = :permit_number, tembusan = :tembusan,
	final_note = :final_note, simlok_date = :simlok_date,
	approved_by = :approved_by, approved_at = :approved_at, updated_at = :approved_at
	WHERE id = :id AND final_status = '%s'`, models.FinalStatusPending)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":            params.ID,
		"final_status":  params.Decision,
		"permit_number": params.PermitNumber,
		"tembusan":      params.Tembusan,
		"final_note":    params.FinalNote,
		"simlok_date":   params.SimlokDate,
		"approved_by":   params.ApprovedBy,
		"approved_at":   params.ApprovedAt,
	})
	if err != nil {
		return fmt.Errorf("finalize submission: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check finalize rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a pending submission and its roster in one transaction.
func (r *SubmissionRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete submission: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM worker_photos WHERE submission_id = $1`, id); err != nil {
		return fmt.Errorf("delete submission workers: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM submissions WHERE id = $1 AND final_status = '%s'`, models.FinalStatusPending), id)
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete submission: %w", err)
	}
	return nil
}

// Stats aggregates dashboard counters in a single round trip.
func (r *SubmissionRepository) Stats(ctx context.Context) (*models.SubmissionStats, error) {
	const query = `SELECT
	COUNT(*) AS total,
	COUNT(*) FILTER (WHERE review_status = 'PENDING_REVIEW') AS pending_review,
	COUNT(*) FILTER (WHERE review_status = 'MEETS_REQUIREMENTS') AS meets_requirements,
	COUNT(*) FILTER (WHERE review_status = 'NOT_MEETS_REQUIREMENTS') AS not_meets_requirements,
	COUNT(*) FILTER (WHERE final_status = 'PENDING_APPROVAL') AS pending_approval,
	COUNT(*) FILTER (WHERE final_status = 'APPROVED') AS approved,
	COUNT(*) FILTER (WHERE final_status = 'REJECTED') AS rejected,
	(SELECT COUNT(*) FROM qr_scans WHERE scanned_at >= CURRENT_DATE) AS scans_today
	FROM submissions`
	var stats models.SubmissionStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("submission stats: %w", err)
	}
	return &stats, nil
}
