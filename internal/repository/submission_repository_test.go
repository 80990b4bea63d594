package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/simlok-id/simlok-api/internal/models"
)

func newSubmissionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func submissionRows(id string, reviewStatus, finalStatus string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "user_id", "permit_number", "vendor_name", "based_on", "officer_name", "job_description",
		"work_location", "implementation", "working_hours", "other_notes", "work_facilities", "worker_count",
		"simja_number", "simja_date", "sika_number", "sika_date",
		"supporting_doc1_name", "supporting_doc1_number", "supporting_doc1_date",
		"supporting_doc2_name", "supporting_doc2_number", "supporting_doc2_date",
		"implementation_start", "implementation_end", "holiday_working_hours", "signer_position", "signer_name", "content",
		"review_status", "review_note", "note_for_vendor", "reviewed_by", "reviewed_at",
		"final_status", "final_note", "simlok_date", "tembusan", "approved_by", "approved_at",
		"qrcode", "created_at", "updated_at",
	}).AddRow(
		id, "vendor-1", nil, "PT Maju Jaya", "", "Budi", "Pipa",
		"Area 3", "", "08.00-16.00", "", "", 2,
		nil, nil, nil, nil,
		nil, nil, nil,
		nil, nil, nil,
		nil, nil, "", "", "", "",
		reviewStatus, nil, nil, nil, nil,
		finalStatus, nil, nil, nil, nil, nil,
		"token-1", now, now,
	)
}

func TestSubmissionRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	submission := &models.Submission{
		UserID:         "vendor-1",
		VendorName:     "PT Maju Jaya",
		OfficerName:    "Budi",
		JobDescription: "Pipa",
		WorkLocation:   "Area 3",
		QRCode:         "token-1",
	}
	require.NoError(t, repo.Create(context.Background(), submission))
	require.NotEmpty(t, submission.ID)
	require.Equal(t, models.ReviewStatusPending, submission.ReviewStatus)
	require.Equal(t, models.FinalStatusPending, submission.FinalStatus)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, permit_number")).
		WithArgs(submission.ID).
		WillReturnRows(submissionRows(submission.ID, "PENDING_REVIEW", "PENDING_APPROVAL"))

	found, err := repo.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, submission.ID, found.ID)
	require.False(t, found.Finalized())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, permit_number")).
		WithArgs("PENDING_APPROVAL", "vendor-1").
		WillReturnRows(submissionRows("sub-1", "PENDING_REVIEW", "PENDING_APPROVAL"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("PENDING_APPROVAL", "vendor-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.SubmissionFilter{
		FinalStatus: []models.FinalStatus{models.FinalStatusPending},
		UserID:      "vendor-1",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositorySetReview(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetReview(context.Background(), ReviewParams{
		ID:            "sub-1",
		Verdict:       models.ReviewStatusMeets,
		ReviewNote:    "lengkap",
		NoteForVendor: "ok",
		ReviewedBy:    "reviewer-1",
		ReviewedAt:    time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryFinalizeLockedRow(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	// zero rows affected means the row already left PENDING_APPROVAL
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	permitNumber := "SIMLOK/001/2024"
	err := repo.Finalize(context.Background(), FinalizeParams{
		ID:           "sub-1",
		Decision:     models.FinalStatusApproved,
		PermitNumber: &permitNumber,
		ApprovedBy:   "approver-1",
		ApprovedAt:   time.Now(),
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryDeleteCascades(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM worker_photos")).
		WithArgs("sub-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM submissions")).
		WithArgs("sub-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "sub-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryStats(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()

	repo := NewSubmissionRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WillReturnRows(sqlmock.NewRows([]string{
			"total", "pending_review", "meets_requirements", "not_meets_requirements",
			"pending_approval", "approved", "rejected", "scans_today",
		}).AddRow(10, 3, 4, 1, 5, 4, 1, 2))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 10, stats.Total)
	require.Equal(t, 2, stats.ScansToday)
	require.NoError(t, mock.ExpectationsWereMet())
}
