package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/simlok-id/simlok-api/internal/models"
)

func newScanRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestScanRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newScanRepoMock(t)
	defer cleanup()

	repo := NewScanRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO qr_scans")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	scan := &models.QrScan{
		SubmissionID: "sub-1",
		ScannedBy:    "verifier-1",
		ScannerName:  "Pos Satpam 1",
	}
	require.NoError(t, repo.Create(context.Background(), scan))
	require.NotEmpty(t, scan.ID)
	require.False(t, scan.ScannedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRepositoryListBySubmission(t *testing.T) {
	db, mock, cleanup := newScanRepoMock(t)
	defer cleanup()

	repo := NewScanRepository(db)
	rows := sqlmock.NewRows([]string{"id", "submission_id", "scanned_by", "scanner_name", "scan_location", "notes", "scanned_at"}).
		AddRow("scan-2", "sub-1", "verifier-1", "Pos 1", nil, nil, time.Now()).
		AddRow("scan-1", "sub-1", "verifier-1", "Pos 1", nil, nil, time.Now().Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, submission_id, scanned_by")).
		WithArgs("sub-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM qr_scans")).
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	scans, total, err := repo.ListBySubmission(context.Background(), models.QrScanFilter{SubmissionID: "sub-1"})
	require.NoError(t, err)
	require.Len(t, scans, 2)
	require.Equal(t, 2, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
