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

func newWorkerRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestWorkerRepositoryCreateAndList(t *testing.T) {
	db, mock, cleanup := newWorkerRepoMock(t)
	defer cleanup()

	repo := NewWorkerRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO worker_photos")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	worker := &models.WorkerPhoto{
		SubmissionID: "sub-1",
		WorkerName:   "Agus",
		PhotoPath:    "workers/agus.jpg",
	}
	require.NoError(t, repo.Create(context.Background(), worker))
	require.NotEmpty(t, worker.ID)

	rows := sqlmock.NewRows([]string{"id", "submission_id", "worker_name", "photo_path", "hsse_pass_number", "hsse_pass_expiry", "hsse_pass_doc", "created_at"}).
		AddRow(worker.ID, "sub-1", "Agus", "workers/agus.jpg", nil, nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, submission_id, worker_name")).
		WithArgs("sub-1").
		WillReturnRows(rows)

	workers, err := repo.ListBySubmission(context.Background(), "sub-1")
	require.NoError(t, err)
	require.Len(t, workers, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerRepositoryDeleteTransactional(t *testing.T) {
	db, mock, cleanup := newWorkerRepoMock(t)
	defer cleanup()

	repo := NewWorkerRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM worker_photos")).
		WithArgs("worker-1", "sub-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET updated_at")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "sub-1", "worker-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerRepositoryDeleteMissingRolledBack(t *testing.T) {
	db, mock, cleanup := newWorkerRepoMock(t)
	defer cleanup()

	repo := NewWorkerRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM worker_photos")).
		WithArgs("worker-9", "sub-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "sub-1", "worker-9")
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}
