package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/simlok-id/simlok-api/internal/dto"
	"github.com/simlok-id/simlok-api/internal/models"
	appErrors "github.com/simlok-id/simlok-api/pkg/errors"
)

type stubPhotoStore struct {
	deleted []string
	err     error
}

func (s *stubPhotoStore) Delete(filename string) error {
	s.deleted = append(s.deleted, filename)
	return s.err
}

func TestWorkerServiceAddAndRemove(t *testing.T) {
	submissions := &mockSubmissionStore{submissions: map[string]*models.Submission{
		"sub-1": newSubmissionFixture("sub-1", "vendor-1"),
	}}
	workers := &mockWorkerStore{}
	audit := &mockAuditSink{}
	files := &stubPhotoStore{}
	svc := NewWorkerService(workers, submissions, audit, nil, zap.NewNop(), WithWorkerFiles(files))

	worker, err := svc.Add(context.Background(), "sub-1", dto.CreateWorkerRequest{
		WorkerName: "Agus",
		PhotoPath:  "workers/agus.jpg",
	}, vendorClaims("vendor-1"))
	require.NoError(t, err)
	assert.Equal(t, "sub-1", worker.SubmissionID)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionWorkerAdd, audit.logs[0].Action)

	reviewer := roleClaims("reviewer-1", models.RoleReviewer)
	require.NoError(t, svc.Remove(context.Background(), "sub-1", worker.ID, reviewer))
	require.Len(t, audit.logs, 2)
	assert.Equal(t, models.AuditActionWorkerRemove, audit.logs[1].Action)
	assert.Equal(t, []string{"workers/agus.jpg"}, files.deleted)

	list, err := svc.List(context.Background(), "sub-1", vendorClaims("vendor-1"))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWorkerServiceAddBlockedWhenFinalized(t *testing.T) {
	submissions := &mockSubmissionStore{submissions: map[string]*models.Submission{
		"sub-1": approvedSubmission("sub-1", "vendor-1"),
	}}
	svc := NewWorkerService(&mockWorkerStore{}, submissions, &mockAuditSink{}, nil, zap.NewNop())

	_, err := svc.Add(context.Background(), "sub-1", dto.CreateWorkerRequest{
		WorkerName: "Agus",
		PhotoPath:  "workers/agus.jpg",
	}, vendorClaims("vendor-1"))
	assert.ErrorIs(t, err, appErrors.ErrFinalized)
}

func TestWorkerServiceVendorBlockedAfterVerdict(t *testing.T) {
	reviewed := newSubmissionFixture("sub-1", "vendor-1")
	reviewed.ReviewStatus = models.ReviewStatusMeets
	submissions := &mockSubmissionStore{submissions: map[string]*models.Submission{
		"sub-1": reviewed,
	}}
	svc := NewWorkerService(&mockWorkerStore{}, submissions, &mockAuditSink{}, nil, zap.NewNop())

	_, err := svc.Add(context.Background(), "sub-1", dto.CreateWorkerRequest{
		WorkerName: "Agus",
		PhotoPath:  "workers/agus.jpg",
	}, vendorClaims("vendor-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	// Reviewers can keep adjusting the roster until finalization.
	_, err = svc.Add(context.Background(), "sub-1", dto.CreateWorkerRequest{
		WorkerName: "Agus",
		PhotoPath:  "workers/agus.jpg",
	}, roleClaims("reviewer-1", models.RoleReviewer))
	require.NoError(t, err)
}

func TestWorkerServiceScopesVendor(t *testing.T) {
	submissions := &mockSubmissionStore{submissions: map[string]*models.Submission{
		"sub-1": newSubmissionFixture("sub-1", "vendor-1"),
	}}
	svc := NewWorkerService(&mockWorkerStore{}, submissions, &mockAuditSink{}, nil, zap.NewNop())

	_, err := svc.Add(context.Background(), "sub-1", dto.CreateWorkerRequest{
		WorkerName: "Agus",
		PhotoPath:  "workers/agus.jpg",
	}, vendorClaims("vendor-2"))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.List(context.Background(), "sub-1", vendorClaims("vendor-2"))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	// Roster deletes are a back-office action.
	err = svc.Remove(context.Background(), "sub-1", "worker-1", vendorClaims("vendor-1"))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestWorkerServiceRemoveWrongSubmission(t *testing.T) {
	submissions := &mockSubmissionStore{submissions: map[string]*models.Submission{
		"sub-1": newSubmissionFixture("sub-1", "vendor-1"),
		"sub-2": newSubmissionFixture("sub-2", "vendor-1"),
	}}
	workers := &mockWorkerStore{}
	svc := NewWorkerService(workers, submissions, &mockAuditSink{}, nil, zap.NewNop())

	worker, err := svc.Add(context.Background(), "sub-2", dto.CreateWorkerRequest{
		WorkerName: "Agus",
		PhotoPath:  "workers/agus.jpg",
	}, vendorClaims("vendor-1"))
	require.NoError(t, err)

	err = svc.Remove(context.Background(), "sub-1", worker.ID, roleClaims("reviewer-1", models.RoleReviewer))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
