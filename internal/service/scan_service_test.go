package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/simlok-id/simlok-api/internal/dto"
	"github.com/simlok-id/simlok-api/internal/models"
	appErrors "github.com/simlok-id/simlok-api/pkg/errors"
)

type mockScanStore struct {
	scans     []models.QrScan
	createErr error
}

func (m *mockScanStore) Create(ctx context.Context, scan *models.QrScan) error {
	if m.createErr != nil {
		return m.createErr
	}
	if scan.ID == "" {
		scan.ID = "scan-1"
	}
	scan.ScannedAt = time.Now().UTC()
	m.scans = append(m.scans, *scan)
	return nil
}

func (m *mockScanStore) ListBySubmission(ctx context.Context, filter models.QrScanFilter) ([]models.QrScan, int, error) {
	var out []models.QrScan
	for _, s := range m.scans {
		if s.SubmissionID == filter.SubmissionID {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

type stubQRParser struct {
	submissionID string
	err          error
}

func (s stubQRParser) Parse(token string, allowExpired bool) (string, time.Time, error) {
	if s.err != nil {
		return "", time.Time{}, s.err
	}
	return s.submissionID, time.Now().Add(time.Hour), nil
}

func approvedSubmission(id, userID string) *models.Submission {
	fixture := newSubmissionFixture(id, userID)
	fixture.FinalStatus = models.FinalStatusApproved
	permit := "SIMLOK/001/2026"
	fixture.PermitNumber = &permit
	return fixture
}

func verifierClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "verifier-1", Role: models.RoleVerifier, FullName: "Pos Satpam 1"}
}

func TestScanServiceVerifyApproved(t *testing.T) {
	store := &mockScanStore{}
	submissions := &mockSubmissionStore{submissions: map[string]*models.Submission{
		"sub-1": approvedSubmission("sub-1", "vendor-1"),
	}}
	hub := &recordingHub{}
	svc := NewScanService(store, submissions, &mockAuditSink{}, stubQRParser{submissionID: "sub-1"}, nil, zap.NewNop(), WithScanBroadcaster(hub))

	result, err := svc.Verify(context.Background(), dto.VerifyScanRequest{
		Code:     "signed-token",
		Location: "Gate A",
	}, verifierClaims())
	require.NoError(t, err)
	assert.Equal(t, "sub-1", result.Scan.SubmissionID)
	assert.Equal(t, "verifier-1", result.Scan.ScannedBy)
	require.NotNil(t, result.Scan.ScanLocation)
	assert.Equal(t, "Gate A", *result.Scan.ScanLocation)
	assert.Equal(t, "SIMLOK/001/2026", *result.Submission.PermitNumber)
	assert.Equal(t, 1, hub.scans)

	// duplicate scans append, they are never rejected
	_, err = svc.Verify(context.Background(), dto.VerifyScanRequest{Code: "signed-token"}, verifierClaims())
	require.NoError(t, err)
	assert.Len(t, store.scans, 2)
}

func TestScanServiceVerifyLegacyPrefix(t *testing.T) {
	store := &mockScanStore{}
	submissions := &mockSubmissionStore{submissions: map[string]*models.Submission{
		"sub-9": approvedSubmission("sub-9", "vendor-1"),
	}}
	svc := NewScanService(store, submissions, &mockAuditSink{}, stubQRParser{err: errors.New("not a token")}, nil, zap.NewNop())

	result, err := svc.Verify(context.Background(), dto.VerifyScanRequest{Code: "SIMLOK:sub-9"}, verifierClaims())
	require.NoError(t, err)
	assert.Equal(t, "sub-9", result.Scan.SubmissionID)
}

func TestScanServiceVerifyRejectsPending(t *testing.T) {
	submissions := &mockSubmissionStore{submissions: map[string]*models.Submission{
		"sub-1": newSubmissionFixture("sub-1", "vendor-1"),
	}}
	svc := NewScanService(&mockScanStore{}, submissions, &mockAuditSink{}, stubQRParser{submissionID: "sub-1"}, nil, zap.NewNop())

	_, err := svc.Verify(context.Background(), dto.VerifyScanRequest{Code: "signed-token"}, verifierClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotApproved.Code, appErrors.FromError(err).Code)
}

func TestScanServiceVerifyStoredCodeFallback(t *testing.T) {
	// A token signed before a key rotation no longer parses, but the
	// stored qrcode column still matches it byte for byte.
	rotated := approvedSubmission("sub-3", "vendor-1")
	rotated.QRCode = "token-from-old-key"
	store := &mockScanStore{}
	submissions := &mockSubmissionStore{submissions: map[string]*models.Submission{
		"sub-3": rotated,
	}}
	svc := NewScanService(store, submissions, &mockAuditSink{}, stubQRParser{err: errors.New("bad signature")}, nil, zap.NewNop())

	result, err := svc.Verify(context.Background(), dto.VerifyScanRequest{Code: "token-from-old-key"}, verifierClaims())
	require.NoError(t, err)
	assert.Equal(t, "sub-3", result.Scan.SubmissionID)
	assert.Len(t, store.scans, 1)
}

func TestScanServiceVerifyRejectsTamperedToken(t *testing.T) {
	svc := NewScanService(&mockScanStore{}, &mockSubmissionStore{}, &mockAuditSink{}, stubQRParser{err: errors.New("bad signature")}, nil, zap.NewNop())

	_, err := svc.Verify(context.Background(), dto.VerifyScanRequest{Code: "forged"}, verifierClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidQRToken.Code, appErrors.FromError(err).Code)
}

func TestScanServiceVerifyUnknownPermit(t *testing.T) {
	svc := NewScanService(&mockScanStore{}, &mockSubmissionStore{}, &mockAuditSink{}, stubQRParser{submissionID: "missing"}, nil, zap.NewNop())

	_, err := svc.Verify(context.Background(), dto.VerifyScanRequest{Code: "signed-token"}, verifierClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScanServiceHistoryScopesVendor(t *testing.T) {
	store := &mockScanStore{scans: []models.QrScan{
		{ID: "scan-1", SubmissionID: "sub-1", ScannedBy: "verifier-1"},
	}}
	submissions := &mockSubmissionStore{submissions: map[string]*models.Submission{
		"sub-1": approvedSubmission("sub-1", "vendor-1"),
	}}
	svc := NewScanService(store, submissions, &mockAuditSink{}, stubQRParser{}, nil, zap.NewNop())

	scans, pagination, err := svc.History(context.Background(), "sub-1", models.QrScanFilter{}, vendorClaims("vendor-1"))
	require.NoError(t, err)
	assert.Len(t, scans, 1)
	assert.Equal(t, 1, pagination.TotalCount)

	_, _, err = svc.History(context.Background(), "sub-1", models.QrScanFilter{}, vendorClaims("vendor-2"))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestScanServiceHistoryVerifierApprovedOnly(t *testing.T) {
	store := &mockScanStore{scans: []models.QrScan{
		{ID: "scan-1", SubmissionID: "sub-1", ScannedBy: "verifier-1"},
		{ID: "scan-2", SubmissionID: "sub-2", ScannedBy: "verifier-1"},
	}}
	submissions := &mockSubmissionStore{submissions: map[string]*models.Submission{
		"sub-1": approvedSubmission("sub-1", "vendor-1"),
		"sub-2": newSubmissionFixture("sub-2", "vendor-1"),
	}}
	svc := NewScanService(store, submissions, &mockAuditSink{}, stubQRParser{}, nil, zap.NewNop())

	scans, _, err := svc.History(context.Background(), "sub-1", models.QrScanFilter{}, verifierClaims())
	require.NoError(t, err)
	assert.Len(t, scans, 1)

	// non-approved trails are invisible to gate staff, matching the
	// submission read path
	_, _, err = svc.History(context.Background(), "sub-2", models.QrScanFilter{}, verifierClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScanServiceCreateFailureSurfaces(t *testing.T) {
	submissions := &mockSubmissionStore{submissions: map[string]*models.Submission{
		"sub-1": approvedSubmission("sub-1", "vendor-1"),
	}}
	svc := NewScanService(&mockScanStore{createErr: sql.ErrConnDone}, submissions, &mockAuditSink{}, stubQRParser{submissionID: "sub-1"}, nil, zap.NewNop())

	_, err := svc.Verify(context.Background(), dto.VerifyScanRequest{Code: "signed-token"}, verifierClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
