package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simlok-id/simlok-api/internal/dto"
	"github.com/simlok-id/simlok-api/internal/models"
	appErrors "github.com/simlok-id/simlok-api/pkg/errors"
)

type fakeScanSrv struct {
	result   *dto.ScanResult
	scans    []models.QrScan
	err      error
	lastCode string
}

func (f *fakeScanSrv) Verify(_ context.Context, req dto.VerifyScanRequest, verifier *models.JWTClaims) (*dto.ScanResult, error) {
	f.lastCode = req.Code
	return f.result, f.err
}

func (f *fakeScanSrv) History(_ context.Context, submissionID string, filter models.QrScanFilter, actor *models.JWTClaims) ([]models.QrScan, *models.Pagination, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.scans, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: len(f.scans)}, nil
}

func TestScanHandlerVerify(t *testing.T) {
	permit := "SIMLOK/001/2026"
	srv := &fakeScanSrv{result: &dto.ScanResult{
		Scan:       &models.QrScan{ID: "scan-1", SubmissionID: "sub-1"},
		Submission: dto.SubmissionSummary{ID: "sub-1", PermitNumber: &permit, FinalStatus: "APPROVED"},
	}}
	handler := NewScanHandler(srv)

	c, rec := testContext(t, http.MethodPost, "/scans/verify", dto.VerifyScanRequest{Code: "signed-token"}, adminClaims())
	handler.Verify(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "signed-token", srv.lastCode)
}

func TestScanHandlerVerifyNotApproved(t *testing.T) {
	handler := NewScanHandler(&fakeScanSrv{err: appErrors.ErrNotApproved})

	c, rec := testContext(t, http.MethodPost, "/scans/verify", dto.VerifyScanRequest{Code: "signed-token"}, adminClaims())
	handler.Verify(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "SUBMISSION_NOT_APPROVED", envelope.Error["code"])
}

func TestScanHandlerVerifyRejectsBadJSON(t *testing.T) {
	handler := NewScanHandler(&fakeScanSrv{})

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/scans/verify", bytes.NewReader([]byte("nope")))
	handler.Verify(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScanHandlerHistory(t *testing.T) {
	srv := &fakeScanSrv{scans: []models.QrScan{{ID: "scan-1", SubmissionID: "sub-1"}}}
	handler := NewScanHandler(srv)

	c, rec := testContext(t, http.MethodGet, "/submissions/sub-1/scans?page=1&limit=10", nil, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "sub-1"}}
	handler.History(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}
