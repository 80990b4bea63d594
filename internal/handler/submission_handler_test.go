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
	"github.com/simlok-id/simlok-api/internal/middleware"
	"github.com/simlok-id/simlok-api/internal/models"
	appErrors "github.com/simlok-id/simlok-api/pkg/errors"
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

type fakeSubmissionSrv struct {
	detail     *dto.SubmissionDetail
	submission *models.Submission
	list       []models.Submission
	err        error
	lastQuery  dto.SubmissionQuery
	lastReview dto.ReviewSubmissionRequest
	lastFinal  dto.FinalizeSubmissionRequest
	deletedID  string
}

func (f *fakeSubmissionSrv) Create(_ context.Context, req dto.CreateSubmissionRequest, actor *models.JWTClaims) (*dto.SubmissionDetail, error) {
	return f.detail, f.err
}

func (f *fakeSubmissionSrv) List(_ context.Context, query dto.SubmissionQuery, actor *models.JWTClaims) ([]models.Submission, *models.Pagination, error) {
	f.lastQuery = query
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.list, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(f.list)}, nil
}

func (f *fakeSubmissionSrv) Get(_ context.Context, id string, actor *models.JWTClaims) (*dto.SubmissionDetail, error) {
	return f.detail, f.err
}

func (f *fakeSubmissionSrv) Update(_ context.Context, id string, req dto.UpdateSubmissionRequest, actor *models.JWTClaims) (*models.Submission, error) {
	return f.submission, f.err
}

func (f *fakeSubmissionSrv) Review(_ context.Context, id string, req dto.ReviewSubmissionRequest, reviewer *models.JWTClaims) (*models.Submission, error) {
	f.lastReview = req
	return f.submission, f.err
}

func (f *fakeSubmissionSrv) Finalize(_ context.Context, id string, req dto.FinalizeSubmissionRequest, approver *models.JWTClaims) (*models.Submission, error) {
	f.lastFinal = req
	return f.submission, f.err
}

func (f *fakeSubmissionSrv) Delete(_ context.Context, id string, actor *models.JWTClaims) error {
	f.deletedID = id
	return f.err
}

func (f *fakeSubmissionSrv) Stats(_ context.Context, actor *models.JWTClaims) (*models.SubmissionStats, error) {
	return &models.SubmissionStats{Total: len(f.list)}, f.err
}

type fakeDocumentSrv struct {
	payload  []byte
	filename string
	err      error
}

func (f *fakeDocumentSrv) RenderPermit(_ context.Context, submissionID string, actor *models.JWTClaims) ([]byte, string, error) {
	return f.payload, f.filename, f.err
}

func testContext(t *testing.T, method, target string, body interface{}, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, FullName: "Admin"}
}

func TestSubmissionHandlerCreate(t *testing.T) {
	srv := &fakeSubmissionSrv{detail: &dto.SubmissionDetail{
		Submission:  &models.Submission{ID: "sub-1", VendorName: "PT Maju Jaya"},
		RosterCount: 1,
	}}
	handler := NewSubmissionHandler(srv, nil)

	c, rec := testContext(t, http.MethodPost, "/submissions", dto.CreateSubmissionRequest{
		VendorName:     "PT Maju Jaya",
		OfficerName:    "Budi",
		JobDescription: "Pipa",
		WorkLocation:   "Area 3",
	}, adminClaims())
	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSubmissionHandlerCreateRejectsBadJSON(t *testing.T) {
	handler := NewSubmissionHandler(&fakeSubmissionSrv{}, nil)

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/submissions", bytes.NewReader([]byte("{broken")))
	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmissionHandlerListParsesStatusFilters(t *testing.T) {
	srv := &fakeSubmissionSrv{list: []models.Submission{{ID: "sub-1"}}}
	handler := NewSubmissionHandler(srv, nil)

	c, rec := testContext(t, http.MethodGet, "/submissions?final_status=pending_approval,approved&review_status=pending_review&page=2&limit=5", nil, adminClaims())
	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []models.FinalStatus{models.FinalStatusPending, models.FinalStatusApproved}, srv.lastQuery.FinalStatus)
	assert.Equal(t, []models.ReviewStatus{models.ReviewStatusPending}, srv.lastQuery.ReviewStatus)
	assert.Equal(t, 2, srv.lastQuery.Page)
	assert.Equal(t, 5, srv.lastQuery.Limit)
}

func TestSubmissionHandlerListWithStatsMeta(t *testing.T) {
	srv := &fakeSubmissionSrv{list: []models.Submission{{ID: "sub-1"}}}
	handler := NewSubmissionHandler(srv, nil)

	c, rec := testContext(t, http.MethodGet, "/submissions?stats=true", nil, adminClaims())
	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.lastQuery.WithStats)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Contains(t, envelope.Meta, "stats")
}

func TestSubmissionHandlerFinalizeConflict(t *testing.T) {
	srv := &fakeSubmissionSrv{err: appErrors.ErrFinalized}
	handler := NewSubmissionHandler(srv, nil)

	c, rec := testContext(t, http.MethodPost, "/submissions/sub-1/finalize", dto.FinalizeSubmissionRequest{
		Decision:     models.FinalStatusApproved,
		PermitNumber: "SIMLOK/001/2026",
	}, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "sub-1"}}
	handler.Finalize(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "SUBMISSION_FINALIZED", envelope.Error["code"])
}

func TestSubmissionHandlerGetServesPDF(t *testing.T) {
	docs := &fakeDocumentSrv{payload: []byte("%PDF-stub"), filename: "simlok-001.pdf"}
	handler := NewSubmissionHandler(&fakeSubmissionSrv{}, docs)

	c, rec := testContext(t, http.MethodGet, "/submissions/sub-1?format=pdf", nil, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "sub-1"}}
	handler.Get(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "simlok-001.pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestSubmissionHandlerPDFDisabled(t *testing.T) {
	handler := NewSubmissionHandler(&fakeSubmissionSrv{}, nil)

	c, rec := testContext(t, http.MethodGet, "/submissions/sub-1/pdf", nil, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "sub-1"}}
	handler.PDF(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmissionHandlerDelete(t *testing.T) {
	srv := &fakeSubmissionSrv{}
	handler := NewSubmissionHandler(srv, nil)

	c, rec := testContext(t, http.MethodDelete, "/submissions/sub-1", nil, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "sub-1"}}
	handler.Delete(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "sub-1", srv.deletedID)
}
