package service

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/simlok-id/simlok-api/internal/models"
	appErrors "github.com/simlok-id/simlok-api/pkg/errors"
	"github.com/simlok-id/simlok-api/pkg/export"
)

type capturingRenderer struct {
	doc export.PermitDocument
}

func (r *capturingRenderer) Render(doc export.PermitDocument) ([]byte, error) {
	r.doc = doc
	return []byte("%PDF-stub"), nil
}

func TestDocumentServiceRenderPermit(t *testing.T) {
	fixture := approvedSubmission("sub-1", "vendor-1")
	tembusan := "HSSE Manager\nSecurity Lead"
	fixture.Tembusan = &tembusan
	submissions := &mockSubmissionStore{submissions: map[string]*models.Submission{"sub-1": fixture}}
	workers := &mockWorkerStore{}
	_, err := workersAdd(workers, "sub-1", "Agus")
	require.NoError(t, err)

	renderer := &capturingRenderer{}
	svc := NewDocumentService(submissions, workers, renderer, "Jakarta", zap.NewNop())

	payload, filename, err := svc.RenderPermit(context.Background(), "sub-1", roleClaims("a", models.RoleAdmin))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
	assert.Equal(t, "simlok-SIMLOK-001-2026.pdf", filename)
	assert.Equal(t, "SIMLOK/001/2026", renderer.doc.PermitNumber)
	assert.Equal(t, []string{"HSSE Manager", "Security Lead"}, renderer.doc.Tembusan)
	require.Len(t, renderer.doc.Workers, 1)
	assert.Equal(t, "Agus", renderer.doc.Workers[0].Name)
	assert.Equal(t, "Jakarta", renderer.doc.CityLabel)
}

func TestDocumentServiceRejectsUnapproved(t *testing.T) {
	submissions := &mockSubmissionStore{submissions: map[string]*models.Submission{
		"sub-1": newSubmissionFixture("sub-1", "vendor-1"),
	}}
	svc := NewDocumentService(submissions, &mockWorkerStore{}, &capturingRenderer{}, "", zap.NewNop())

	_, _, err := svc.RenderPermit(context.Background(), "sub-1", roleClaims("a", models.RoleAdmin))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotApproved.Code, appErrors.FromError(err).Code)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
}

func TestDocumentServiceScopesVendor(t *testing.T) {
	submissions := &mockSubmissionStore{submissions: map[string]*models.Submission{
		"sub-1": approvedSubmission("sub-1", "vendor-1"),
	}}
	svc := NewDocumentService(submissions, &mockWorkerStore{}, &capturingRenderer{}, "", zap.NewNop())

	_, _, err := svc.RenderPermit(context.Background(), "sub-1", vendorClaims("vendor-2"))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func workersAdd(store *mockWorkerStore, submissionID, name string) (*models.WorkerPhoto, error) {
	worker := &models.WorkerPhoto{SubmissionID: submissionID, WorkerName: name, PhotoPath: "workers/" + name + ".jpg"}
	if err := store.Create(context.Background(), worker); err != nil {
		return nil, err
	}
	return worker, nil
}
