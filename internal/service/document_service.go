package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/simlok-id/simlok-api/internal/models"
	appErrors "github.com/simlok-id/simlok-api/pkg/errors"
	"github.com/simlok-id/simlok-api/pkg/export"
)

type documentSubmissionStore interface {
	GetByID(ctx context.Context, id string) (*models.Submission, error)
}

type documentWorkerStore interface {
	ListBySubmission(ctx context.Context, submissionID string) ([]models.WorkerPhoto, error)
}

// PermitRenderer projects a permit document into printable bytes.
type PermitRenderer interface {
	Render(doc export.PermitDocument) ([]byte, error)
}

// DocumentService renders approved submissions as SIMLOK PDF sheets.
type DocumentService struct {
	submissions documentSubmissionStore
	workers     documentWorkerStore
	renderer    PermitRenderer
	cityLabel   string
	logger      *zap.Logger
}

// NewDocumentService constructs the service.
func NewDocumentService(submissions documentSubmissionStore, workers documentWorkerStore, renderer PermitRenderer, cityLabel string, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = export.NewPermitRenderer()
	}
	return &DocumentService{
		submissions: submissions,
		workers:     workers,
		renderer:    renderer,
		cityLabel:   cityLabel,
		logger:      logger,
	}
}

// RenderPermit builds the printable PDF for an approved submission.
// Vendors may only print their own permits.
func (s *DocumentService) RenderPermit(ctx context.Context, submissionID string, actor *models.JWTClaims) ([]byte, string, error) {
	if actor == nil {
		return nil, "", appErrors.ErrUnauthorized
	}
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	if actor.Role == models.RoleVendor && submission.UserID != actor.UserID {
		return nil, "", appErrors.ErrForbidden
	}
	// 409 rather than the scan path's 400: the resource exists, its
	// lifecycle state just does not allow printing yet.
	if submission.FinalStatus != models.FinalStatusApproved || submission.PermitNumber == nil {
		return nil, "", appErrors.New(appErrors.ErrNotApproved.Code, http.StatusConflict, "only approved submissions can be printed")
	}

	roster, err := s.workers.ListBySubmission(ctx, submission.ID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	doc := buildPermitDocument(submission, roster, s.cityLabel)
	payload, err := s.renderer.Render(doc)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render permit")
	}

	filename := permitFilename(*submission.PermitNumber)
	return payload, filename, nil
}

func buildPermitDocument(submission *models.Submission, roster []models.WorkerPhoto, cityLabel string) export.PermitDocument {
	doc := export.PermitDocument{
		PermitNumber:   derefString(submission.PermitNumber),
		VendorName:     submission.VendorName,
		OfficerName:    submission.OfficerName,
		BasedOn:        submission.BasedOn,
		JobDescription: submission.JobDescription,
		WorkLocation:   submission.WorkLocation,
		Implementation: submission.Implementation,
		WorkingHours:   submission.WorkingHours,
		Content:        submission.Content,
		OtherNotes:     submission.OtherNotes,
		SignerPosition: submission.SignerPosition,
		SignerName:     submission.SignerName,
		CityLabel:      cityLabel,
	}
	if submission.SimlokDate != nil {
		doc.PermitDate = *submission.SimlokDate
	}
	if submission.Tembusan != nil {
		for _, line := range strings.Split(*submission.Tembusan, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				doc.Tembusan = append(doc.Tembusan, line)
			}
		}
	}
	for _, worker := range roster {
		doc.Workers = append(doc.Workers, export.PermitWorker{
			Name:           worker.WorkerName,
			HSSEPassNumber: derefString(worker.HSSEPassNumber),
		})
	}
	return doc
}

// permitFilename flattens the permit number into a safe attachment name.
func permitFilename(permitNumber string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", " ", "_")
	return "simlok-" + replacer.Replace(permitNumber) + ".pdf"
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
