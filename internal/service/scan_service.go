package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/simlok-id/simlok-api/internal/dto"
	"github.com/simlok-id/simlok-api/internal/models"
	appErrors "github.com/simlok-id/simlok-api/pkg/errors"
)

// legacyScanPrefix is the pre-token QR payload format: the raw submission
// id behind a fixed prefix. Still accepted so printed permits keep working.
const legacyScanPrefix = "SIMLOK:"

type scanStore interface {
	Create(ctx context.Context, scan *models.QrScan) error
	ListBySubmission(ctx context.Context, filter models.QrScanFilter) ([]models.QrScan, int, error)
}

type scanSubmissionStore interface {
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	GetByQRCode(ctx context.Context, code string) (*models.Submission, error)
}

// QRParser validates a scan token and extracts the bound submission id.
type QRParser interface {
	Parse(token string, allowExpired bool) (string, time.Time, error)
}

// ScanBroadcaster pushes scan events to connected dashboards.
type ScanBroadcaster interface {
	ScanRecorded(scan *models.QrScan)
}

// ScanService verifies gate scans against approved permits and keeps the
// append-only scan trail.
type ScanService struct {
	repo        scanStore
	submissions scanSubmissionStore
	audit       auditLogger
	qr          QRParser
	hub         ScanBroadcaster
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// ScanServiceOption configures optional collaborators.
type ScanServiceOption func(*ScanService)

// WithScanBroadcaster wires the realtime hub.
func WithScanBroadcaster(hub ScanBroadcaster) ScanServiceOption {
	return func(s *ScanService) { s.hub = hub }
}

// WithScanMetrics wires scan counters.
func WithScanMetrics(metrics *MetricsService) ScanServiceOption {
	return func(s *ScanService) { s.metrics = metrics }
}

// NewScanService constructs the service.
func NewScanService(repo scanStore, submissions scanSubmissionStore, audit auditLogger, qr QRParser, validate *validator.Validate, logger *zap.Logger, opts ...ScanServiceOption) *ScanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &ScanService{
		repo:        repo,
		submissions: submissions,
		audit:       audit,
		qr:          qr,
		validator:   validate,
		logger:      logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Verify resolves the scanned code, gates on the APPROVED state, and
// appends a scan event. Duplicate scans of the same permit are recorded,
// never rejected.
func (s *ScanService) Verify(ctx context.Context, req dto.VerifyScanRequest, verifier *models.JWTClaims) (*dto.ScanResult, error) {
	if verifier == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scan payload")
	}

	submission, err := s.lookup(ctx, strings.TrimSpace(req.Code))
	if err != nil {
		s.recordOutcome(false)
		return nil, err
	}
	if submission.FinalStatus != models.FinalStatusApproved {
		s.recordOutcome(false)
		return nil, appErrors.Clone(appErrors.ErrNotApproved, "permit is not approved")
	}

	scan := &models.QrScan{
		SubmissionID: submission.ID,
		ScannedBy:    verifier.UserID,
		ScannerName:  verifier.FullName,
		ScanLocation: optionalString(req.Location),
		Notes:        optionalString(req.Notes),
	}
	if err := s.repo.Create(ctx, scan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record scan")
	}
	s.recordOutcome(true)

	newPayload, _ := json.Marshal(scan)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &verifier.UserID,
		Action:     models.AuditActionQRScan,
		Resource:   "qr_scans",
		ResourceID: &scan.ID,
		NewValues:  newPayload,
	})
	if s.hub != nil {
		s.hub.ScanRecorded(scan)
	}

	return &dto.ScanResult{
		Scan: scan,
		Submission: dto.SubmissionSummary{
			ID:             submission.ID,
			PermitNumber:   submission.PermitNumber,
			VendorName:     submission.VendorName,
			OfficerName:    submission.OfficerName,
			JobDescription: submission.JobDescription,
			WorkLocation:   submission.WorkLocation,
			FinalStatus:    string(submission.FinalStatus),
		},
	}, nil
}

// History returns the scan trail for one submission.
func (s *ScanService) History(ctx context.Context, submissionID string, filter models.QrScanFilter, actor *models.JWTClaims) ([]models.QrScan, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	if actor.Role == models.RoleVendor && submission.UserID != actor.UserID {
		return nil, nil, appErrors.ErrForbidden
	}
	// Gate staff only ever see approved permits, so their scan trails
	// answer 404 for anything else, same as the submission read path.
	if actor.Role == models.RoleVerifier && submission.FinalStatus != models.FinalStatusApproved {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
	}

	filter.SubmissionID = submission.ID
	scans, total, err := s.repo.ListBySubmission(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scans")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return scans, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// lookup maps a scanned code to its submission. Codes that no longer
// parse, typically tokens signed before a key rotation, are matched
// against the stored qrcode column byte for byte.
func (s *ScanService) lookup(ctx context.Context, code string) (*models.Submission, error) {
	submissionID, resolveErr := s.resolve(code)
	if resolveErr == nil {
		submission, err := s.submissions.GetByID(ctx, submissionID)
		if err == nil {
			return submission, nil
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "permit not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load permit")
	}
	submission, err := s.submissions.GetByQRCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, resolveErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load permit")
	}
	return submission, nil
}

// resolve maps a raw scan payload to a submission id, accepting both the
// signed token format and the legacy prefixed id.
func (s *ScanService) resolve(code string) (string, error) {
	if code == "" {
		return "", appErrors.Clone(appErrors.ErrInvalidQRToken, "empty scan payload")
	}
	if rest, ok := strings.CutPrefix(code, legacyScanPrefix); ok {
		if strings.TrimSpace(rest) == "" {
			return "", appErrors.Clone(appErrors.ErrInvalidQRToken, "empty legacy scan payload")
		}
		return strings.TrimSpace(rest), nil
	}
	submissionID, _, err := s.qr.Parse(code, false)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInvalidQRToken.Code, appErrors.ErrInvalidQRToken.Status, "qr token rejected")
	}
	return submissionID, nil
}

func (s *ScanService) recordOutcome(ok bool) {
	if s.metrics != nil {
		s.metrics.RecordQRScan(ok)
	}
}

func (s *ScanService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if log.IPAddress == "" {
		log.IPAddress = "system"
	}
	if log.UserAgent == "" {
		log.UserAgent = "scan-service"
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
