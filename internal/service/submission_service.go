package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simlok-id/simlok-api/internal/dto"
	"github.com/simlok-id/simlok-api/internal/models"
	"github.com/simlok-id/simlok-api/internal/repository"
	appErrors "github.com/simlok-id/simlok-api/pkg/errors"
)

type submissionStore interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error)
	Update(ctx context.Context, submission *models.Submission) error
	SetReview(ctx context.Context, params repository.ReviewParams) error
	Finalize(ctx context.Context, params repository.FinalizeParams) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.SubmissionStats, error)
}

type submissionWorkerStore interface {
	Create(ctx context.Context, worker *models.WorkerPhoto) error
	ListBySubmission(ctx context.Context, submissionID string) ([]models.WorkerPhoto, error)
	CountBySubmission(ctx context.Context, submissionID string) (int, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// QRIssuer mints the scan token embedded in new permits.
type QRIssuer interface {
	Issue(submissionID string) (string, time.Time, error)
}

// SubmissionBroadcaster pushes lifecycle events to connected dashboards.
type SubmissionBroadcaster interface {
	SubmissionCreated(submission *models.Submission)
	SubmissionUpdated(submission *models.Submission)
	SubmissionReviewed(submission *models.Submission)
	SubmissionFinalized(submission *models.Submission)
}

// SubmissionService orchestrates the permit request lifecycle.
type SubmissionService struct {
	repo      submissionStore
	workers   submissionWorkerStore
	audit     auditLogger
	qr        QRIssuer
	hub       SubmissionBroadcaster
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// SubmissionServiceOption configures optional collaborators.
type SubmissionServiceOption func(*SubmissionService)

// WithSubmissionBroadcaster wires the realtime hub.
func WithSubmissionBroadcaster(hub SubmissionBroadcaster) SubmissionServiceOption {
	return func(s *SubmissionService) { s.hub = hub }
}

// WithSubmissionCache wires cache invalidation for list and stats keys.
func WithSubmissionCache(cache *CacheService) SubmissionServiceOption {
	return func(s *SubmissionService) { s.cache = cache }
}

// WithSubmissionMetrics wires decision counters.
func WithSubmissionMetrics(metrics *MetricsService) SubmissionServiceOption {
	return func(s *SubmissionService) { s.metrics = metrics }
}

// NewSubmissionService constructs the service.
func NewSubmissionService(repo submissionStore, workers submissionWorkerStore, audit auditLogger, qr QRIssuer, validate *validator.Validate, logger *zap.Logger, opts ...SubmissionServiceOption) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &SubmissionService{
		repo:      repo,
		workers:   workers,
		audit:     audit,
		qr:        qr,
		validator: validate,
		logger:    logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create stores a new submission with both workflow states pending and a
// freshly minted scan token. Inline workers become the initial roster.
func (s *SubmissionService) Create(ctx context.Context, req dto.CreateSubmissionRequest, actor *models.JWTClaims) (*dto.SubmissionDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleVendor, models.RoleAdmin, models.RoleSuperAdmin:
	default:
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	id := uuid.NewString()
	token, _, err := s.qr.Issue(id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mint scan token")
	}

	submission := &models.Submission{
		ID:             id,
		UserID:         actor.UserID,
		VendorName:     strings.TrimSpace(req.VendorName),
		BasedOn:        req.BasedOn,
		OfficerName:    strings.TrimSpace(req.OfficerName),
		JobDescription: req.JobDescription,
		WorkLocation:   req.WorkLocation,
		Implementation: req.Implementation,
		WorkingHours:   req.WorkingHours,
		OtherNotes:     req.OtherNotes,
		WorkFacilities: req.WorkFacilities,
		WorkerCount:    req.WorkerCount,

		SimjaNumber:        req.SimjaNumber,
		SimjaDate:          req.SimjaDate,
		SikaNumber:         req.SikaNumber,
		SikaDate:           req.SikaDate,
		SupportingDoc1Name: req.SupportingDoc1Name,
		SupportingDoc1Num:  req.SupportingDoc1Num,
		SupportingDoc1Date: req.SupportingDoc1Date,
		SupportingDoc2Name: req.SupportingDoc2Name,
		SupportingDoc2Num:  req.SupportingDoc2Num,
		SupportingDoc2Date: req.SupportingDoc2Date,

		ReviewStatus: models.ReviewStatusPending,
		FinalStatus:  models.FinalStatusPending,
		QRCode:       token,
	}
	if actor.Role == models.RoleVendor && actor.VendorName != nil && submission.VendorName == "" {
		submission.VendorName = *actor.VendorName
	}

	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
	}

	workers := make([]models.WorkerPhoto, 0, len(req.Workers))
	for _, w := range req.Workers {
		worker := models.WorkerPhoto{
			SubmissionID:   submission.ID,
			WorkerName:     strings.TrimSpace(w.WorkerName),
			PhotoPath:      w.PhotoPath,
			HSSEPassNumber: w.HSSEPassNumber,
			HSSEPassExpiry: w.HSSEPassExpiry,
			HSSEPassDoc:    w.HSSEPassDoc,
		}
		if err := s.workers.Create(ctx, &worker); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store roster entry")
		}
		workers = append(workers, worker)
	}

	newPayload, _ := json.Marshal(submission)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionSubmissionCreate,
		Resource:   "submissions",
		ResourceID: &submission.ID,
		NewValues:  newPayload,
	})
	if s.hub != nil {
		s.hub.SubmissionCreated(submission)
	}
	s.invalidateCaches(ctx)

	return s.detail(submission, workers), nil
}

// List returns submissions scoped by role: vendors see only their own,
// back-office roles see everything, verifiers are limited to the scan API.
func (s *SubmissionService) List(ctx context.Context, query dto.SubmissionQuery, actor *models.JWTClaims) ([]models.Submission, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter := models.SubmissionFilter{
		ReviewStatus: query.ReviewStatus,
		FinalStatus:  query.FinalStatus,
		Vendor:       strings.TrimSpace(query.Vendor),
		Search:       strings.TrimSpace(query.Search),
		Page:         query.Page,
		PageSize:     query.Limit,
		SortBy:       query.SortBy,
		SortOrder:    query.SortOrder,
	}
	switch actor.Role {
	case models.RoleSuperAdmin, models.RoleAdmin, models.RoleReviewer, models.RoleApprover:
		// full visibility
	case models.RoleVendor:
		filter.UserID = actor.UserID
	case models.RoleVerifier:
		// Gate staff only see permits they could accept.
		filter.FinalStatus = []models.FinalStatus{models.FinalStatusApproved}
	default:
		return nil, nil, appErrors.ErrForbidden
	}

	submissions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	pagination := &models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}
	return submissions, pagination, nil
}

// Stats returns lifecycle aggregate counters for back-office dashboards.
func (s *SubmissionService) Stats(ctx context.Context, actor *models.JWTClaims) (*models.SubmissionStats, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleSuperAdmin, models.RoleAdmin, models.RoleReviewer, models.RoleApprover:
	default:
		return nil, appErrors.ErrForbidden
	}
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate stats")
	}
	return stats, nil
}

// Get loads one submission with its roster, enforcing vendor scope.
func (s *SubmissionService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.SubmissionDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	submission, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleVendor && submission.UserID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	if actor.Role == models.RoleVerifier && submission.FinalStatus != models.FinalStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
	}
	workers, err := s.workers.ListBySubmission(ctx, submission.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return s.detail(submission, workers), nil
}

// Update patches editable content. Vendors may touch only their own rows
// and only before a verdict is recorded; back-office editors may patch any
// row until it is finalized.
func (s *SubmissionService) Update(ctx context.Context, id string, req dto.UpdateSubmissionRequest, actor *models.JWTClaims) (*models.Submission, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	submission, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.Finalized() {
		return nil, appErrors.ErrFinalized
	}
	switch actor.Role {
	case models.RoleSuperAdmin, models.RoleAdmin, models.RoleReviewer:
	case models.RoleVendor:
		if submission.UserID != actor.UserID {
			return nil, appErrors.ErrForbidden
		}
		if submission.ReviewStatus != models.ReviewStatusPending {
			return nil, appErrors.Clone(appErrors.ErrConflict, "submission already has a review verdict")
		}
	default:
		return nil, appErrors.ErrForbidden
	}

	oldPayload, _ := json.Marshal(submission)
	applySubmissionPatch(submission, req)

	if err := s.repo.Update(ctx, submission); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrFinalized
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update submission")
	}

	newPayload, _ := json.Marshal(submission)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionSubmissionUpdate,
		Resource:   "submissions",
		ResourceID: &submission.ID,
		OldValues:  oldPayload,
		NewValues:  newPayload,
	})
	if s.hub != nil {
		s.hub.SubmissionUpdated(submission)
	}
	s.invalidateCaches(ctx)
	return submission, nil
}

// Review records the reviewer verdict with both mandatory notes. Verdicts
// may be revised any number of times until the approver decision lands.
func (s *SubmissionService) Review(ctx context.Context, id string, req dto.ReviewSubmissionRequest, reviewer *models.JWTClaims) (*models.Submission, error) {
	if reviewer == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	if req.Verdict != models.ReviewStatusMeets && req.Verdict != models.ReviewStatusNotMeets {
		return nil, appErrors.Clone(appErrors.ErrValidation, "verdict must be MEETS_REQUIREMENTS or NOT_MEETS_REQUIREMENTS")
	}

	submission, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.Finalized() {
		return nil, appErrors.ErrFinalized
	}

	now := time.Now().UTC()
	params := repository.ReviewParams{
		ID:            submission.ID,
		Verdict:       req.Verdict,
		ReviewNote:    req.ReviewNote,
		NoteForVendor: req.NoteForVendor,
		ReviewedBy:    reviewer.UserID,
		ReviewedAt:    now,
	}
	if err := s.repo.SetReview(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrFinalized
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record review")
	}

	submission.ReviewStatus = req.Verdict
	submission.ReviewNote = &req.ReviewNote
	submission.NoteForVendor = &req.NoteForVendor
	submission.ReviewedBy = &reviewer.UserID
	submission.ReviewedAt = &now
	submission.UpdatedAt = now

	newPayload, _ := json.Marshal(map[string]interface{}{
		"review_status":   submission.ReviewStatus,
		"review_note":     req.ReviewNote,
		"note_for_vendor": req.NoteForVendor,
	})
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &reviewer.UserID,
		Action:     models.AuditActionSubmissionReview,
		Resource:   "submissions",
		ResourceID: &submission.ID,
		NewValues:  newPayload,
	})
	if s.hub != nil {
		s.hub.SubmissionReviewed(submission)
	}
	s.invalidateCaches(ctx)
	return submission, nil
}

// Finalize locks in the approver decision. APPROVED requires a permit
// number; REJECTED must not carry one. The repository enforces the one-way
// transition, so a row that already left PENDING_APPROVAL surfaces as a
// conflict regardless of racing callers.
func (s *SubmissionService) Finalize(ctx context.Context, id string, req dto.FinalizeSubmissionRequest, approver *models.JWTClaims) (*models.Submission, error) {
	if approver == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid finalize payload")
	}

	permitNumber := strings.TrimSpace(req.PermitNumber)
	switch req.Decision {
	case models.FinalStatusApproved:
		if permitNumber == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "permit_number is required for approval")
		}
		if strings.TrimSpace(req.Tembusan) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "tembusan is required for approval")
		}
	case models.FinalStatusRejected:
		if permitNumber != "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "permit_number must be empty for rejection")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be APPROVED or REJECTED")
	}

	submission, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.Finalized() {
		return nil, appErrors.ErrFinalized
	}

	now := time.Now().UTC()
	params := repository.FinalizeParams{
		ID:         submission.ID,
		Decision:   req.Decision,
		Tembusan:   optionalString(req.Tembusan),
		FinalNote:  optionalString(req.FinalNote),
		SimlokDate: req.SimlokDate,
		ApprovedBy: approver.UserID,
		ApprovedAt: now,
	}
	if req.Decision == models.FinalStatusApproved {
		params.PermitNumber = &permitNumber
		if params.SimlokDate == nil {
			params.SimlokDate = &now
		}
	}
	if err := s.repo.Finalize(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrFinalized
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalize submission")
	}

	submission.FinalStatus = req.Decision
	submission.PermitNumber = params.PermitNumber
	submission.Tembusan = params.Tembusan
	submission.FinalNote = params.FinalNote
	submission.SimlokDate = params.SimlokDate
	submission.ApprovedBy = &approver.UserID
	submission.ApprovedAt = &now
	submission.UpdatedAt = now

	if s.metrics != nil {
		s.metrics.RecordDecision(string(req.Decision))
	}
	newPayload, _ := json.Marshal(map[string]interface{}{
		"final_status":  submission.FinalStatus,
		"permit_number": submission.PermitNumber,
	})
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &approver.UserID,
		Action:     models.AuditActionSubmissionFinalize,
		Resource:   "submissions",
		ResourceID: &submission.ID,
		NewValues:  newPayload,
	})
	if s.hub != nil {
		s.hub.SubmissionFinalized(submission)
	}
	s.invalidateCaches(ctx)
	return submission, nil
}

// Delete removes a still-pending submission together with its roster.
func (s *SubmissionService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	submission, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	switch actor.Role {
	case models.RoleSuperAdmin, models.RoleAdmin:
	case models.RoleVendor:
		if submission.UserID != actor.UserID {
			return appErrors.ErrForbidden
		}
	default:
		return appErrors.ErrForbidden
	}
	if submission.Finalized() {
		return appErrors.ErrFinalized
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrFinalized
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete submission")
	}

	oldPayload, _ := json.Marshal(submission)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionSubmissionDelete,
		Resource:   "submissions",
		ResourceID: &submission.ID,
		OldValues:  oldPayload,
	})
	s.invalidateCaches(ctx)
	return nil
}

func (s *SubmissionService) load(ctx context.Context, id string) (*models.Submission, error) {
	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return submission, nil
}

func (s *SubmissionService) detail(submission *models.Submission, workers []models.WorkerPhoto) *dto.SubmissionDetail {
	return &dto.SubmissionDetail{
		Submission:          submission,
		Workers:             workers,
		RosterCount:         len(workers),
		WorkerCountMismatch: submission.WorkerCount != len(workers),
	}
}

func (s *SubmissionService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if log.IPAddress == "" {
		log.IPAddress = "system"
	}
	if log.UserAgent == "" {
		log.UserAgent = "submission-service"
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func (s *SubmissionService) invalidateCaches(ctx context.Context) {
	if s.cache == nil {
		return
	}
	for _, pattern := range []string{"stats:*", "submissions:*"} {
		if err := s.cache.Invalidate(ctx, pattern); err != nil {
			s.logger.Warn("failed to invalidate cache", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}

func applySubmissionPatch(submission *models.Submission, req dto.UpdateSubmissionRequest) {
	if req.VendorName != nil {
		submission.VendorName = *req.VendorName
	}
	if req.BasedOn != nil {
		submission.BasedOn = *req.BasedOn
	}
	if req.OfficerName != nil {
		submission.OfficerName = *req.OfficerName
	}
	if req.JobDescription != nil {
		submission.JobDescription = *req.JobDescription
	}
	if req.WorkLocation != nil {
		submission.WorkLocation = *req.WorkLocation
	}
	if req.Implementation != nil {
		submission.Implementation = *req.Implementation
	}
	if req.WorkingHours != nil {
		submission.WorkingHours = *req.WorkingHours
	}
	if req.OtherNotes != nil {
		submission.OtherNotes = *req.OtherNotes
	}
	if req.WorkFacilities != nil {
		submission.WorkFacilities = *req.WorkFacilities
	}
	if req.WorkerCount != nil {
		submission.WorkerCount = *req.WorkerCount
	}
	if req.SimjaNumber != nil {
		submission.SimjaNumber = req.SimjaNumber
	}
	if req.SimjaDate != nil {
		submission.SimjaDate = req.SimjaDate
	}
	if req.SikaNumber != nil {
		submission.SikaNumber = req.SikaNumber
	}
	if req.SikaDate != nil {
		submission.SikaDate = req.SikaDate
	}
	if req.SupportingDoc1Name != nil {
		submission.SupportingDoc1Name = req.SupportingDoc1Name
	}
	if req.SupportingDoc1Num != nil {
		submission.SupportingDoc1Num = req.SupportingDoc1Num
	}
	if req.SupportingDoc1Date != nil {
		submission.SupportingDoc1Date = req.SupportingDoc1Date
	}
	if req.SupportingDoc2Name != nil {
		submission.SupportingDoc2Name = req.SupportingDoc2Name
	}
	if req.SupportingDoc2Num != nil {
		submission.SupportingDoc2Num = req.SupportingDoc2Num
	}
	if req.SupportingDoc2Date != nil {
		submission.SupportingDoc2Date = req.SupportingDoc2Date
	}
	if req.ImplementationStart != nil {
		submission.ImplementationStart = req.ImplementationStart
	}
	if req.ImplementationEnd != nil {
		submission.ImplementationEnd = req.ImplementationEnd
	}
	if req.HolidayWorkingHours != nil {
		submission.HolidayWorkingHours = *req.HolidayWorkingHours
	}
	if req.SignerPosition != nil {
		submission.SignerPosition = *req.SignerPosition
	}
	if req.SignerName != nil {
		submission.SignerName = *req.SignerName
	}
	if req.Content != nil {
		submission.Content = *req.Content
	}
}

func optionalString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	v := strings.TrimSpace(value)
	return &v
}
