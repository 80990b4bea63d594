package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/simlok-id/simlok-api/internal/dto"
	"github.com/simlok-id/simlok-api/internal/models"
	appErrors "github.com/simlok-id/simlok-api/pkg/errors"
)

type workerStore interface {
	Create(ctx context.Context, worker *models.WorkerPhoto) error
	GetByID(ctx context.Context, id string) (*models.WorkerPhoto, error)
	ListBySubmission(ctx context.Context, submissionID string) ([]models.WorkerPhoto, error)
	Delete(ctx context.Context, submissionID, workerID string) error
}

type workerSubmissionStore interface {
	GetByID(ctx context.Context, id string) (*models.Submission, error)
}

// photoStore removes stored roster photo files.
type photoStore interface {
	Delete(filename string) error
}

// WorkerService manages the roster attached to a submission. Roster edits
// follow the same lock as content edits: once a submission is finalized
// its roster is frozen.
type WorkerService struct {
	repo        workerStore
	submissions workerSubmissionStore
	audit       auditLogger
	files       photoStore
	validator   *validator.Validate
	logger      *zap.Logger
}

// WorkerServiceOption customises optional collaborators.
type WorkerServiceOption func(*WorkerService)

// WithWorkerFiles enables best-effort photo file cleanup on roster delete.
func WithWorkerFiles(files photoStore) WorkerServiceOption {
	return func(s *WorkerService) { s.files = files }
}

// NewWorkerService constructs the service.
func NewWorkerService(repo workerStore, submissions workerSubmissionStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger, opts ...WorkerServiceOption) *WorkerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	s := &WorkerService{repo: repo, submissions: submissions, audit: audit, validator: validate, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends one roster entry to a pending submission.
func (s *WorkerService) Add(ctx context.Context, submissionID string, req dto.CreateWorkerRequest, actor *models.JWTClaims) (*models.WorkerPhoto, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid worker payload")
	}
	submission, err := s.guardAdd(ctx, submissionID, actor)
	if err != nil {
		return nil, err
	}

	worker := &models.WorkerPhoto{
		SubmissionID:   submission.ID,
		WorkerName:     strings.TrimSpace(req.WorkerName),
		PhotoPath:      req.PhotoPath,
		HSSEPassNumber: req.HSSEPassNumber,
		HSSEPassExpiry: req.HSSEPassExpiry,
		HSSEPassDoc:    req.HSSEPassDoc,
	}
	if err := s.repo.Create(ctx, worker); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store roster entry")
	}

	newPayload, _ := json.Marshal(worker)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionWorkerAdd,
		Resource:   "worker_photos",
		ResourceID: &worker.ID,
		NewValues:  newPayload,
	})
	return worker, nil
}

// List returns the roster for a submission, enforcing vendor scope.
func (s *WorkerService) List(ctx context.Context, submissionID string, actor *models.JWTClaims) ([]models.WorkerPhoto, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	submission, err := s.loadSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleVendor && submission.UserID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	workers, err := s.repo.ListBySubmission(ctx, submission.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return workers, nil
}

// Remove deletes one roster entry from a pending submission.
func (s *WorkerService) Remove(ctx context.Context, submissionID, workerID string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if _, err := s.guardRemove(ctx, submissionID, actor); err != nil {
		return err
	}
	worker, err := s.repo.GetByID(ctx, workerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "worker not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load worker")
	}
	if worker.SubmissionID != submissionID {
		return appErrors.Clone(appErrors.ErrNotFound, "worker not found")
	}

	if err := s.repo.Delete(ctx, submissionID, workerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "worker not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete worker")
	}

	if s.files != nil && worker.PhotoPath != "" {
		if err := s.files.Delete(worker.PhotoPath); err != nil {
			s.logger.Warn("failed to remove roster photo file",
				zap.String("path", worker.PhotoPath), zap.Error(err))
		}
	}

	oldPayload, _ := json.Marshal(worker)
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionWorkerRemove,
		Resource:   "worker_photos",
		ResourceID: &worker.ID,
		OldValues:  oldPayload,
	})
	return nil
}

// guardAdd checks actor permissions and the finalize lock for roster
// inserts. Vendors may only grow their own roster while the review is
// still pending; reviewers and admins may do so until finalization.
func (s *WorkerService) guardAdd(ctx context.Context, submissionID string, actor *models.JWTClaims) (*models.Submission, error) {
	submission, err := s.loadSubmission(ctx, submissionID)
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
	return submission, nil
}

// guardRemove allows roster deletes for reviewers and admins only.
func (s *WorkerService) guardRemove(ctx context.Context, submissionID string, actor *models.JWTClaims) (*models.Submission, error) {
	submission, err := s.loadSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if submission.Finalized() {
		return nil, appErrors.ErrFinalized
	}
	switch actor.Role {
	case models.RoleSuperAdmin, models.RoleAdmin, models.RoleReviewer:
	default:
		return nil, appErrors.ErrForbidden
	}
	return submission, nil
}

func (s *WorkerService) loadSubmission(ctx context.Context, id string) (*models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return submission, nil
}

func (s *WorkerService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if log.IPAddress == "" {
		log.IPAddress = "system"
	}
	if log.UserAgent == "" {
		log.UserAgent = "worker-service"
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
