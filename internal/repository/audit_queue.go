package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/simlok-id/simlok-api/internal/models"
	"github.com/simlok-id/simlok-api/pkg/jobs"
)

const auditJobType = "audit_log"

// AuditQueue moves audit log inserts off the request path. Entries are
// enqueued and written by queue workers; if the queue is unavailable
// the entry is written inline so the trail stays complete.
type AuditQueue struct {
	repo   *UserRepository
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditQueue wraps repo with queue-backed writes. Pass the queue
// built with AuditHandler(repo) as its handler.
func NewAuditQueue(repo *UserRepository, queue *jobs.Queue, logger *zap.Logger) *AuditQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditQueue{repo: repo, queue: queue, logger: logger}
}

// AuditHandler returns the jobs handler that persists queued entries.
func AuditHandler(repo *UserRepository) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		entry, ok := job.Payload.(*models.AuditLog)
		if !ok {
			return fmt.Errorf("audit job payload is %T, want *models.AuditLog", job.Payload)
		}
		return repo.CreateAuditLog(ctx, entry)
	}
}

// CreateAuditLog enqueues the entry for asynchronous persistence.
func (q *AuditQueue) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if q.queue == nil {
		return q.repo.CreateAuditLog(ctx, entry)
	}
	if err := q.queue.Enqueue(jobs.Job{Type: auditJobType, Payload: entry}); err != nil {
		q.logger.Warn("audit queue rejected entry, writing inline", zap.Error(err))
		return q.repo.CreateAuditLog(ctx, entry)
	}
	return nil
}
