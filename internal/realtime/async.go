package realtime

import (
	"go.uber.org/zap"

	"github.com/simlok-id/simlok-api/internal/models"
	"github.com/simlok-id/simlok-api/pkg/jobs"
)

// AsyncHub decouples request handlers from websocket writes by pushing
// every broadcast through a jobs queue. A slow or wedged client then
// stalls a queue worker, never the HTTP path that triggered the event.
type AsyncHub struct {
	hub    *Hub
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAsyncHub wraps hub so broadcasts run on queue workers. The caller
// owns the queue lifecycle and must register DispatchHandler with it.
func NewAsyncHub(hub *Hub, queue *jobs.Queue, logger *zap.Logger) *AsyncHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsyncHub{hub: hub, queue: queue, logger: logger}
}

// Hub exposes the wrapped hub for connection registration.
func (a *AsyncHub) Hub() *Hub {
	return a.hub
}

// SubmissionCreated queues a submission_created broadcast.
func (a *AsyncHub) SubmissionCreated(submission *models.Submission) {
	a.dispatch(EventSubmissionCreated, func() { a.hub.SubmissionCreated(submission) })
}

// SubmissionUpdated queues a submission_updated broadcast.
func (a *AsyncHub) SubmissionUpdated(submission *models.Submission) {
	a.dispatch(EventSubmissionUpdated, func() { a.hub.SubmissionUpdated(submission) })
}

// SubmissionReviewed queues a submission_reviewed broadcast.
func (a *AsyncHub) SubmissionReviewed(submission *models.Submission) {
	a.dispatch(EventSubmissionReviewed, func() { a.hub.SubmissionReviewed(submission) })
}

// SubmissionFinalized queues a submission_finalized broadcast.
func (a *AsyncHub) SubmissionFinalized(submission *models.Submission) {
	a.dispatch(EventSubmissionFinalized, func() { a.hub.SubmissionFinalized(submission) })
}

// ScanRecorded queues a scan_recorded broadcast.
func (a *AsyncHub) ScanRecorded(scan *models.QrScan) {
	a.dispatch(EventScanRecorded, func() { a.hub.ScanRecorded(scan) })
}

func (a *AsyncHub) dispatch(event string, fire func()) {
	if a.queue == nil {
		fire()
		return
	}
	err := a.queue.Enqueue(jobs.Job{Type: event, Payload: jobs.Func(fire)})
	if err != nil {
		// Queue full or stopped. The event is a refresh hint, so fire
		// inline rather than lose it.
		a.logger.Warn("broadcast queue rejected event", zap.String("event", event), zap.Error(err))
		fire()
	}
}
