package realtime

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/simlok-id/simlok-api/internal/models"
)

// Event names pushed to connected dashboards.
const (
	EventSubmissionCreated   = "submission_created"
	EventSubmissionUpdated   = "submission_updated"
	EventSubmissionReviewed  = "submission_reviewed"
	EventSubmissionFinalized = "submission_finalized"
	EventScanRecorded        = "scan_recorded"
)

// Message is the wire envelope for hub events.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub fans submission lifecycle events out to websocket clients. Clients
// are registered with their role so events can be scoped later without
// changing the transport.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]models.UserRole
	logger  *zap.Logger
}

// NewHub constructs an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]models.UserRole),
		logger:  logger,
	}
}

// Register adds a connection to the broadcast set.
func (h *Hub) Register(conn *websocket.Conn, role models.UserRole) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = role
}

// Unregister removes and closes a connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// SubmissionCreated notifies dashboards about a new submission.
func (h *Hub) SubmissionCreated(submission *models.Submission) {
	h.broadcast(Message{Event: EventSubmissionCreated, Data: submission})
}

// SubmissionUpdated notifies dashboards about edited content.
func (h *Hub) SubmissionUpdated(submission *models.Submission) {
	h.broadcast(Message{Event: EventSubmissionUpdated, Data: submission})
}

// SubmissionReviewed notifies dashboards about a recorded verdict.
func (h *Hub) SubmissionReviewed(submission *models.Submission) {
	h.broadcast(Message{Event: EventSubmissionReviewed, Data: submission})
}

// SubmissionFinalized notifies dashboards about the approver decision.
func (h *Hub) SubmissionFinalized(submission *models.Submission) {
	h.broadcast(Message{Event: EventSubmissionFinalized, Data: submission})
}

// ScanRecorded notifies dashboards about a gate scan.
func (h *Hub) ScanRecorded(scan *models.QrScan) {
	h.broadcast(Message{Event: EventScanRecorded, Data: scan})
}

func (h *Hub) broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("marshal realtime event", zap.String("event", msg.Event), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Debug("drop stale websocket client", zap.Error(err))
			delete(h.clients, conn)
			conn.Close()
		}
	}
}
