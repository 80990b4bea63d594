package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/simlok-id/simlok-api/internal/models"
)

func dialTestClient(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Register(conn, models.RoleAdmin)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastsSubmissionEvents(t *testing.T) {
	hub := NewHub(zap.NewNop())
	conn := dialTestClient(t, hub)

	// registration happens in the server handler goroutine
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.SubmissionCreated(&models.Submission{ID: "sub-1", VendorName: "PT Maju Jaya"})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, EventSubmissionCreated, msg.Event)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "sub-1", data["id"])
}

func TestHubDropsClosedClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	conn := dialTestClient(t, hub)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	// writes to a closed client eventually evict it
	require.Eventually(t, func() bool {
		hub.ScanRecorded(&models.QrScan{ID: "scan-1", SubmissionID: "sub-1"})
		return hub.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)
}
