package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/linewatch/domain"
)

func wsEvent(id string) domain.AlarmEvent {
	return domain.AlarmEvent{
		ID:         id,
		Key:        domain.AlarmKey{Source: "Pressure", Type: domain.AlarmTypeHighLimit},
		Transition: domain.TransitionRaised,
		Severity:   domain.SeverityWarning,
		TS:         1000,
	}
}

func TestBroadcastPreservesOrder(t *testing.T) {
	hub := newWSHub(slog.Default())

	// A registered client with queue headroom; the write loop is not needed
	// to observe queue order.
	c := &wsClient{send: make(chan []byte, 4)}
	hub.mu.Lock()
	hub.clients[c] = struct{}{}
	hub.mu.Unlock()

	hub.broadcast(wsEvent("ev-1"))
	hub.broadcast(wsEvent("ev-2"))

	for _, want := range []string{"ev-1", "ev-2"} {
		var got map[string]any
		require.NoError(t, json.Unmarshal(<-c.send, &got))
		assert.Equal(t, want, got["id"])
	}
}

func TestBroadcastDropsSlowClient(t *testing.T) {
	hub := newWSHub(slog.Default())

	// Real handshake so the slow-path log can name the peer, but no write
	// loop: the unbuffered queue is permanently full.
	serverSide := make(chan *websocket.Conn, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		serverSide <- conn
	}))
	defer ts.Close()

	client, resp, err := websocket.DefaultDialer.Dial(
		"ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = client.Close() }()

	var conn *websocket.Conn
	select {
	case conn = <-serverSide:
	case <-time.After(2 * time.Second):
		t.Fatal("no server-side connection")
	}
	defer func() { _ = conn.Close() }()

	stalled := &wsClient{conn: conn, send: make(chan []byte)}
	hub.mu.Lock()
	hub.clients[stalled] = struct{}{}
	hub.mu.Unlock()

	hub.broadcast(wsEvent("ev-1"))

	hub.mu.Lock()
	_, stillThere := hub.clients[stalled]
	hub.mu.Unlock()
	assert.False(t, stillThere)

	// The queue was closed on drop.
	_, open := <-stalled.send
	assert.False(t, open)
}

func TestHubCloseRefusesUpgrades(t *testing.T) {
	hub := newWSHub(slog.Default())
	hub.close()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/ws", nil)
	rec := httptest.NewRecorder()
	hub.handleUpgrade(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
