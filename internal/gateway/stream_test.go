package gateway

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
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/tests/helpers"
)

type streamEvent struct {
	EventType string          `json:"event_type"`
	SessionID string          `json:"session_id"`
	Version   uint64          `json:"version"`
	Data      models.Snapshot `json:"data"`
}

func dialStream(t *testing.T, server *httptest.Server, id, token, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/sessions/" + id + "/ws?token=" + token + query
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) streamEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var event streamEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestSnapshotStream_JSON(t *testing.T) {
	g := newTestGateway(t)
	server := httptest.NewServer(g.router)
	defer server.Close()

	id, token := g.createSession(t)
	conn := dialStream(t, server, id, token, "")

	first := readEvent(t, conn)
	assert.Equal(t, models.EventTypeSnapshot, first.EventType)
	assert.Equal(t, id, first.SessionID)
	assert.Equal(t, first.Version, first.Data.Version)

	w := g.upload(t, id, token, "netlist", "board.xml", helpers.NetlistXML)
	require.Equal(t, http.StatusOK, w.Code)

	for {
		event := readEvent(t, conn)
		require.Equal(t, models.EventTypeSnapshot, event.EventType)
		assert.Greater(t, event.Version, first.Version)
		if slot, ok := event.Data.Slot(models.SlotNetlist); ok && slot.Uploaded() {
			assert.Equal(t, "board.xml", slot.Filename)
			break
		}
	}

	require.Equal(t, http.StatusNoContent, g.do(http.MethodDelete, "/api/sessions/"+id, token, nil, "").Code)

	for {
		event := readEvent(t, conn)
		if event.EventType == models.EventTypeClosed {
			break
		}
		assert.Equal(t, models.EventTypeSnapshot, event.EventType)
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestSnapshotStream_Msgpack(t *testing.T) {
	g := newTestGateway(t)
	server := httptest.NewServer(g.router)
	defer server.Close()

	id, token := g.createSession(t)
	conn := dialStream(t, server, id, token, "&encoding=msgpack")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)

	var event map[string]any
	require.NoError(t, msgpack.Unmarshal(data, &event))
	assert.Equal(t, models.EventTypeSnapshot, event["event_type"])
	assert.Equal(t, id, event["session_id"])
}

func TestSnapshotStream_Rejections(t *testing.T) {
	g := newTestGateway(t)
	server := httptest.NewServer(g.router)
	defer server.Close()

	id, token := g.createSession(t)
	base := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/sessions/" + id + "/ws"

	t.Run("missing token", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(base, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("foreign origin", func(t *testing.T) {
		header := http.Header{}
		header.Set("Origin", "http://evil.example")
		_, resp, err := websocket.DefaultDialer.Dial(base+"?token="+token, header)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("closed session", func(t *testing.T) {
		require.NoError(t, g.registry.Delete(id))
		_, resp, err := websocket.DefaultDialer.Dial(base+"?token="+token, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		var body models.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, models.ErrCodeNotFound, body.Code)
	})
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		host    string
		want    bool
	}{
		{"no origin header", nil, "", "api.local", true},
		{"same host", nil, "http://api.local", "api.local", true},
		{"other host", nil, "http://evil.example", "api.local", false},
		{"listed", []string{"http://app.local"}, "http://app.local", "api.local", true},
		{"not listed", []string{"http://app.local"}, "http://evil.example", "api.local", false},
		{"wildcard", []string{"*"}, "http://anything.example", "api.local", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, checkOrigin(tt.allowed)(r))
		})
	}
}
