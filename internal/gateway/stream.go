package gateway

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/workflow"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
)

var errStreamClosed = errors.New("session stream closed")

// SnapshotStream pushes session snapshots to websocket clients.
type SnapshotStream struct {
	registry *workflow.Registry
	tracer   trace.Tracer
	upgrader websocket.Upgrader
}

// NewSnapshotStream creates a stream handler. Browser connections are
// accepted from allowedOrigins ("*" for any); with none configured only
// same-host origins are accepted.
func NewSnapshotStream(registry *workflow.Registry, allowedOrigins []string) *SnapshotStream {
	return &SnapshotStream{
		registry: registry,
		tracer:   otel.Tracer("snapshot-stream"),
		upgrader: websocket.Upgrader{
			CheckOrigin:      checkOrigin(allowedOrigins),
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if len(allowed) > 0 {
			if slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
				return true
			}
			log.Printf(`{"level":"warn","message":"WebSocket origin rejected","origin":"%s"}`, origin)
			return false
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host != r.Host {
			log.Printf(`{"level":"warn","message":"WebSocket origin rejected","origin":"%s"}`, origin)
			return false
		}
		return true
	}
}

// Stream handles WebSocket /api/sessions/:id/ws
// @Summary Stream session snapshots
// @Description WebSocket endpoint pushing a session.snapshot event on every state change and session.closed on teardown. Use ?encoding=msgpack for binary frames and ?token= to authenticate from a browser.
// @Tags sessions
// @Param id path string true "Session ID"
// @Param token query string false "Session token"
// @Param encoding query string false "json (default) or msgpack"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /sessions/{id}/ws [get]
func (p *SnapshotStream) Stream(c *gin.Context) {
	ctx, span := p.tracer.Start(c.Request.Context(), "snapshot_stream.stream")
	defer span.End()

	sessionID := c.Param("id")
	binary := c.Query("encoding") == "msgpack"
	span.SetAttributes(
		attribute.String("session.id", sessionID),
		attribute.Bool("stream.msgpack", binary),
	)

	s, err := p.registry.Get(sessionID)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}

	snapshots, cancel, err := s.Subscribe()
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}
	defer cancel()

	conn, err := p.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.RecordError(err)
		log.Printf(`{"level":"warn","message":"Failed to upgrade connection","session_id":"%s","error":"%v"}`, sessionID, err)
		return
	}
	defer conn.Close()

	log.Printf(`{"level":"info","message":"Snapshot stream opened","session_id":"%s","msgpack":%t}`, sessionID, binary)

	err = p.pump(ctx, conn, snapshots, sessionID, binary)
	if err != nil && !errors.Is(err, errStreamClosed) &&
		!websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		span.RecordError(err)
		log.Printf(`{"level":"warn","message":"Snapshot stream error","session_id":"%s","error":"%v"}`, sessionID, err)
	}

	log.Printf(`{"level":"info","message":"Snapshot stream ended","session_id":"%s"}`, sessionID)
}

// pump writes snapshots until the subscription ends or the client goes
// away. Client frames are read and discarded to observe disconnects.
func (p *SnapshotStream) pump(ctx context.Context, conn *websocket.Conn, snapshots <-chan models.Snapshot, sessionID string, binary bool) error {
	errChan := make(chan error, 1)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				errChan <- err
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				p.writeEvent(conn, binary, models.SessionEvent{
					EventType: models.EventTypeClosed,
					SessionID: sessionID,
					Timestamp: time.Now().UTC(),
				})
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(writeWait))
				return errStreamClosed
			}
			err := p.writeEvent(conn, binary, models.SessionEvent{
				EventType: models.EventTypeSnapshot,
				SessionID: sessionID,
				Version:   snap.Version,
				Data:      snap,
				Timestamp: time.Now().UTC(),
			})
			if err != nil {
				return err
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}

		case err := <-errChan:
			return err

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *SnapshotStream) writeEvent(conn *websocket.Conn, binary bool, event models.SessionEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if !binary {
		return conn.WriteJSON(event)
	}
	data, err := msgpack.Marshal(event)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, data)
}
