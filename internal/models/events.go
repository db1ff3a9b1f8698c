package models

import (
	"time"
)

// SessionEvent is one frame pushed to a browser watching a session.
type SessionEvent struct {
	EventType string    `json:"event_type" msgpack:"event_type"`
	SessionID string    `json:"session_id" msgpack:"session_id"`
	Version   uint64    `json:"version" msgpack:"version"`
	Data      any       `json:"data,omitempty" msgpack:"data,omitempty"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
}

// Event types
const (
	EventTypeSnapshot = "session.snapshot"
	EventTypeClosed   = "session.closed"
	EventTypeError    = "session.error"
)
