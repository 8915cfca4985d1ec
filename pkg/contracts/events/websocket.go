// Package events contains the event contracts pushed over the websocket
// when linked views change.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Server to client
	MessageTypeConnect          MessageType = "connect"
	MessageTypeError            MessageType = "error"
	MessageTypeAck              MessageType = "ack"
	MessageTypeSelectionChanged MessageType = "selection:changed"
	MessageTypeLayoutUpdate     MessageType = "layout:update"
	MessageTypeSessionCreated   MessageType = "session:created"
	MessageTypeSessionReloaded  MessageType = "session:reloaded"
	MessageTypeSessionDeleted   MessageType = "session:deleted"

	// Client to server
	MessageTypeHeartbeat MessageType = "heartbeat"
	MessageTypeSelect    MessageType = "select"
	MessageTypeRelayout  MessageType = "relayout"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// ConnectEvent greets a newly registered client
type ConnectEvent struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
	Protocol string `json:"protocol"`
}

// LayoutUpdateEvent tells renderers to re-measure both views of a session
type LayoutUpdateEvent struct {
	SessionID      string `json:"sessionId"`
	LayoutRevision int64  `json:"layoutRevision"`
}

// SessionEvent announces a session lifecycle change.
// Summary is omitted for deletions.
type SessionEvent struct {
	SessionID string      `json:"sessionId"`
	Summary   interface{} `json:"summary,omitempty"`
}

// AckData answers a client command that produced a result
type AckData struct {
	RequestID string      `json:"requestId,omitempty"`
	Command   MessageType `json:"command"`
	Result    interface{} `json:"result,omitempty"`
}

// ErrorData is the payload of an error message sent to one client
type ErrorData struct {
	RequestID string      `json:"requestId,omitempty"`
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Fatal     bool        `json:"fatal"`
}
