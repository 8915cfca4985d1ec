package websocket

import (
	"context"
	"time"

	"github.com/sgratzl/lineup-if-fi/pkg/contracts/events"
)

// Connection defines the interface for WebSocket connections
// This allows for proper mocking in tests
type Connection interface {
	// WriteMessage writes a message with the given message type and payload
	WriteMessage(messageType int, data []byte) error

	// ReadMessage reads a message from the connection
	ReadMessage() (messageType int, p []byte, err error)

	Close() error

	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error

	// SetReadLimit sets the maximum size for a message read from the connection
	SetReadLimit(limit int64)

	SetPongHandler(h func(string) error)

	// RemoteAddr returns the remote network address
	RemoteAddr() string
}

// CommandHandler executes a client command. The returned value, if not nil,
// is sent back to the issuing client only; broadcasts are the handler's job.
type CommandHandler func(ctx context.Context, clientID string, cmd events.Command) (interface{}, error)

// MetricsCollector defines the interface for metrics collection
type MetricsCollector interface {
	RecordConnection()
	RecordDisconnection(duration time.Duration)

	// RecordMessage records message metrics; direction is "sent" or "received"
	RecordMessage(direction string, size int64, success bool)

	RecordError(errorType string)
	RecordQueueDepth(depth int64)
	RecordDroppedMessage()

	// GetSnapshot returns a snapshot of current metrics
	GetSnapshot() map[string]interface{}
}
