package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Protocol version
const (
	ProtocolVersion = "1.0"
	ProtocolName    = "lineup-link-protocol"
)

// Protocol error codes
const (
	ErrCodeInvalidFrame      = "INVALID_FRAME"
	ErrCodeUnsupportedType   = "UNSUPPORTED_TYPE"
	ErrCodeMessageTooLarge   = "MESSAGE_TOO_LARGE"
	ErrCodeSessionNotFound   = "SESSION_NOT_FOUND"
	ErrCodeProtocolViolation = "PROTOCOL_VIOLATION"
	ErrCodeServerError       = "SERVER_ERROR"
)

// ErrInvalidCommand is returned when a client frame cannot be decoded
var ErrInvalidCommand = errors.New("invalid command")

// ProtocolError represents a protocol-level error
type ProtocolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Command is a request sent by a client.
//
//	{"type":"select","sessionId":"...","side":"items","indices":[0,3]}
//	{"type":"relayout","sessionId":"..."}
//	{"type":"heartbeat"}
type Command struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"requestId,omitempty"`
	SessionID string      `json:"sessionId,omitempty"`
	Side      string      `json:"side,omitempty"`
	Indices   []int       `json:"indices,omitempty"`
}

// ParseCommand decodes and checks a client frame
func ParseCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return cmd, &ProtocolError{Code: ErrCodeInvalidFrame, Message: fmt.Sprintf("%v: %v", ErrInvalidCommand, err)}
	}

	switch cmd.Type {
	case MessageTypeHeartbeat:
		return cmd, nil
	case MessageTypeSelect:
		if cmd.SessionID == "" || cmd.Side == "" {
			return cmd, &ProtocolError{Code: ErrCodeProtocolViolation, Message: "select requires sessionId and side"}
		}
	case MessageTypeRelayout:
		if cmd.SessionID == "" {
			return cmd, &ProtocolError{Code: ErrCodeProtocolViolation, Message: "relayout requires sessionId"}
		}
	default:
		return cmd, &ProtocolError{Code: ErrCodeUnsupportedType, Message: fmt.Sprintf("unsupported command %q", cmd.Type)}
	}
	return cmd, nil
}
