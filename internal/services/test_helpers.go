package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sgratzl/lineup-if-fi/pkg/contracts/events"
)

// MockWebSocketHub is a mock for WebSocketHub interface
type MockWebSocketHub struct {
	mock.Mock
}

func (m *MockWebSocketHub) BroadcastContext(ctx context.Context, messageType events.MessageType, data interface{}) {
	m.Called(messageType, data)
}

func (m *MockWebSocketHub) ClientCount() int {
	args := m.Called()
	return args.Int(0)
}
