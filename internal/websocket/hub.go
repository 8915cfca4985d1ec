package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/sgratzl/lineup-if-fi/internal/config"
	"github.com/sgratzl/lineup-if-fi/internal/infrastructure"
	"github.com/sgratzl/lineup-if-fi/pkg/contracts/events"
)

// ErrHubStopped is returned when a reply is sent after the hub stopped
var ErrHubStopped = errors.New("websocket hub stopped")

const (
	broadcastQueueSize    = 256
	defaultMetricsPeriod  = 30 * time.Second
	defaultCommandTimeout = 10 * time.Second
)

type outbound struct {
	messageType string
	payload     []byte
}

type directMessage struct {
	client  *Client
	payload []byte
}

// Hub maintains the set of active clients, fans broadcasts out to them and
// routes client commands to a CommandHandler.
type Hub struct {
	// Registered clients. Only Run mutates the map and closes send channels.
	clients map[*Client]bool

	broadcast  chan outbound
	direct     chan directMessage
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	logger   *slog.Logger
	settings config.WebSocketConfig
	stats    MetricsCollector
	otel     *OTelMetrics
	handler  CommandHandler

	metricsPeriod  time.Duration
	commandTimeout time.Duration

	quit    chan struct{}
	done    chan struct{}
	running bool
	stopped bool
}

// HubOption configures a Hub
type HubOption func(*Hub)

// WithSettings applies the websocket section of the app config
func WithSettings(cfg config.WebSocketConfig) HubOption {
	return func(h *Hub) { h.settings = cfg }
}

// WithOTelMetrics records hub activity on OpenTelemetry instruments
func WithOTelMetrics(m *OTelMetrics) HubOption {
	return func(h *Hub) { h.otel = m }
}

// WithMetricsCollector replaces the in-process counters
func WithMetricsCollector(c MetricsCollector) HubOption {
	return func(h *Hub) { h.stats = c }
}

// WithCommandHandler routes client commands to fn
func WithCommandHandler(fn CommandHandler) HubOption {
	return func(h *Hub) { h.handler = fn }
}

// WithMetricsPeriod sets how often the hub logs its counters
func WithMetricsPeriod(d time.Duration) HubOption {
	return func(h *Hub) { h.metricsPeriod = d }
}

// NewHub creates a new Hub instance with dependency injection
func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	h := &Hub{
		clients:        make(map[*Client]bool),
		broadcast:      make(chan outbound, broadcastQueueSize),
		direct:         make(chan directMessage, broadcastQueueSize),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		logger:         logger.With(slog.String("component", "websocket.hub")),
		settings:       config.Default().WebSocket,
		stats:          NewMetrics(),
		metricsPeriod:  defaultMetricsPeriod,
		commandTimeout: defaultCommandTimeout,
		quit:           make(chan struct{}),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetCommandHandler installs the handler for client commands. The service
// layer is built after the hub, so it registers itself here.
func (h *Hub) SetCommandHandler(fn CommandHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = fn
}

// Start starts the hub's goroutines. It is a no-op once started or stopped.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running || h.stopped {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
	go h.reportMetrics()
}

// Stop disconnects every client and stops the hub. Safe to call twice.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	wasRunning := h.running
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	if wasRunning {
		<-h.done
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		client.conn.Close()
	}
}

// Unregister removes a client; unknown clients are ignored
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client, "normal")

		case msg := <-h.direct:
			h.mu.RLock()
			_, ok := h.clients[msg.client]
			h.mu.RUnlock()
			if ok {
				h.deliver(msg.client, msg.payload, "reply")
			}

		case msg := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			delivered := 0
			for _, client := range clients {
				if h.deliver(client, msg.payload, msg.messageType) {
					delivered++
				}
			}

			h.logger.Debug("Broadcast delivered",
				slog.String("message_type", msg.messageType),
				slog.Int("client_count", len(clients)),
				slog.Int("delivered", delivered),
				slog.Int("payload_size", len(msg.payload)))

			h.otel.RecordBroadcast(context.Background(), msg.messageType)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.stats.RecordConnection()
	h.otel.RecordConnection(ctx)

	h.logger.InfoContext(ctx, "Client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))

	payload, err := h.encode(ctx, events.MessageTypeConnect, events.ConnectEvent{
		Status:   "connected",
		ClientID: client.id,
		Protocol: events.ProtocolName + "/" + events.ProtocolVersion,
	})
	if err == nil {
		h.deliver(client, payload, string(events.MessageTypeConnect))
	}
}

func (h *Hub) removeClient(client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	duration := time.Since(client.connectedAt)
	h.stats.RecordDisconnection(duration)
	h.otel.RecordDisconnection(ctx, duration, reason)

	h.logger.InfoContext(ctx, "Client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("reason", reason),
		slog.Duration("connection_duration", duration))
}

// deliver queues payload on the client without blocking. A client whose
// buffer is full is disconnected. Must run on the hub goroutine.
func (h *Hub) deliver(client *Client, payload []byte, messageType string) bool {
	select {
	case client.send <- payload:
		return true
	default:
		ctx := client.context()
		h.stats.RecordDroppedMessage()
		h.otel.RecordDroppedMessage(ctx, "buffer_full")
		h.logger.WarnContext(ctx, "Client send buffer full, disconnecting",
			slog.String("client_id", client.id),
			slog.String("message_type", messageType))
		h.removeClient(client, "slow_consumer")
		return false
	}
}

func (h *Hub) encode(ctx context.Context, messageType events.MessageType, data interface{}) ([]byte, error) {
	msg := events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			ID:        uuid.New().String(),
			Type:      messageType,
			Timestamp: time.Now().UTC(),
			TraceID:   infrastructure.GetTraceID(ctx),
		},
		Data: data,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.stats.RecordError("marshal")
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", string(messageType)))
		return nil, err
	}
	return payload, nil
}

// Broadcast sends an event to every connected client
func (h *Hub) Broadcast(messageType string, data interface{}) {
	h.BroadcastContext(context.Background(), events.MessageType(messageType), data)
}

// BroadcastContext sends an event to every connected client, stamping it
// with the trace id found in ctx. Events are dropped once the hub stopped.
func (h *Hub) BroadcastContext(ctx context.Context, messageType events.MessageType, data interface{}) {
	payload, err := h.encode(ctx, messageType, data)
	if err != nil {
		return
	}

	select {
	case h.broadcast <- outbound{messageType: string(messageType), payload: payload}:
	case <-h.quit:
		h.logger.DebugContext(ctx, "Broadcast after stop dropped",
			slog.String("message_type", string(messageType)))
	}
}

func (h *Hub) send(ctx context.Context, client *Client, messageType events.MessageType, data interface{}) error {
	payload, err := h.encode(ctx, messageType, data)
	if err != nil {
		return err
	}
	select {
	case h.direct <- directMessage{client: client, payload: payload}:
		return nil
	case <-h.quit:
		return ErrHubStopped
	}
}

// handleFrame decodes one client frame and executes it
func (h *Hub) handleFrame(client *Client, frame []byte) {
	ctx := client.context()

	cmd, err := events.ParseCommand(frame)
	if err != nil {
		h.stats.RecordError("invalid_frame")
		h.otel.RecordMessageError(ctx, "invalid_frame")
		h.replyError(ctx, client, cmd.RequestID, err)
		return
	}
	if cmd.Type == events.MessageTypeHeartbeat {
		return
	}

	h.mu.RLock()
	handler := h.handler
	h.mu.RUnlock()
	if handler == nil {
		h.replyError(ctx, client, cmd.RequestID, &events.ProtocolError{
			Code:    events.ErrCodeUnsupportedType,
			Message: "commands are not accepted by this server",
		})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, h.commandTimeout)
	defer cancel()

	start := time.Now()
	result, err := handler(ctx, client.id, cmd)
	h.otel.RecordCommand(ctx, string(cmd.Type), time.Since(start), err == nil)
	if err != nil {
		h.logger.WarnContext(ctx, "Client command failed",
			slog.String("client_id", client.id),
			slog.String("command", string(cmd.Type)),
			slog.String("error", err.Error()))
		h.replyError(ctx, client, cmd.RequestID, err)
		return
	}

	h.logger.DebugContext(ctx, "Client command handled",
		slog.String("client_id", client.id),
		slog.String("command", string(cmd.Type)),
		slog.Duration("duration", time.Since(start)))

	if result != nil || cmd.RequestID != "" {
		_ = h.send(ctx, client, events.MessageTypeAck, events.AckData{
			RequestID: cmd.RequestID,
			Command:   cmd.Type,
			Result:    result,
		})
	}
}

func (h *Hub) replyError(ctx context.Context, client *Client, requestID string, err error) {
	data := events.ErrorData{
		RequestID: requestID,
		Code:      events.ErrCodeServerError,
		Message:   err.Error(),
	}
	var perr *events.ProtocolError
	if errors.As(err, &perr) {
		data.Code = perr.Code
		data.Message = perr.Message
		data.Fatal = perr.Fatal
	}
	_ = h.send(ctx, client, events.MessageTypeError, data)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetHubMetrics returns current hub metrics
func (h *Hub) GetHubMetrics() map[string]interface{} {
	snapshot := h.stats.GetSnapshot()
	snapshot["active_clients"] = h.ClientCount()
	snapshot["broadcast_queue"] = len(h.broadcast)
	return snapshot
}

// reportMetrics periodically logs hub counters
func (h *Hub) reportMetrics() {
	ticker := time.NewTicker(h.metricsPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-h.quit:
			return

		case <-ticker.C:
			depth := int64(len(h.broadcast))
			h.stats.RecordQueueDepth(depth)

			h.logger.Info("WebSocket hub metrics",
				slog.Int("active_clients", h.ClientCount()),
				slog.Int64("broadcast_queue", depth),
			)
		}
	}
}
