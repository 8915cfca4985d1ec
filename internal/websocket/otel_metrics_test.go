package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	return sums
}

func TestOTelMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewOTelMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordConnection(ctx)
	m.RecordConnection(ctx)
	m.RecordDisconnection(ctx, time.Second, "normal")
	m.RecordMessage(ctx, "outbound", 120)
	m.RecordMessage(ctx, "inbound", 30)
	m.RecordMessageError(ctx, "invalid_frame")
	m.RecordDroppedMessage(ctx, "buffer_full")
	m.RecordCommand(ctx, "select", time.Millisecond, true)
	m.RecordBroadcast(ctx, "selection:changed")

	sums := collect(t, reader)
	assert.Equal(t, int64(2), sums["websocket_connections_total"])
	assert.Equal(t, int64(1), sums["websocket_connections_active"])
	assert.Equal(t, int64(2), sums["websocket_messages_total"])
	assert.Equal(t, int64(150), sums["websocket_message_bytes_total"])
	assert.Equal(t, int64(1), sums["websocket_message_errors_total"])
	assert.Equal(t, int64(1), sums["websocket_dropped_messages_total"])
	assert.Equal(t, int64(1), sums["websocket_commands_total"])
	assert.Equal(t, int64(1), sums["websocket_broadcast_operations_total"])
}

func TestOTelMetricsNilSafe(t *testing.T) {
	var m *OTelMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordConnection(ctx)
		m.RecordDisconnection(ctx, time.Second, "normal")
		m.RecordMessage(ctx, "inbound", 1)
		m.RecordMessageError(ctx, "x")
		m.RecordDroppedMessage(ctx, "x")
		m.RecordCommand(ctx, "select", 0, false)
		m.RecordBroadcast(ctx, "x")
	})
}

func TestHubRecordsOTelMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewOTelMetrics(provider.Meter("test"))
	require.NoError(t, err)

	hub := newTestHub(t, WithOTelMetrics(m))
	registerClient(t, hub)
	hub.Broadcast("layout:update", nil)

	require.Eventually(t, func() bool {
		return collect(t, reader)["websocket_broadcast_operations_total"] == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), collect(t, reader)["websocket_connections_total"])
}
