package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHubMetrics map[string]interface{}

func (s stubHubMetrics) GetHubMetrics() map[string]interface{} { return s }

func TestMetricsHandler_WebSocket(t *testing.T) {
	tests := []struct {
		name string
		hub  HubMetricsProvider
		want map[string]interface{}
	}{
		{
			name: "hub counters",
			hub:  stubHubMetrics{"active_clients": 2, "messages_sent": 10},
			want: map[string]interface{}{"active_clients": float64(2), "messages_sent": float64(10)},
		},
		{
			name: "no hub",
			want: map[string]interface{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewMetricsHandler(tt.hub).Routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/websocket", nil))

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, decodeBody(t, w))
		})
	}
}
