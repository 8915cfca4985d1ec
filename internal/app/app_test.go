package app

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgratzl/lineup-if-fi/internal/config"
	"github.com/sgratzl/lineup-if-fi/internal/shared/testutil"
	"github.com/sgratzl/lineup-if-fi/pkg/contracts/events"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Data.Dir = t.TempDir()
	cfg.Telemetry.MetricExporter = "none"
	cfg.Security.RateLimit.Enabled = false
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	a, err := New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		a.WebSocketHub.Stop()
		a.Lineup.Close()
	})
	return a
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNew(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg)

	assert.NotNil(t, a.Router)
	assert.NotNil(t, a.Lineup)
	assert.NotNil(t, a.HealthService)
	assert.Nil(t, a.Watcher, "watching is off by default")
	assert.Equal(t, cfg.Address(), a.Server.Addr)
}

func TestApplication_Routes(t *testing.T) {
	cfg := testConfig(t)
	testutil.WriteFileIn(t, cfg.Data.Dir, "cars.csv", testutil.CarsCSV)
	a := newTestApp(t, cfg)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"health", http.MethodGet, "/api/health", "", http.StatusOK},
		{"liveness", http.MethodGet, "/api/health/live", "", http.StatusOK},
		{"version", http.MethodGet, "/api/version", "", http.StatusOK},
		{"websocket metrics", http.MethodGet, "/api/metrics/websocket", "", http.StatusOK},
		{"datasets", http.MethodGet, "/api/datasets", "", http.StatusOK},
		{"describe", http.MethodPost, "/api/describe", `{"source":"cars.csv"}`, http.StatusOK},
		{"describe escaping data dir", http.MethodPost, "/api/describe", `{"source":"../cars.csv"}`, http.StatusForbidden},
		{"client log", http.MethodPost, "/api/client-log", `{"message":"hello"}`, http.StatusOK},
		{"describe without content type", http.MethodPost, "/api/describe", "", http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/nope", "", http.StatusNotFound},
		{"wrong method", http.MethodPut, "/api/sessions", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, a.Router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestApplication_SessionLifecycle(t *testing.T) {
	cfg := testConfig(t)
	testutil.WriteFileIn(t, cfg.Data.Dir, "cars.csv", testutil.CarsCSV)
	a := newTestApp(t, cfg)

	w := do(t, a.Router, http.MethodPost, "/api/sessions", `{"source":"cars.csv"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var sum struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Items struct {
			Rows int `json:"rows"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	assert.Equal(t, "cars", sum.Name)
	assert.Equal(t, 5, sum.Items.Rows)

	w = do(t, a.Router, http.MethodGet, "/api/sessions/"+sum.ID+"/views/features", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, a.Router, http.MethodPost, "/api/sessions/"+sum.ID+"/views/features/selection", `{"indices":[0]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "number:mpg")

	w = do(t, a.Router, http.MethodGet, "/api/sessions/"+sum.ID+"/views/items/export?format=csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "cars-items.csv")

	w = do(t, a.Router, http.MethodDelete, "/api/sessions/"+sum.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, a.Lineup.SessionCount())
}

func TestApplication_MissingDataDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.Dir = filepath.Join(cfg.Data.Dir, "missing")
	a := newTestApp(t, cfg)

	w := do(t, a.Router, http.MethodGet, "/api/datasets", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)

	w = do(t, a.Router, http.MethodGet, "/api/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"not_ready"`)
}

func TestApplication_TrailingSlashAndCompression(t *testing.T) {
	cfg := testConfig(t)
	testutil.WriteFileIn(t, cfg.Data.Dir, "cars.csv", testutil.CarsCSV)
	a := newTestApp(t, cfg)

	w := do(t, a.Router, http.MethodGet, "/api/datasets/", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "cars.csv")

	req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w = httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(body), "cars.csv")
}

func TestApplication_PrometheusEndpoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.Telemetry.MetricExporter = "prometheus"
	a := newTestApp(t, cfg)

	do(t, a.Router, http.MethodGet, "/api/health", "")
	w := do(t, a.Router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestApplication_checkOrigin(t *testing.T) {
	tests := []struct {
		name       string
		enableCORS bool
		allowed    []string
		origin     string
		host       string
		want       bool
	}{
		{name: "no origin", origin: "", host: "localhost:8080", want: true},
		{name: "same host", origin: "http://localhost:8080", host: "localhost:8080", want: true},
		{name: "allowed origin", enableCORS: true, allowed: []string{"http://app.example"}, origin: "http://app.example", host: "localhost:8080", want: true},
		{name: "wildcard", enableCORS: true, allowed: []string{"*"}, origin: "http://evil.example", host: "localhost:8080", want: true},
		{name: "other origin", enableCORS: true, allowed: []string{"http://app.example"}, origin: "http://evil.example", host: "localhost:8080", want: false},
		{name: "cors disabled", enableCORS: false, allowed: []string{"http://app.example"}, origin: "http://app.example", host: "localhost:8080", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Security.EnableCORS = tt.enableCORS
			cfg.Security.AllowedOrigins = tt.allowed
			logger, _ := testutil.NewTestLogger(t)
			a := &Application{Config: cfg, Logger: logger}

			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			req.Host = tt.host
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, a.checkOrigin(req))
		})
	}
}

func TestApplication_loadDefaultSource(t *testing.T) {
	t.Run("with description", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Data.DefaultSource = testutil.WriteFileIn(t, cfg.Data.Dir, "cars.csv", testutil.CarsCSV)
		cfg.Data.Description = testutil.WriteFileIn(t, cfg.Data.Dir, "cars.yaml", testutil.CarsDescription)
		a := newTestApp(t, cfg)

		require.NoError(t, a.loadDefaultSource(context.Background()))
		assert.Equal(t, 1, a.Lineup.SessionCount())
	})

	t.Run("bad description file", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Data.DefaultSource = testutil.WriteFileIn(t, cfg.Data.Dir, "cars.csv", testutil.CarsCSV)
		cfg.Data.Description = filepath.Join(cfg.Data.Dir, "missing.yaml")
		a := newTestApp(t, cfg)

		assert.Error(t, a.loadDefaultSource(context.Background()))
		assert.Equal(t, 0, a.Lineup.SessionCount())
	})

	t.Run("none configured", func(t *testing.T) {
		a := newTestApp(t, testConfig(t))
		assert.NoError(t, a.loadDefaultSource(context.Background()))
	})
}

func TestApplication_WebSocket(t *testing.T) {
	cfg := testConfig(t)
	testutil.WriteFileIn(t, cfg.Data.Dir, "cars.csv", testutil.CarsCSV)
	a := newTestApp(t, cfg)
	a.WebSocketHub.Start()

	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	readType := func() string {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg events.WebSocketMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return string(msg.Type)
	}

	assert.Equal(t, string(events.MessageTypeConnect), readType())

	w := do(t, a.Router, http.MethodPost, "/api/sessions", `{"source":"cars.csv"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, string(events.MessageTypeSessionCreated), readType())

	var sum struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))

	require.NoError(t, conn.WriteJSON(events.Command{
		Type:      events.MessageTypeSelect,
		RequestID: "r1",
		SessionID: sum.ID,
		Side:      "items",
		Indices:   []int{1},
	}))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		seen[readType()] = true
	}
	assert.True(t, seen[string(events.MessageTypeAck)])
	assert.True(t, seen[string(events.MessageTypeSelectionChanged)])
}

func TestApplication_WebSocketRejectsOrigin(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.AllowedOrigins = []string{"http://app.example"}
	a := newTestApp(t, cfg)
	a.WebSocketHub.Start()

	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var problem map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	resp.Body.Close()
	assert.Equal(t, "/errors/websocket/upgrade-failed", problem["type"])
	assert.Equal(t, "WEBSOCKET_UPGRADE_FAILED", problem["error_code"])
}

func TestApplication_StartStop(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	cfg := testConfig(t)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = port
	a := newTestApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx, cancel))

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + a.Server.Addr + "/api/health/live")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, a.Stop(context.Background()))
	assert.NoError(t, ctx.Err(), "a clean shutdown does not cancel the run context")
}
