package app

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datacleaner/internal/config"
	"datacleaner/internal/shared/testutil"
	api "datacleaner/pkg/contracts/api/v1"
	"datacleaner/pkg/contracts/events"
)

type wsMessage struct {
	Type      events.MessageType `json:"type"`
	SessionID string             `json:"session_id"`
	Data      json.RawMessage    `json:"data"`
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Logging.Output = "console"
	cfg.Logging.Level = "error"
	cfg.Security.RateLimit.Enabled = false
	cfg.Paths.ExportDir = t.TempDir()
	cfg.Paths.LogsDir = t.TempDir()
	return cfg
}

// startApp serves the application on a loopback port until the test ends.
func startApp(t *testing.T, cfg *config.Config) (*Application, string) {
	t.Helper()

	app, err := New(cfg)
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, listener) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("application did not shut down")
		}
	})

	return app, "http://" + listener.Addr().String()
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readWS(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestNew_WiresComponents(t *testing.T) {
	app, err := New(testConfig(t))
	require.NoError(t, err)

	assert.NotNil(t, app.Router)
	assert.NotNil(t, app.WebSocketHub)
	assert.NotNil(t, app.SessionService)
	assert.NotNil(t, app.HealthService)
	assert.NotNil(t, app.Metrics)
	assert.Equal(t, "127.0.0.1:8080", app.Server.Addr)
	assert.DirExists(t, app.Paths.ExportDir)
}

func TestApplication_HealthAndMetrics(t *testing.T) {
	_, base := startApp(t, testConfig(t))

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/api/health", http.StatusOK, `"status":"ok"`},
		{"/api/health/ready", http.StatusOK, `"status":"ready"`},
		{"/api/health/live", http.StatusOK, `"status":"alive"`},
		{"/api/version", http.StatusOK, `"api_version"`},
		{"/metrics", http.StatusOK, "http_request"},
		{"/metrics/stats", http.StatusOK, `"open_sessions":0`},
		{"/nowhere", http.StatusNotFound, `"status":404`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := get(t, base+tt.path)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Contains(t, string(body), tt.wantBody)
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
		})
	}
}

func TestApplication_SessionLifecycle(t *testing.T) {
	app, base := startApp(t, testConfig(t))

	body, contentType := testutil.MultipartUpload(t, "sales.csv", []byte(testutil.SalesCSV), nil)
	resp, err := http.Post(base+"/api/v1/sessions", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session api.SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	assert.Equal(t, 4, session.Info.Rows)
	assert.Equal(t, 1, app.SessionService.Count())

	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/ws?session=" + session.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, events.MessageTypeConnect, readWS(t, conn).Type)

	sessionURL := base + "/api/v1/sessions/" + session.ID

	t.Run("rejected conversion", func(t *testing.T) {
		resp, err := http.Post(sessionURL+"/convert", "application/json",
			strings.NewReader(`{"column":"price","target":"integer"}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		var problem map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
		assert.Equal(t, "non_integer_float_values", problem["reason"])

		msg := readWS(t, conn)
		assert.Equal(t, events.MessageTypeOperation, msg.Type)
		var ev events.OperationEvent
		require.NoError(t, json.Unmarshal(msg.Data, &ev))
		assert.Equal(t, events.LevelError, ev.Level)
	})

	t.Run("successful conversion is streamed", func(t *testing.T) {
		resp, err := http.Post(sessionURL+"/convert", "application/json",
			strings.NewReader(`{"column":"day","target":"date"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		msg := readWS(t, conn)
		assert.Equal(t, events.MessageTypeOperation, msg.Type)
		assert.Equal(t, session.ID, msg.SessionID)
		var ev events.OperationEvent
		require.NoError(t, json.Unmarshal(msg.Data, &ev))
		assert.Equal(t, "day", ev.Column)
		assert.Equal(t, events.LevelSuccess, ev.Level)
	})

	t.Run("export", func(t *testing.T) {
		resp := get(t, sessionURL+"/export")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "region,units,price,day\n"))
	})

	t.Run("close", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, sessionURL, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		assert.Equal(t, events.MessageTypeSessionClosed, readWS(t, conn).Type)
		assert.Equal(t, http.StatusNotFound, get(t, sessionURL).StatusCode)
	})
}

func TestApplication_WebSocketRequiresSession(t *testing.T) {
	_, base := startApp(t, testConfig(t))

	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/ws?session=6f1c2a4e-8d0b-4b7a-9c51-2e3f4a5b6c7d"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestApplication_ServeStopsOnCancel(t *testing.T) {
	app, err := New(testConfig(t))
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, listener) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String() + "/api/health/live")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}
