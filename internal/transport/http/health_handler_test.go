package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datacleaner/internal/services"
	"datacleaner/internal/shared/testutil"
)

type fixedCounter int

func (c fixedCounter) Count() int { return int(c) }

func newHealthService(t *testing.T, open, max int) *services.HealthService {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return services.NewHealthService(fixedCounter(open), max, nil, t.TempDir(), logger)
}

func TestHealthHandler_Routes(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	router := NewHealthHandler(newHealthService(t, 1, 4), logger).Routes()

	tests := []struct {
		path       string
		wantStatus string
	}{
		{"/health", "ok"},
		{"/health/ready", "ready"},
		{"/health/live", "alive"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			var body services.HealthStatus
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
		})
	}

	t.Run("/version", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/version", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Contains(t, body, "version")
		assert.Contains(t, body, "api_version")
	})
}

func TestHealthHandler_NotReadyWhenSessionStoreIsFull(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	router := NewHealthHandler(newHealthService(t, 4, 4), logger).Routes()

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body services.HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "readiness check failed")
}

func TestMetricsHandler(t *testing.T) {
	health := newHealthService(t, 2, 8)

	t.Run("scrape disabled", func(t *testing.T) {
		router := NewMetricsHandler(nil, health).Routes()
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("scrape delegates", func(t *testing.T) {
		scrape := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# HELP datacleaner_up\n"))
		})
		router := NewMetricsHandler(scrape, health).Routes()
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "datacleaner_up")
	})

	t.Run("stats", func(t *testing.T) {
		router := NewMetricsHandler(nil, health).Routes()
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var stats services.SystemStats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, 2, stats.OpenSessions)
		assert.Equal(t, 8, stats.MaxSessions)
	})
}
