package services

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"datacleaner/internal/shared/testutil"
	"datacleaner/internal/websocket"
	"datacleaner/pkg/contracts"
)

type mockHub struct {
	mock.Mock
}

func (m *mockHub) Stats() websocket.HubStats {
	return m.Called().Get(0).(websocket.HubStats)
}

type fixedCounter int

func (c fixedCounter) Count() int { return int(c) }

func TestHealthService(t *testing.T) {
	t.Run("Health_Check_Basic", testHealthCheckBasic)
	t.Run("Readiness_Check_Scenarios", testReadinessCheckScenarios)
	t.Run("Liveness_Check", testLivenessCheck)
	t.Run("Version_Information", testVersionInformation)
	t.Run("System_Stats_Collection", testSystemStatsCollection)
	t.Run("Detailed_Health_Report", testDetailedHealthReport)
}

func testHealthCheckBasic(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	service := NewHealthService(fixedCounter(0), 4, nil, "", logger)

	health := service.HealthCheck(context.Background())

	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, contracts.Version, health.Version)
	assert.False(t, health.Timestamp.IsZero())
}

func testReadinessCheckScenarios(t *testing.T) {
	tests := []struct {
		name           string
		sessions       SessionCounter
		exportDir      func(t *testing.T) string
		expectedStatus string
		notReady       string
	}{
		{
			name:           "ready_with_capacity",
			sessions:       fixedCounter(1),
			exportDir:      func(t *testing.T) string { return t.TempDir() },
			expectedStatus: "ready",
		},
		{
			name:           "streamed_exports_need_no_directory",
			sessions:       fixedCounter(0),
			exportDir:      func(*testing.T) string { return "" },
			expectedStatus: "ready",
		},
		{
			name:           "session_store_full",
			sessions:       fixedCounter(4),
			exportDir:      func(t *testing.T) string { return t.TempDir() },
			expectedStatus: "not_ready",
			notReady:       "sessions",
		},
		{
			name:           "missing_session_store",
			sessions:       nil,
			exportDir:      func(t *testing.T) string { return t.TempDir() },
			expectedStatus: "not_ready",
			notReady:       "sessions",
		},
		{
			name:           "export_directory_missing",
			sessions:       fixedCounter(0),
			exportDir:      func(t *testing.T) string { return t.TempDir() + "/gone" },
			expectedStatus: "not_ready",
			notReady:       "export",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, handler := testutil.NewTestLogger(t)
			service := NewHealthService(tt.sessions, 4, nil, tt.exportDir(t), logger)

			readiness := service.ReadinessCheck(context.Background())

			assert.Equal(t, tt.expectedStatus, readiness.Status)
			assert.Contains(t, readiness.Services, "sessions")
			assert.Contains(t, readiness.Services, "websocket")
			assert.Contains(t, readiness.Services, "export")
			if tt.notReady != "" {
				sh := readiness.Services[tt.notReady].(ServiceHealth)
				assert.Equal(t, "not_ready", sh.Status)
				testutil.AssertLogAttr(t, handler, "service", tt.notReady)
			}
		})
	}
}

func testLivenessCheck(t *testing.T) {
	service := NewHealthService(fixedCounter(0), 4, nil, "", nil)
	time.Sleep(10 * time.Millisecond)

	liveness := service.LivenessCheck(context.Background())

	assert.Equal(t, "alive", liveness.Status)
	uptime, ok := liveness.Runtime["uptime"].(float64)
	assert.True(t, ok)
	assert.Greater(t, uptime, 0.0)
	goroutines, ok := liveness.Runtime["goroutines"].(int)
	assert.True(t, ok)
	assert.Greater(t, goroutines, 0)
}

func testVersionInformation(t *testing.T) {
	service := NewHealthService(fixedCounter(0), 4, nil, "", nil)

	version := service.Version()

	assert.Equal(t, contracts.Version, version["version"])
	assert.Equal(t, contracts.APIVersion, version["api_version"])
	assert.Equal(t, runtime.Version(), version["go_version"])
	assert.Equal(t, runtime.GOOS, version["os"])

	startTime, ok := version["start_time"].(string)
	assert.True(t, ok)
	_, err := time.Parse(time.RFC3339, startTime)
	assert.NoError(t, err)
}

func testSystemStatsCollection(t *testing.T) {
	hub := &mockHub{}
	hub.On("Stats").Return(websocket.HubStats{ActiveClients: 3, MessagesSent: 10, MessagesDropped: 1})
	service := NewHealthService(fixedCounter(2), 8, hub, "", nil)

	stats := service.SystemStats(context.Background())

	assert.Equal(t, 2, stats.OpenSessions)
	assert.Equal(t, 8, stats.MaxSessions)
	assert.Equal(t, 3, stats.WebSocketClients)
	assert.Equal(t, int64(10), stats.MessagesSent)
	assert.Equal(t, int64(1), stats.MessagesDropped)
	assert.Positive(t, stats.HeapAllocBytes)
	hub.AssertExpectations(t)
}

func testDetailedHealthReport(t *testing.T) {
	service := NewHealthService(fixedCounter(0), 4, nil, "", nil)

	report := service.GetDetailedHealth(context.Background())

	for _, key := range []string{"health", "readiness", "liveness", "stats"} {
		assert.Contains(t, report, key)
	}
}
