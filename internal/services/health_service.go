package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"datacleaner/internal/websocket"
	"datacleaner/pkg/contracts"
)

// HubStatsProvider exposes websocket hub counters.
type HubStatsProvider interface {
	Stats() websocket.HubStats
}

// SessionCounter reports the number of open sessions.
type SessionCounter interface {
	Count() int
}

// HealthService provides health check functionality
type HealthService struct {
	sessions    SessionCounter
	maxSessions int
	hub         HubStatsProvider
	exportDir   string
	startTime   time.Time
	logger      *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	OpenSessions     int     `json:"open_sessions"`
	MaxSessions      int     `json:"max_sessions"`
	WebSocketClients int     `json:"websocket_clients"`
	MessagesSent     int64   `json:"messages_sent"`
	MessagesDropped  int64   `json:"messages_dropped"`
	Goroutines       int     `json:"goroutines"`
	HeapAllocBytes   uint64  `json:"heap_alloc_bytes"`
	GoVersion        string  `json:"go_version"`
	OS               string  `json:"os"`
	Arch             string  `json:"arch"`
}

// NewHealthService creates a health service. hub may be nil when the
// websocket stream is disabled.
func NewHealthService(sessions SessionCounter, maxSessions int, hub HubStatsProvider, exportDir string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", contracts.Version),
		slog.String("export_dir", exportDir),
		slog.Int("max_sessions", maxSessions))

	return &HealthService{
		sessions:    sessions,
		maxSessions: maxSessions,
		hub:         hub,
		exportDir:   exportDir,
		startTime:   time.Now(),
		logger:      logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   contracts.Version,
	}

	hs.logger.DebugContext(ctx, "HealthCheck: completed",
		slog.String("status", status.Status),
		slog.String("uptime", time.Since(hs.startTime).String()))

	return status
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services: map[string]interface{}{
			"sessions":  hs.checkSessionHealth(),
			"websocket": hs.checkWebSocketHealth(),
			"export":    hs.checkExportHealth(),
		},
	}

	for name, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "ReadinessCheck: service not ready",
				slog.String("service", name),
				slog.String("message", sh.Message))
		}
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":      info.Version,
		"api_version":  info.APIVersion,
		"data_format":  info.DataFormat,
		"build_time":   info.BuildTime,
		"git_commit":   info.GitCommit,
		"go_version":   info.GoVersion,
		"os":           info.OS,
		"arch":         info.Architecture,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

// SystemStats returns system statistics
func (hs *HealthService) SystemStats(ctx context.Context) SystemStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := SystemStats{
		UptimeSeconds:  time.Since(hs.startTime).Seconds(),
		MaxSessions:    hs.maxSessions,
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: mem.HeapAlloc,
		GoVersion:      runtime.Version(),
		OS:             runtime.GOOS,
		Arch:           runtime.GOARCH,
	}
	if hs.sessions != nil {
		stats.OpenSessions = hs.sessions.Count()
	}
	if hs.hub != nil {
		hub := hs.hub.Stats()
		stats.WebSocketClients = hub.ActiveClients
		stats.MessagesSent = hub.MessagesSent
		stats.MessagesDropped = hub.MessagesDropped
	}
	return stats
}

// checkSessionHealth reports not ready once the store is full, since new
// uploads would be refused.
func (hs *HealthService) checkSessionHealth() ServiceHealth {
	if hs.sessions == nil {
		return ServiceHealth{Status: "not_ready", Message: "session store not initialized"}
	}
	open := hs.sessions.Count()
	if hs.maxSessions > 0 && open >= hs.maxSessions {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("session limit reached (%d/%d)", open, hs.maxSessions),
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d/%d sessions open", open, hs.maxSessions),
	}
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "ready", Message: "WebSocket stream disabled"}
	}
	stats := hs.hub.Stats()
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d client(s) connected", stats.ActiveClients),
		Uptime:  time.Since(hs.startTime).String(),
	}
}

// checkExportHealth checks the export directory is usable by the CLI and
// file exports.
func (hs *HealthService) checkExportHealth() ServiceHealth {
	if hs.exportDir == "" {
		return ServiceHealth{Status: "ready", Message: "exports are streamed"}
	}
	info, err := os.Stat(hs.exportDir)
	if err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Export directory unavailable: %v", err),
		}
	}
	if !info.IsDir() {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Export path is not a directory: %s", hs.exportDir),
		}
	}
	return ServiceHealth{Status: "ready", Message: "Export directory is healthy"}
}

// GetDetailedHealth returns comprehensive health information
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
		"stats":     hs.SystemStats(ctx),
	}
}
