package config

import "time"

// Application constants
const (
	AppName    = "datacleaner"
	AppVersion = "1.0.0"

	// Server
	DefaultPort           = 8080
	DefaultRequestTimeout = 60 * time.Second

	// Rate Limiting
	DefaultRateLimit = 50 // requests per second
	DefaultBurstSize = 100

	// Sessions
	DefaultMaxSessions   = 64
	DefaultSessionTTL    = 30 * time.Minute
	DefaultSweepInterval = time.Minute

	// Uploads
	DefaultMaxUploadBytes int64 = 100 << 20 // 100MB

	// WebSocket
	WebSocketPingPeriod      = 30 * time.Second
	WebSocketPongWait        = 60 * time.Second
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// Files
	DefaultExportDir = "."
	DefaultLogsDir   = "logs"
	DefaultLogFile   = "logs/datacleaner.log"

	// Log Settings
	DefaultLogLevel = "info"

	// Preview and matrix caps
	DefaultPreviewRows = 5
	MaxPreviewRows     = 1000
	MissingMatrixRows  = 500
)
