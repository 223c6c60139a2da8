package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. DC_SERVER_PORT.
const EnvPrefix = "DC"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Sessions  SessionsConfig  `yaml:"sessions" envconfig:"SESSIONS"`
	Upload    UploadConfig    `yaml:"upload" envconfig:"UPLOAD"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" split_words:"true"`
	Port            int           `yaml:"port" split_words:"true"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
	RequestTimeout  time.Duration `yaml:"request_timeout" split_words:"true"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" split_words:"true"`
	EnableCORS     bool            `yaml:"enable_cors" split_words:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" split_words:"true"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" split_words:"true"`
	RPS     float64 `yaml:"rps" split_words:"true"`
	Burst   int     `yaml:"burst" split_words:"true"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" split_words:"true"`
	Output      string `yaml:"output" split_words:"true"`
	FilePath    string `yaml:"file_path" split_words:"true"`
	Development bool   `yaml:"development" split_words:"true"`
}

// SessionsConfig bounds the in-memory session store.
type SessionsConfig struct {
	MaxSessions   int           `yaml:"max_sessions" split_words:"true"`
	IdleTTL       time.Duration `yaml:"idle_ttl" split_words:"true"`
	SweepInterval time.Duration `yaml:"sweep_interval" split_words:"true"`
}

// UploadConfig limits accepted input files.
type UploadConfig struct {
	MaxBytes          int64    `yaml:"max_bytes" split_words:"true"`
	AllowedExtensions []string `yaml:"allowed_extensions" split_words:"true"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	ExportDir string `yaml:"export_dir" split_words:"true"`
	LogsDir   string `yaml:"logs_dir" split_words:"true"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" split_words:"true"`
	WriteBufferSize int           `yaml:"write_buffer_size" split_words:"true"`
	PingPeriod      time.Duration `yaml:"ping_period" split_words:"true"`
	PongWait        time.Duration `yaml:"pong_wait" split_words:"true"`
}

// TelemetryConfig selects the OpenTelemetry exporters.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled" split_words:"true"`
	ServiceName   string `yaml:"service_name" split_words:"true"`
	TraceExporter string `yaml:"trace_exporter" split_words:"true"`
	MetricsPath   string `yaml:"metrics_path" split_words:"true"`
}

// Load builds the configuration from defaults, the first config file found
// in the usual locations and DC_* environment variables, in increasing order
// of precedence.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit config file. An empty path skips the
// file layer.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Fields have no default tags so envconfig only touches variables that are
	// set. split_words keeps envconfig from also reading unprefixed names.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file on cfg.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	if c.Sessions.MaxSessions <= 0 {
		return fmt.Errorf("max sessions must be positive")
	}

	if c.Sessions.IdleTTL <= 0 || c.Sessions.SweepInterval <= 0 {
		return fmt.Errorf("session ttl and sweep interval must be positive")
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload max bytes must be positive")
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output %q", c.Logging.Output)
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFile
	}

	switch c.Telemetry.TraceExporter {
	case "", "none", "stdout":
	default:
		return fmt.Errorf("invalid trace exporter %q", c.Telemetry.TraceExporter)
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"datacleaner.yaml",
		"configs/datacleaner.yaml",
		"../configs/datacleaner.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  DefaultRequestTimeout,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Output:   "console",
			FilePath: DefaultLogFile,
		},
		Sessions: SessionsConfig{
			MaxSessions:   DefaultMaxSessions,
			IdleTTL:       DefaultSessionTTL,
			SweepInterval: DefaultSweepInterval,
		},
		Upload: UploadConfig{
			MaxBytes:          DefaultMaxUploadBytes,
			AllowedExtensions: []string{".csv", ".tsv", ".txt", ".xlsx", ".xlsm", ".json", ".ndjson", ".jsonl"},
		},
		Paths: PathsConfig{
			ExportDir: DefaultExportDir,
			LogsDir:   DefaultLogsDir,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  WebSocketReadBufferSize,
			WriteBufferSize: WebSocketWriteBufferSize,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
		Telemetry: TelemetryConfig{
			Enabled:       true,
			ServiceName:   AppName,
			TraceExporter: "none",
			MetricsPath:   "/metrics",
		},
	}
}
