package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "datacleaner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults only",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultPort, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, DefaultMaxSessions, cfg.Sessions.MaxSessions)
				assert.Equal(t, DefaultSessionTTL, cfg.Sessions.IdleTTL)
				assert.Equal(t, DefaultMaxUploadBytes, cfg.Upload.MaxBytes)
				assert.Equal(t, "console", cfg.Logging.Output)
				assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
				assert.Equal(t, ":8080", cfg.Server.Addr())
			},
		},
		{
			name: "file overrides defaults",
			file: `
server:
  port: 9000
  read_timeout: 5s
sessions:
  max_sessions: 3
logging:
  output: both
  file_path: ""
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 3, cfg.Sessions.MaxSessions)
				assert.Equal(t, DefaultLogFile, cfg.Logging.FilePath)
			},
		},
		{
			name: "env overrides file",
			file: "server:\n  port: 9000\n",
			env: map[string]string{
				"DC_SERVER_PORT":              "9100",
				"DC_SECURITY_ALLOWED_ORIGINS": "http://a.example,http://b.example",
				"DC_SESSIONS_IDLE_TTL":        "2m",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9100, cfg.Server.Port)
				assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Security.AllowedOrigins)
				assert.Equal(t, 2*time.Minute, cfg.Sessions.IdleTTL)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"DC_SERVER_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "invalid env value",
			env:     map[string]string{"DC_SESSIONS_MAX_SESSIONS": "many"},
			wantErr: true,
		},
		{
			name:    "invalid yaml",
			file:    "server: [",
			wantErr: true,
		},
		{
			name:    "unknown trace exporter",
			file:    "telemetry:\n  trace_exporter: jaeger\n",
			wantErr: true,
		},
		{
			name:    "bad logging output",
			file:    "logging:\n  output: syslog\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}

			cfg, err := LoadFile(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }},
		{"cors without origins", func(c *Config) { c.Security.AllowedOrigins = nil }},
		{"zero burst", func(c *Config) { c.Security.RateLimit.Burst = 0 }},
		{"no sessions", func(c *Config) { c.Sessions.MaxSessions = 0 }},
		{"zero sweep", func(c *Config) { c.Sessions.SweepInterval = 0 }},
		{"zero upload", func(c *Config) { c.Upload.MaxBytes = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.validate())
		})
	}

	assert.NoError(t, Default().validate())
}

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.ExportDir = "out"
	cfg.Paths.LogsDir = filepath.Join(base, "abs-logs")

	paths, err := cfg.ResolvePaths(base)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "out"), paths.ExportDir)
	assert.Equal(t, filepath.Join(base, "abs-logs"), paths.LogsDir)

	require.NoError(t, paths.EnsureDirectories())
	assert.DirExists(t, paths.ExportDir)
	assert.DirExists(t, paths.LogsDir)
}
