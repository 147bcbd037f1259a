package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 20.0, cfg.Gateway.RateLimit)
	assert.Equal(t, 10, cfg.Gateway.RateBurst)
	assert.Equal(t, 10*time.Second, cfg.Monitoring.PollInterval)
	assert.Equal(t, "http://localhost:3000", cfg.Client.ServerURL)
	assert.Empty(t, cfg.Gateway.APIKey, "missing API key is not a load error")
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
	assert.Equal(t, ":3000", cfg.Addr())
}

func TestLoadDeploymentEnvNames(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NEXT_PUBLIC_API_GATEWAY_URL", "https://gateway.example.com/")
	t.Setenv("NEXT_PUBLIC_GATEWAY_API_KEY", "public-key")
	t.Setenv("NEXT_PUBLIC_TYPESENSE_URL", "https://search.example.com")
	t.Setenv("TYPESENSE_SEARCH_API_KEY", "ts-key")
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/icp")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://gateway.example.com", cfg.Gateway.URL)
	assert.Equal(t, "public-key", cfg.Gateway.APIKey)
	assert.Equal(t, "https://search.example.com", cfg.Typesense.URL)
	assert.Equal(t, "ts-key", cfg.Typesense.APIKey)
	assert.Equal(t, "secret", cfg.Supabase.JWTSecret)
	assert.Equal(t, "postgres://localhost/icp", cfg.Supabase.DatabaseURL)
}

func TestLoadServerKeyWinsOverPublicKey(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GATEWAY_API_KEY", "server-key")
	t.Setenv("NEXT_PUBLIC_GATEWAY_API_KEY", "public-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "server-key", cfg.Gateway.APIKey)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "icp.yaml")
	content := `
server:
  port: 8088
gateway:
  url: http://gw.internal:9000
  timeout: 5s
monitoring:
  poll_interval: 30s
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, "http://gw.internal:9000", cfg.Gateway.URL)
	assert.Equal(t, 5*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Monitoring.PollInterval)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateAggregatesProblems(t *testing.T) {
	cfg := Config{
		Server:     ServerConfig{Port: 70000, ReadTimeout: time.Second, WriteTimeout: time.Second},
		Gateway:    GatewayConfig{URL: "not a url", Timeout: time.Second, RateLimit: 1, RateBurst: 1},
		Client:     ClientConfig{ServerURL: "http://localhost:3000"},
		Monitoring: MonitoringConfig{PollInterval: 0},
		Log:        LogConfig{Level: "chatty"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "invalid server port")
	assert.Contains(t, msg, "gateway.url")
	assert.Contains(t, msg, "poll_interval")
	assert.Contains(t, msg, "invalid log level")
	assert.Contains(t, msg, "invalid log format")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   slog.Level
		wantOK bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"Error", slog.LevelError, true},
		{"", slog.LevelInfo, true},
		{"loud", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLogLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, LogFormatText, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("proxy request", "op", "fetch feeds")

	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, stderr.String(), "op=\"fetch feeds\"")
	assert.Contains(t, file.String(), `"op":"fetch feeds"`)
}

func TestSetupLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icp.log")
	logger, cleanup := SetupLogger(LogConfig{File: path}, slog.LevelInfo)
	logger.Info("started")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"started"`)
}

func TestSetupLoggerJSONStderr(t *testing.T) {
	var stderr bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, nil, LogFormatJSON, slog.LevelDebug)

	logger.Debug("upstream call", "status", 502)

	assert.Contains(t, stderr.String(), `"msg":"upstream call"`)
	assert.Contains(t, stderr.String(), `"status":502`)
}
