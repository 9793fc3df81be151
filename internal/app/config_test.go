package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, 30, cfg.Server.JoinRateLimit)

	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "directory", cfg.Identity.Backend)
	require.Equal(t, 10*time.Second, cfg.Identity.HTTP.Timeout)

	require.Equal(t, 5*time.Second, cfg.Join.Timeout)
	require.Equal(t, 24, cfg.Join.TokenLength)

	require.Equal(t, "roster", cfg.Auth.JWT.Issuer)
	require.Equal(t, time.Hour, cfg.Auth.JWT.TTL)

	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.True(t, cfg.Maintenance.Enabled)
	require.Equal(t, 90, cfg.Maintenance.AuditRetentionDays)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	contents := []byte(`
server:
  port: 9001
  join_rate_limit: 5
identity:
  backend: http
  http:
    base_url: https://accounts.internal
    api_key: sekrit
    timeout: 3s
auth:
  jwt:
    secret: file-secret
    sign_in_token_ttl: 30m
join:
  timeout: 2s
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), contents, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	require.Equal(t, 9001, cfg.Server.Port)
	require.Equal(t, 5, cfg.Server.JoinRateLimit)
	require.Equal(t, "http", cfg.Identity.Backend)
	require.Equal(t, "https://accounts.internal", cfg.Identity.HTTP.BaseURL)
	require.Equal(t, 3*time.Second, cfg.Identity.HTTP.Timeout)
	require.Equal(t, "file-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 2*time.Second, cfg.Join.Timeout)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("ROSTER_SERVER_PORT", "9100")
	t.Setenv("ROSTER_SERVER_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestConfigValidate(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	// No JWT secret configured by default.
	require.Error(t, cfg.Validate())

	cfg.Auth.JWT.Secret = "configured"
	require.NoError(t, cfg.Validate())

	cfg.Identity.Backend = "http"
	require.Error(t, cfg.Validate())

	cfg.Identity.HTTP.BaseURL = "https://accounts.internal"
	require.NoError(t, cfg.Validate())

	cfg.Identity.Backend = "ldap"
	require.Error(t, cfg.Validate())
}

func TestDirectoryDatabaseConfigFallback(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	dir := cfg.DirectoryDatabaseConfig()
	require.Equal(t, "sqlite", dir.Driver)
	require.NotEmpty(t, dir.Path)
	require.NotEqual(t, cfg.StoreDatabaseConfig().Path, dir.Path)
}
