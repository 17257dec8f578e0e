package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultBackendURL, cfg.Backend.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Dashboard.CacheTTLDuration())
	assert.Equal(t, 50, cfg.Upload.KeepFinished)
	assert.Equal(t, 7, cfg.Dashboard.PerformanceDays)
	assert.Equal(t, 5, cfg.Dashboard.TopN)
	assert.Equal(t, 500, cfg.Upload.ProgressInterval)
	assert.Equal(t, 90, cfg.Upload.ProgressCap)
	assert.Equal(t, 2, cfg.Monitor.FailureThreshold)
	assert.Empty(t, cfg.Storage.Path)
	assert.Equal(t, 30, cfg.Storage.RetentionDays)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Same(t, cfg, Get())
}

func TestLoad_FileValuesAndTrailingSlash(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	path := writeConfig(t, `
server:
  port: 9000
backend:
  base_url: "http://kb.internal:8000/"
dashboard:
  top_n: 8
logging:
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "http://kb.internal:8000", cfg.Backend.BaseURL)
	assert.Equal(t, 8, cfg.Dashboard.TopN)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_ExplicitZeroCacheTTL(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	cfg, err := Load(writeConfig(t, "dashboard:\n  cache_ttl: 0\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg.Dashboard.CacheTTL)
	assert.Equal(t, 0, *cfg.Dashboard.CacheTTL)
	assert.Zero(t, cfg.Dashboard.CacheTTLDuration())

	cfg, err = Load(writeConfig(t, "dashboard:\n  cache_ttl: 5\n"))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Dashboard.CacheTTLDuration())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "backend:\n  base_url: http://from-file:1\n")
	t.Setenv(EnvAPIURL, "http://from-env:2")
	t.Setenv(EnvPort, "18111")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://from-env:2", cfg.Backend.BaseURL)
	assert.Equal(t, 18111, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_InvalidPortEnv(t *testing.T) {
	t.Setenv(EnvPort, "eighty")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvPort)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unterminated")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvPort, "")
	t.Setenv(EnvLogLevel, "")
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Monitor.Enabled = true
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
