package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "data.json", cfg.Storage.DataFile)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Zero(t, cfg.Server.RateLimit)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "8080"
  read_timeout: 3s
storage:
  data_file: /var/lib/userroles/data.json
log:
  level: debug
  format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "9090", cfg.Server.MetricsPort, "unset keys keep defaults")
	assert.Equal(t, "/var/lib/userroles/data.json", cfg.Storage.DataFile)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"8080\"\n"), 0o644))

	t.Setenv("USERROLES_SERVER_PORT", "9000")
	t.Setenv("USERROLES_SERVER_METRICS_PORT", "9100")
	t.Setenv("USERROLES_STORAGE_DATA_FILE", "/tmp/users.json")
	t.Setenv("USERROLES_CORS_ALLOWED_ORIGINS", "http://a.example, http://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "9100", cfg.Server.MetricsPort)
	assert.Equal(t, "/tmp/users.json", cfg.Storage.DataFile)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("USERROLES_LOG_LEVEL", "verbose")

	_, err := Load("")
	assert.ErrorContains(t, err, "invalid config")
}

func TestEnvValue(t *testing.T) {
	key, value := envValue("USERROLES_SERVER_READ_HEADER_TIMEOUT", "2s")

	assert.Equal(t, "server.read_header_timeout", key)
	assert.Equal(t, "2s", value)
}
