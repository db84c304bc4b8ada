package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "0.0.0.0"

relay:
  host: "mail.example.com"
  port: 587
  username: "relay-user"
  password: "relay-pass"
  pool_size: 10
  max_messages_per_connection: 50

report:
  system_sender: "reports@example.com"

auth:
  api_keys:
    - "key-one"
    - "key-two"
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "mail.example.com", cfg.Relay.Host)
	assert.Equal(t, 587, cfg.Relay.Port)
	assert.Equal(t, "relay-user", cfg.Relay.Username)
	assert.Equal(t, 10, cfg.Relay.PoolSize)
	assert.Equal(t, 50, cfg.Relay.MaxMessagesPerConnection)
	assert.Equal(t, "reports@example.com", cfg.Report.SystemSender)
	assert.Equal(t, []string{"key-one", "key-two"}, cfg.Auth.APIKeys)
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	require.NoError(t, os.WriteFile(configPath, []byte("relay:\n  host: localhost\n"), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "smtp", cfg.Relay.Vendor)
	assert.Equal(t, 25, cfg.Relay.Port)
	assert.Equal(t, 5, cfg.Relay.PoolSize)
	assert.Equal(t, 100, cfg.Relay.MaxMessagesPerConnection)
	assert.Equal(t, 30, cfg.Relay.TimeoutSeconds)
	assert.Equal(t, "us-east-1", cfg.Relay.SESRegion)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	require.NoError(t, os.WriteFile(configPath, []byte("relay: [not a map"), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	require.NoError(t, os.WriteFile(configPath, []byte("relay:\n  host: yaml-host\n  port: 25\n"), 0644))

	t.Setenv("RELAY_HOST", "env-host")
	t.Setenv("RELAY_PORT", "2525")
	t.Setenv("RELAY_USERNAME", "env-user")
	t.Setenv("API_KEYS", "alpha, beta,")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("DATABASE_URL", "postgres://localhost/relay")

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	assert.Equal(t, "env-host", cfg.Relay.Host)
	assert.Equal(t, 2525, cfg.Relay.Port)
	assert.Equal(t, "env-user", cfg.Relay.Username)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Auth.APIKeys)
	assert.True(t, cfg.Throttle.Enabled)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Throttle.RedisURL)
	assert.Equal(t, "postgres://localhost/relay", cfg.Storage.DatabaseURL)
}

func TestLoadFromEnvDevMode(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	require.NoError(t, os.WriteFile(configPath, []byte("relay:\n  host: localhost\n"), 0644))

	t.Setenv("DEV_MODE", "true")

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)
	assert.True(t, cfg.Auth.DevMode)
}

func TestDialTimeout(t *testing.T) {
	r := RelayConfig{TimeoutSeconds: 45}
	assert.Equal(t, "45s", r.DialTimeout().String())
}
