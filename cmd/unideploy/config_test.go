package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Config Loading Tests
// =============================================================================

func TestLoadConfig_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "./data/unideploy.db", cfg.Database.DSN)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "redis", cfg.DeployCode.Store)
	assert.Equal(t, 15*time.Minute, cfg.DeployCode.TTL)
	assert.False(t, cfg.DeployCode.SingleUse)
	assert.Equal(t, "http", cfg.Provision.Mode)
	assert.Equal(t, 64, cfg.Deployer.QueueSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	configContent := `
server:
  host: "127.0.0.1"
  port: 9000
  shutdown_timeout: 15s

database:
  dsn: "/tmp/journal.db"

deploy_code:
  store: memory
  ttl: 300s
  single_use: true

provision:
  mode: docker

log:
  level: "debug"
  format: "text"
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(configContent), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/tmp/journal.db", cfg.Database.DSN)
	assert.Equal(t, "memory", cfg.DeployCode.Store)
	assert.Equal(t, 5*time.Minute, cfg.DeployCode.TTL)
	assert.True(t, cfg.DeployCode.SingleUse)
	assert.Equal(t, "docker", cfg.Provision.Mode)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	clearEnv(t)

	t.Setenv("UNIDEPLOY_SERVER_HOST", "192.168.1.1")
	t.Setenv("UNIDEPLOY_SERVER_PORT", "3000")
	t.Setenv("UNIDEPLOY_DATABASE_DSN", "/custom/path.db")
	t.Setenv("UNIDEPLOY_REDIS_ADDR", "redis:6379")
	t.Setenv("UNIDEPLOY_LOG_LEVEL", "warn")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.1", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "/custom/path.db", cfg.Database.DSN)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfig_FileNotFound_UsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	require.NoError(t, err) // Should not error, just use defaults

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("invalid: yaml: content: [[["), 0644))

	_, err := LoadConfig(tmpFile)
	assert.Error(t, err)
}

func TestLoadConfig_RejectsUnknownCodeStore(t *testing.T) {
	clearEnv(t)

	t.Setenv("UNIDEPLOY_DEPLOY_CODE_STORE", "etcd")

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deploy_code.store")
}

func TestLoadConfig_RejectsUnknownProvisionMode(t *testing.T) {
	clearEnv(t)

	t.Setenv("UNIDEPLOY_PROVISION_MODE", "kubernetes")

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provision.mode")
}

// =============================================================================
// Logger Setup Tests
// =============================================================================

func TestSetupLogger_JSONFormat(t *testing.T) {
	cfg := &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}

	logger := SetupLogger(cfg)
	assert.NotNil(t, logger)
}

func TestSetupLogger_TextFormat(t *testing.T) {
	cfg := &Config{
		Log: LogConfig{
			Level:  "debug",
			Format: "text",
		},
	}

	logger := SetupLogger(cfg)
	assert.NotNil(t, logger)
}

func TestSetupLogger_InvalidLevel(t *testing.T) {
	cfg := &Config{
		Log: LogConfig{
			Level:  "invalid",
			Format: "json",
		},
	}

	// Should fall back to info level, not panic
	logger := SetupLogger(cfg)
	assert.NotNil(t, logger)
}

// =============================================================================
// Config Validation Tests
// =============================================================================

func TestConfig_Address(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
	}

	assert.Equal(t, "localhost:8080", cfg.Server.Address())
}

// =============================================================================
// Test Helpers
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"UNIDEPLOY_SERVER_HOST",
		"UNIDEPLOY_SERVER_PORT",
		"UNIDEPLOY_DATABASE_DSN",
		"UNIDEPLOY_REDIS_ADDR",
		"UNIDEPLOY_DEPLOY_CODE_STORE",
		"UNIDEPLOY_PROVISION_MODE",
		"UNIDEPLOY_LOG_LEVEL",
		"UNIDEPLOY_LOG_FORMAT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}
