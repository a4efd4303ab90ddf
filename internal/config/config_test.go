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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8000/api", cfg.Backend.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "8090", cfg.UI.Port)
	assert.Equal(t, time.Minute, cfg.UI.StreamTokenTTL)
	assert.Equal(t, "theme", cfg.Theme.Key)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
backend:
  base_url: "http://chat.internal:9000/api/"
  timeout: 5s
ui:
  port: "9999"
  secret: "s3cret"
redis:
  addr: "localhost:6379"
  db: 2
theme:
  key: "ui-theme"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://chat.internal:9000/api", cfg.Backend.BaseURL, "trailing slash is trimmed")
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "9999", cfg.UI.Port)
	assert.Equal(t, "s3cret", cfg.UI.Secret)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "ui-theme", cfg.Theme.Key)
	// untouched keys keep defaults
	assert.Equal(t, "support-chat:", cfg.Redis.KeyPrefix)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CHAT_BACKEND_BASE_URL", "http://env-host:8000/api")
	t.Setenv("CHAT_REDIS_ADDR", "redis:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://env-host:8000/api", cfg.Backend.BaseURL)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestInit_PanicsOnBadFile(t *testing.T) {
	assert.Panics(t, func() {
		Init(filepath.Join(t.TempDir(), "nope.yaml"))
	})
}
