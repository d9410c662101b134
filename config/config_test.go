package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.InDelta(t, 0.9, cfg.Gemini.Temperature, 1e-6)
	assert.InDelta(t, 0.95, cfg.Gemini.TopP, 1e-6)
	assert.InDelta(t, 64, cfg.Gemini.TopK, 1e-6)
	assert.Equal(t, int32(8192), cfg.Gemini.MaxOutputTokens)
	assert.Equal(t, "text/plain", cfg.Gemini.ResponseMIMEType)
	assert.Equal(t, "in-memory", cfg.Storage.Kind)
	assert.Equal(t, 24*time.Hour, cfg.Storage.SessionTTL)
	assert.True(t, cfg.Web.Enabled)
	assert.False(t, cfg.Telegram.Enabled)
	assert.Equal(t, "secrets.toml", cfg.SecretsFile)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_MODEL", "gemini-1.5-pro")
	t.Setenv("ALLOWED_TELEGRAM_ID", "1,2")
	t.Setenv("STORAGE_KIND", "redis")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "gemini-1.5-pro", cfg.Gemini.Model)
	assert.Equal(t, []int64{1, 2}, cfg.Telegram.AllowedTelegramID)
	assert.Equal(t, "redis", cfg.Storage.Kind)
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
gemini:
  model: gemini-test
web:
  addr: ":9090"
storage:
  session_ttl: 30m
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini-test", cfg.Gemini.Model)
	assert.Equal(t, ":9090", cfg.Web.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Storage.SessionTTL)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestResolveAPIKey(t *testing.T) {
	t.Run("secrets file wins over environment", func(t *testing.T) {
		t.Setenv(APIKeyName, "env-key")
		path := writeFile(t, "secrets.toml", `GEMINI_API_KEY = "file-key"`)

		key, err := ResolveAPIKey(path)
		require.NoError(t, err)
		assert.Equal(t, "file-key", key)
	})

	t.Run("environment used when secrets file is missing", func(t *testing.T) {
		t.Setenv(APIKeyName, "env-key")

		key, err := ResolveAPIKey(filepath.Join(t.TempDir(), "secrets.toml"))
		require.NoError(t, err)
		assert.Equal(t, "env-key", key)
	})

	t.Run("environment used when secrets file has no key", func(t *testing.T) {
		t.Setenv(APIKeyName, "env-key")
		path := writeFile(t, "secrets.toml", `OTHER = "x"`)

		key, err := ResolveAPIKey(path)
		require.NoError(t, err)
		assert.Equal(t, "env-key", key)
	})

	t.Run("no key anywhere", func(t *testing.T) {
		t.Setenv(APIKeyName, "")

		_, err := ResolveAPIKey("")
		assert.ErrorIs(t, err, ErrNoAPIKey)
	})

	t.Run("broken secrets file", func(t *testing.T) {
		path := writeFile(t, "secrets.toml", `GEMINI_API_KEY = `)

		_, err := ResolveAPIKey(path)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNoAPIKey)
	})
}
