package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("KODBOX_BASE_URL", "http://kodbox.local:8080")
	t.Setenv("KODBOX_USERNAME", "user")
	t.Setenv("KODBOX_PASSWORD", "pass")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://kodbox.local:8080", cfg.KodboxBaseURL)
	assert.Equal(t, 30*time.Second, cfg.KodboxTimeout)
	assert.Equal(t, "kodbox", cfg.CaldavUsername)
	assert.Equal(t, "calendar123", cfg.CaldavPassword)
	assert.Equal(t, "KodBox CalDAV Bridge", cfg.CaldavRealm)
	assert.Nil(t, cfg.PublicTokens)
	assert.Equal(t, "0.0.0.0:5082", cfg.Addr())
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
	assert.Equal(t, time.Minute, cfg.SyncRetryDelay)
	assert.Equal(t, 10*time.Minute, cfg.CacheMaxAge)
	assert.Equal(t, "Asia/Shanghai", cfg.DisplayTimezone)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("SYNC_INTERVAL", "120")
	t.Setenv("SYNC_RETRY_DELAY", "30s")
	t.Setenv("CALDAV_PUBLIC_TOKENS", "tok1, tok2,,")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.SyncInterval, "bare numbers are seconds")
	assert.Equal(t, 30*time.Second, cfg.SyncRetryDelay)
	assert.Equal(t, []string{"tok1", "tok2"}, cfg.PublicTokens)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadValidation(t *testing.T) {
	t.Run("missing base URL", func(t *testing.T) {
		t.Setenv("KODBOX_BASE_URL", "")
		t.Setenv("KODBOX_USERNAME", "user")
		t.Setenv("KODBOX_PASSWORD", "pass")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("relative base URL", func(t *testing.T) {
		setRequired(t)
		t.Setenv("KODBOX_BASE_URL", "kodbox.local/path")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("missing credentials", func(t *testing.T) {
		setRequired(t)
		t.Setenv("KODBOX_PASSWORD", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("port out of range", func(t *testing.T) {
		setRequired(t)
		t.Setenv("SERVER_PORT", "70000")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestTrailingSlashTrimmed(t *testing.T) {
	setRequired(t)
	t.Setenv("KODBOX_BASE_URL", "http://kodbox.local/")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://kodbox.local", cfg.KodboxBaseURL)
}
