package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
settings:
  timezone: WIB
  soon-window: 30m
service:
  database:
    driver: postgres
    host: db
    user: events
    password: secret
    name: events
  redis:
    enabled: true
    host: cache
notifications:
  backend: redis
  call-timeout: 2s
  telegram:
    chat-id: 1001
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	s, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "WIB", s.Timezone)
	assert.Equal(t, 30*time.Minute, s.SoonWindow)
	assert.Equal(t, 20, s.UpcomingLimit)
	assert.Equal(t, "postgres", s.Database.Driver)
	assert.Equal(t, "user=events password=secret dbname=events host=db port=5432 sslmode=disable TimeZone=UTC", s.Database.PostgresDSN())
	assert.Equal(t, "cache", s.Redis.Host)
	assert.Equal(t, "6379", s.Redis.Port)
	assert.Equal(t, "redis", s.Notifications.Backend)
	assert.Equal(t, 2*time.Second, s.Notifications.CallTimeout)
	assert.Equal(t, 30*time.Second, s.Notifications.DispatchInterval)
	assert.Equal(t, int64(1001), s.Notifications.Telegram.ChatID)
	assert.Equal(t, ":8080", s.HTTP.Listen)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("EVENTSYNC_SETTINGS_TIMEZONE", "JST")
	t.Setenv("EVENTSYNC_NOTIFICATIONS_CALL_TIMEOUT", "750ms")

	s, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, "JST", s.Timezone)
	assert.Equal(t, 750*time.Millisecond, s.Notifications.CallTimeout)
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", s.Database.Driver)
	assert.Equal(t, "memory", s.Notifications.Backend)
	assert.Equal(t, "@every 15m", s.ReconcileSchedule)
}

func TestLoadRejectsBadSettings(t *testing.T) {
	_, err := Load(writeConfig(t, "settings:\n  timezone: Mars/Olympus\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "notifications:\n  backend: redis\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "notifications:\n  backend: carrier-pigeon\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
