package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8190, cfg.Server.Port)
	assert.Equal(t, "./data", cfg.Data.Dir)
	assert.Equal(t, "Asia/Seoul", cfg.Data.Timezone)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Channel.ReconnectSeconds)
	assert.Equal(t, 30, cfg.Channel.HeartbeatSeconds)
}

func TestLoadReadsFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 9000
data:
  timezone: UTC
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agent.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "UTC", cfg.Data.Timezone)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Server.Enabled, "unset fields keep their defaults")
}

func TestLogDir(t *testing.T) {
	cfg := &Config{Data: DataConfig{Dir: "/var/kiosk"}}
	assert.Equal(t, "/var/kiosk/logs", cfg.LogDir())

	cfg.Logging.Dir = "/var/log/kiosk"
	assert.Equal(t, "/var/log/kiosk", cfg.LogDir())
}

func TestStoreCreatesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	cfg, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api", cfg.APIURL)
	assert.Equal(t, filepath.Join(dir, "videos"), cfg.DownloadPath)
	assert.True(t, cfg.AutoSync)
	assert.Equal(t, DefaultSyncIntervalHours, cfg.SyncInterval)
	assert.False(t, cfg.Configured(), "a default config has no kiosk identity")

	// The default must have been persisted.
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	cfg, err := store.Load()
	require.NoError(t, err)

	last := time.Date(2026, 8, 30, 4, 30, 0, 0, time.UTC)
	cfg.KioskID = "K001"
	cfg.PosID = "P001"
	cfg.KioskNo = 2
	cfg.SyncInterval = 6
	cfg.LastSync = &last
	require.NoError(t, store.Save(cfg))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "K001", got.KioskID)
	assert.Equal(t, 2, got.KioskNo)
	assert.Equal(t, 6, got.SyncInterval)
	require.NotNil(t, got.LastSync)
	assert.True(t, got.LastSync.Equal(last))
	assert.True(t, got.Configured())

	// No stray temp file after a successful save.
	_, err = os.Stat(store.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSyncIntervalClamp(t *testing.T) {
	cases := []struct {
		stored, want int
	}{
		{0, DefaultSyncIntervalHours},
		{-3, DefaultSyncIntervalHours},
		{1, 1},
		{12, 12},
		{24, 24},
		{25, MaxSyncIntervalHours},
		{999, MaxSyncIntervalHours},
	}
	for _, tc := range cases {
		cfg := &KioskConfig{SyncInterval: tc.stored}
		assert.Equal(t, tc.want, cfg.SyncIntervalHours(), "stored %d", tc.stored)
	}
}
