package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultTOMLConfig(), config)

	// The default file was written and parses back to the same values.
	_, err = os.Stat(path)
	require.NoError(t, err)

	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config, reloaded)
}

func TestLoadConfigParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
http_port = 9000
ping_interval_seconds = 30

[limits]
max_message_length = 100
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	cfg := config.ToConfig()
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.PingInterval)
	assert.Equal(t, 100, cfg.MaxMessageLength)
	// Unset values fall back to defaults.
	assert.Equal(t, 256, cfg.SendQueueSize)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
}

func TestLoadConfigRejectsBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not valid toml ["), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestPongWaitExceedsPingInterval(t *testing.T) {
	cfg := DefaultConfig()
	assert.Greater(t, cfg.PongWait(), cfg.PingInterval)
}

func TestReadLimitCoversMessageLength(t *testing.T) {
	cfg := DefaultConfig()
	assert.Greater(t, cfg.ReadLimit(), int64(cfg.MaxMessageLength))
}
