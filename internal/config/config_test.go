// File: internal/config/config_test.go
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
	// An explicit path to a missing file is an error; an unset path with no
	// config.yaml in the search path falls back to defaults.
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "127.0.0.1:8010", cfg.Server.Addr())
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownGrace)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 45*time.Second, cfg.Browser.NavTimeout)
	assert.Equal(t, 1366, cfg.Recorder.DefaultWidth)
	assert.Equal(t, 768, cfg.Recorder.DefaultHeight)
	assert.Equal(t, 1, cfg.Recorder.SettleWait)
	assert.False(t, cfg.Archive.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9100
browser:
  headless: false
recorder:
  default_width: 1024
  default_height: 800
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 1024, cfg.Recorder.DefaultWidth)
	assert.Equal(t, 800, cfg.Recorder.DefaultHeight)
	// Untouched sections keep their defaults.
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "out of range"},
		{"zero action timeout", func(c *Config) { c.Browser.ActionTimeout = 0 }, "action_timeout"},
		{"zero nav timeout", func(c *Config) { c.Browser.NavTimeout = 0 }, "nav_timeout"},
		{"archive enabled without dsn", func(c *Config) { c.Archive.Enabled = true }, "archive.dsn"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}
