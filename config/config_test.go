package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "opsql.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, "data", cfg.BasePath)
	require.Equal(t, 256, cfg.QueueSize)
	require.Equal(t, 5*time.Second, cfg.BusyTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
base_path: /var/lib/opsql
workers: 3
busy_timeout: 250ms
log_level: debug
log_format: json
crsqlite_path: /usr/lib/crsqlite.so
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Config{
		BasePath:     "/var/lib/opsql",
		Workers:      3,
		QueueSize:    256,
		BusyTimeout:  250 * time.Millisecond,
		LogLevel:     "debug",
		LogFormat:    "json",
		CRSQLitePath: "/usr/lib/crsqlite.so",
	}, cfg)

	level, err := cfg.Level()
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "failed to read config")

	_, err = Load(writeConfig(t, "workers: [1, 2]"))
	require.ErrorContains(t, err, "failed to parse config")

	_, err = Load(writeConfig(t, "workers: -1"))
	require.ErrorContains(t, err, "workers must not be negative")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"negative queue", func(c *Config) { c.QueueSize = -1 }, "queue_size must not be negative"},
		{"negative timeout", func(c *Config) { c.BusyTimeout = -time.Second }, "busy_timeout must not be negative"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "invalid log_level"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "log_format must be text or json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			require.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"

	var buf bytes.Buffer
	logger, err := cfg.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "component", "Test")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"shown"`)
	require.Contains(t, buf.String(), `"component":"Test"`)
}
