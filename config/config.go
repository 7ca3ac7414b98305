// Package config loads the opsql CLI configuration from YAML.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultBasePath    = "data"
	defaultQueueSize   = 256
	defaultBusyTimeout = 5 * time.Second
	defaultLogLevel    = "info"
	defaultLogFormat   = "text"
)

// Config is the on-disk configuration. Zero values are replaced by defaults.
type Config struct {
	BasePath     string        `yaml:"base_path"`
	Workers      int           `yaml:"workers"` // 0 means one per CPU
	QueueSize    int           `yaml:"queue_size"`
	BusyTimeout  time.Duration `yaml:"busy_timeout"`
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"` // "text" or "json"
	CRSQLitePath string        `yaml:"crsqlite_path"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		BasePath:    defaultBasePath,
		QueueSize:   defaultQueueSize,
		BusyTimeout: defaultBusyTimeout,
		LogLevel:    defaultLogLevel,
		LogFormat:   defaultLogFormat,
	}
}

// Load reads the YAML file at path on top of the defaults. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BasePath == "" {
		c.BasePath = defaultBasePath
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = defaultLogFormat
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("queue_size must not be negative, got %d", c.QueueSize)
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("busy_timeout must not be negative, got %s", c.BusyTimeout)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// NewLogger builds the logger described by the configuration.
func (c Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := c.Level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.LogFormat) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
