// Package config loads the bootstrap configuration for the edlsync core.
// Runtime-mutable settings (API config, auth token, preferences) live in
// the settings collection of the local store instead.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DataDir     string            `mapstructure:"data_dir"`
	Server      ServerConfig      `mapstructure:"server"`
	Sync        SyncConfig        `mapstructure:"sync"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	API         APIConfig         `mapstructure:"api"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the listen address for the local HTTP API.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type SyncConfig struct {
	Interval   string `mapstructure:"interval"`
	AttemptCap int    `mapstructure:"attempt_cap"`
	AutoSync   bool   `mapstructure:"auto_sync"`
}

// GetInterval parses the sync interval, falling back to 30s.
func (s SyncConfig) GetInterval() time.Duration {
	d, err := time.ParseDuration(s.Interval)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

type MaintenanceConfig struct {
	Schedule      string `mapstructure:"schedule"`
	RetentionDays int    `mapstructure:"retention_days"`
}

type APIConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	TimeoutMs     int    `mapstructure:"timeout_ms"`
	RetryAttempts int    `mapstructure:"retry_attempts"`
	RetryDelayMs  int    `mapstructure:"retry_delay_ms"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// LoadConfig reads the YAML config at path, applying defaults for any
// missing keys. A missing file is not an error; defaults apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("data_dir", "./data")
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8090)
	v.SetDefault("sync.interval", "30s")
	v.SetDefault("sync.attempt_cap", 5)
	v.SetDefault("sync.auto_sync", true)
	v.SetDefault("maintenance.schedule", "0 3 * * *")
	v.SetDefault("maintenance.retention_days", 30)
	v.SetDefault("api.timeout_ms", 30000)
	v.SetDefault("api.retry_attempts", 3)
	v.SetDefault("api.retry_delay_ms", 1000)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// viper wraps fs errors differently depending on how the
			// file was specified; a missing file is tolerated either way
			if !isNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
