// Package dupconfig is the process configuration for the duplicator service,
// JSON-tagged and loaded the way pkg/config.Config is in the teacher repo:
// a DefaultConfig, a LoadConfig(path) that overlays a file on the defaults,
// and a LoadOrDefault that tries a handful of conventional locations before
// falling back.
package dupconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PostgresConfig names the destination/publish Postgres connection.
type PostgresConfig struct {
	DSN             string        `json:"dsn"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}

// GroupCacheConfig configures the in-memory Badger-backed group snapshot
// cache used by GroupManager.
type GroupCacheConfig struct {
	InMemory bool   `json:"in_memory"`
	DataDir  string `json:"data_dir"`
}

// LogConfig carries the configured log level. The default logger
// (logging.NewStdLogger) does not read it and logs every message.
type LogConfig struct {
	Level string `json:"level"`
}

// Config is the full duplicator process configuration.
type Config struct {
	Postgres   PostgresConfig   `json:"postgres"`
	GroupCache GroupCacheConfig `json:"group_cache"`
	Log        LogConfig        `json:"log"`
}

// DefaultConfig returns sane defaults for local development.
func DefaultConfig() *Config {
	return &Config{
		Postgres: PostgresConfig{
			DSN:             "postgres://localhost:5432/collab?sslmode=disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		GroupCache: GroupCacheConfig{
			InMemory: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configPath over the defaults. An empty path returns the
// defaults unchanged.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	if configPath == "" {
		return cfg, nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("dupconfig: config file not found: %s", configPath)
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("dupconfig: read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("dupconfig: parse config file: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault tries DUPLICATOR_CONFIG, then a couple of conventional paths,
// before giving up and returning the defaults.
func LoadOrDefault() *Config {
	if envPath := os.Getenv("DUPLICATOR_CONFIG"); envPath != "" {
		if cfg, err := LoadConfig(envPath); err == nil {
			return cfg
		}
	}
	for _, path := range []string{"config.json", "./config/config.json", "/etc/collab-duplicator/config.json"} {
		if abs, err := filepath.Abs(path); err == nil {
			if cfg, err := LoadConfig(abs); err == nil {
				return cfg
			}
		}
	}
	return DefaultConfig()
}

func validate(cfg *Config) error {
	if cfg.Postgres.MaxOpenConns < 1 {
		return fmt.Errorf("dupconfig: postgres.max_open_conns must be > 0")
	}
	if cfg.Postgres.MaxIdleConns < 0 {
		return fmt.Errorf("dupconfig: postgres.max_idle_conns must be >= 0")
	}
	return nil
}
