package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backend names accepted in CRM_STORAGE.
const (
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

type Config struct {
	BaseURL               string `env:"CRM_BASE_URL" envDefault:"http://localhost:8080"`
	RequestTimeoutSeconds int    `env:"CRM_REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
	Storage               string `env:"CRM_STORAGE" envDefault:"file"`
	StateFile             string `env:"CRM_STATE_FILE" envDefault:""`
	RedisURL              string `env:"CRM_REDIS_URL" envDefault:""`
	LogLevel              string `env:"LOG_LEVEL" envDefault:"info"`
	DemoPort              int    `env:"CRM_DEMO_PORT" envDefault:"8080"`
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c *Config) DemoAddr() string {
	return fmt.Sprintf(":%d", c.DemoPort)
}

// APIBase returns the base URL without a trailing slash so paths can be
// appended verbatim.
func (c *Config) APIBase() string {
	return strings.TrimRight(c.BaseURL, "/")
}

func (c *Config) Validate() error {
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("CRM_BASE_URL must start with http:// or https://")
	}

	switch c.Storage {
	case StorageFile, StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("CRM_REDIS_URL is required when CRM_STORAGE=redis")
		}
	default:
		return fmt.Errorf("CRM_STORAGE must be one of: %s, %s, %s", StorageFile, StorageRedis, StorageMemory)
	}

	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("CRM_REQUEST_TIMEOUT_SECONDS must be positive")
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
