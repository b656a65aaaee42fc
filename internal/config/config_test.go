package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("RequestTimeout converts seconds to duration", func(t *testing.T) {
		cfg := &Config{RequestTimeoutSeconds: 30}
		assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	})

	t.Run("DemoAddr returns formatted port", func(t *testing.T) {
		cfg := &Config{DemoPort: 3000}
		assert.Equal(t, ":3000", cfg.DemoAddr())
	})

	t.Run("APIBase strips the trailing slash", func(t *testing.T) {
		cfg := &Config{BaseURL: "https://crm.example.com/"}
		assert.Equal(t, "https://crm.example.com", cfg.APIBase())
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			BaseURL:               "https://crm.example.com",
			RequestTimeoutSeconds: 30,
			Storage:               StorageFile,
		}
	}

	t.Run("accepts a valid config", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("rejects a non-http base url", func(t *testing.T) {
		cfg := valid()
		cfg.BaseURL = "ftp://crm.example.com"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects an unknown storage backend", func(t *testing.T) {
		cfg := valid()
		cfg.Storage = "s3"
		assert.Error(t, cfg.Validate())
	})

	t.Run("redis storage requires a redis url", func(t *testing.T) {
		cfg := valid()
		cfg.Storage = StorageRedis
		assert.Error(t, cfg.Validate())

		cfg.RedisURL = "redis://localhost:6379"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects a non-positive timeout", func(t *testing.T) {
		cfg := valid()
		cfg.RequestTimeoutSeconds = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestLoad(t *testing.T) {
	originalEnv := map[string]string{
		"CRM_BASE_URL":                os.Getenv("CRM_BASE_URL"),
		"CRM_REQUEST_TIMEOUT_SECONDS": os.Getenv("CRM_REQUEST_TIMEOUT_SECONDS"),
		"CRM_STORAGE":                 os.Getenv("CRM_STORAGE"),
		"CRM_STATE_FILE":              os.Getenv("CRM_STATE_FILE"),
		"CRM_REDIS_URL":               os.Getenv("CRM_REDIS_URL"),
		"LOG_LEVEL":                   os.Getenv("LOG_LEVEL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		for k := range originalEnv {
			os.Unsetenv(k)
		}

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
		assert.Equal(t, 30, cfg.RequestTimeoutSeconds)
		assert.Equal(t, StorageFile, cfg.Storage)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("loads custom values", func(t *testing.T) {
		os.Setenv("CRM_BASE_URL", "https://crm.example.com")
		os.Setenv("CRM_REQUEST_TIMEOUT_SECONDS", "10")
		os.Setenv("CRM_STORAGE", "redis")
		os.Setenv("CRM_REDIS_URL", "redis://localhost:6379")
		os.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "https://crm.example.com", cfg.BaseURL)
		assert.Equal(t, 10, cfg.RequestTimeoutSeconds)
		assert.Equal(t, StorageRedis, cfg.Storage)
		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, "debug", cfg.LogLevel)
	})
}
