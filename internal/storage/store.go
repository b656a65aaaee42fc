package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/finlink/crm-console-go/internal/config"
)

// Store is the persistent key-value collaborator the session manager writes
// through. Implementations hold small string blobs keyed by name and must
// treat Delete of a missing key as a no-op.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Open builds the store selected by CRM_STORAGE.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return NewMemoryStore(), nil
	case config.StorageRedis:
		return NewRedisStore(cfg.RedisURL)
	case config.StorageFile:
		path := cfg.StateFile
		if path == "" {
			dir, err := os.UserConfigDir()
			if err != nil {
				return nil, fmt.Errorf("resolve state file path: %w", err)
			}
			path = filepath.Join(dir, config.DefaultStateFileName)
		}
		return NewFileStore(path)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage)
	}
}
