// Package backends opens the storage backend named by the configuration.
package backends

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"timerdeck/internal/cache"
	"timerdeck/internal/config"
	"timerdeck/internal/database"
	"timerdeck/internal/repository"
	"timerdeck/internal/storage"
)

// Open returns the backend selected by STORAGE_BACKEND.
func Open(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.StorageBackend {
	case config.BackendFile, "":
		return storage.NewFile(cfg.StorageDir, cfg.StorageKey), nil
	case config.BackendMemory:
		return storage.NewMemory(), nil
	case config.BackendRedis:
		c := cache.Client(ctx)
		if c == nil {
			return nil, fmt.Errorf("redis client unavailable")
		}
		return cache.NewBackend(c, cfg.RedisKeyPrefix+cfg.StorageKey), nil
	case config.BackendPostgres, config.BackendSQLite:
		if cfg.StorageBackend == config.BackendSQLite {
			if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("sqlite dir: %w", err)
				}
			}
		}
		db := database.InitDB(ctx)
		if db == nil {
			return nil, fmt.Errorf("database not available")
		}
		if err := database.MigrateOrCreateSchema(ctx, db); err != nil {
			return nil, err
		}
		return repository.NewBackend(db, cfg.StorageKey), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
