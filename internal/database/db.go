package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"timerdeck/internal/config"
	"timerdeck/pkg/logger"
)

// Driver names registered by the imported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS snapshots (
	name TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

var (
	pool *sql.DB
	once sync.Once
)

// DB returns the global database connection pool (initialized on first use)
// for the configured SQL backend, or nil when none is usable.
func DB(ctx context.Context) *sql.DB {
	once.Do(func() {
		cfg := config.Get()
		var driver, dsn string
		switch cfg.StorageBackend {
		case config.BackendPostgres:
			if cfg.DatabaseURL == "" {
				logger.Error(ctx, "DATABASE_URL is not set")
				return
			}
			driver, dsn = DriverPostgres, cfg.DatabaseURL
		case config.BackendSQLite:
			driver, dsn = DriverSQLite, cfg.SQLitePath
		default:
			logger.Error(ctx, "No SQL storage backend configured", "backend", cfg.StorageBackend)
			return
		}
		db, err := Open(ctx, driver, dsn, cfg.DBPoolSize)
		if err != nil {
			logger.Error(ctx, "Failed to open database", "error", err, "driver", driver)
			return
		}
		pool = db
		logger.Info(ctx, "Database pool initialized", "driver", driver, "max_open", cfg.DBPoolSize)
	})
	return pool
}

// InitDB initializes the DB pool and returns it.
func InitDB(ctx context.Context) *sql.DB {
	return DB(ctx)
}

// Open connects with the given driver and sizes the pool. SQLite is kept to
// a single connection since it serializes writers anyway.
func Open(ctx context.Context, driver, dsn string, poolSize int) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		poolSize = 1
	}
	if poolSize > 0 {
		db.SetMaxOpenConns(poolSize)
		db.SetMaxIdleConns((poolSize + 1) / 2)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// MigrateOrCreateSchema creates the snapshots table when missing.
func MigrateOrCreateSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
