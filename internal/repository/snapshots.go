package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"timerdeck/internal/storage"
	"timerdeck/pkg/logger"
)

// Get returns the payload stored under name.
func Get(ctx context.Context, db *sql.DB, name string) ([]byte, error) {
	if db == nil {
		return nil, errors.New("database unavailable")
	}
	var payload string
	err := db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE name = $1`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		logger.Error(ctx, "Repository Get failed", "error", err, "name", name)
		return nil, fmt.Errorf("select snapshot %s: %w", name, err)
	}
	return []byte(payload), nil
}

// Put inserts or replaces the payload stored under name.
func Put(ctx context.Context, db *sql.DB, name string, payload []byte) error {
	if db == nil {
		return errors.New("database unavailable")
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO snapshots (name, payload, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		name, string(payload), time.Now().UTC())
	if err != nil {
		logger.Error(ctx, "Repository Put failed", "error", err, "name", name)
		return fmt.Errorf("upsert snapshot %s: %w", name, err)
	}
	return nil
}

// Delete removes the payload stored under name.
func Delete(ctx context.Context, db *sql.DB, name string) error {
	if db == nil {
		return errors.New("database unavailable")
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM snapshots WHERE name = $1`, name); err != nil {
		logger.Error(ctx, "Repository Delete failed", "error", err, "name", name)
		return fmt.Errorf("delete snapshot %s: %w", name, err)
	}
	return nil
}

// Backend adapts the snapshots table to storage.Backend.
type Backend struct {
	db   *sql.DB
	name string
}

// NewBackend stores the collection in the row called name.
func NewBackend(db *sql.DB, name string) *Backend {
	return &Backend{db: db, name: name}
}

func (b *Backend) Read(ctx context.Context) ([]byte, error) {
	return Get(ctx, b.db, b.name)
}

func (b *Backend) Write(ctx context.Context, data []byte) error {
	return Put(ctx, b.db, b.name, data)
}

// Quarantine copies the unreadable row to <name>.corrupt and removes the original.
func (b *Backend) Quarantine(ctx context.Context) error {
	data, err := Get(ctx, b.db, b.name)
	if err != nil {
		return err
	}
	if err := Put(ctx, b.db, b.name+".corrupt", data); err != nil {
		return err
	}
	return Delete(ctx, b.db, b.name)
}

func (b *Backend) Ping(ctx context.Context) error {
	if b.db == nil {
		return errors.New("database unavailable")
	}
	return b.db.PingContext(ctx)
}
