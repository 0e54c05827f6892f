package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File keeps the blob in <dir>/<key>.json.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile returns a file backend rooted at dir.
func NewFile(dir, key string) *File {
	return &File{path: filepath.Join(dir, key+".json")}
}

// Path is the file the backend reads and writes.
func (f *File) Path() string {
	return f.path
}

func (f *File) Read(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage error reading %s: %w", f.path, err)
	}
	return data, nil
}

// Write atomically replaces the file: write to a temp file then rename.
func (f *File) Write(ctx context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("storage error creating directories: %w", err)
	}
	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return nil
}

// Quarantine moves an unreadable file to <path>.corrupt.
func (f *File) Quarantine(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return os.Rename(f.path, f.path+".corrupt")
}

// Ping verifies the directory is usable.
func (f *File) Ping(ctx context.Context) error {
	return os.MkdirAll(filepath.Dir(f.path), 0o700)
}
