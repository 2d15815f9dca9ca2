package docstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const fileLockRetryDelay = 25 * time.Millisecond

// FileBackend stores each document as <dir>/<name>.json.
type FileBackend struct {
	dir  string
	lock *flock.Flock
}

// NewFileBackend prepares dir for document storage.
func NewFileBackend(dir string) (*FileBackend, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("docstore: data directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("docstore: create data directory: %w", err)
	}
	return &FileBackend{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, ".documents.lock")),
	}, nil
}

// Path returns the file that backs name.
func (b *FileBackend) Path(name string) string {
	return filepath.Join(b.dir, name+".json")
}

func (b *FileBackend) Read(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(b.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return data, nil
}

// Write replaces the document atomically. The advisory lock keeps a CLI
// process and the daemon from interleaving renames on the same directory.
func (b *FileBackend) Write(ctx context.Context, name string, data []byte) error {
	locked, err := b.lock.TryLockContext(ctx, fileLockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire document lock: %w", err)
	}
	if !locked {
		return errors.New("acquire document lock: not acquired")
	}
	defer func() { _ = b.lock.Unlock() }()

	target := b.Path(name)
	tmp, err := os.CreateTemp(b.dir, "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		cleanup()
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (b *FileBackend) ModTime(_ context.Context, name string) (time.Time, error) {
	info, err := os.Stat(b.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, ErrNotExist
		}
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (b *FileBackend) Close() error {
	return b.lock.Close()
}
