package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"briefings/internal/config"
	"briefings/internal/logging"
)

// ErrNotExist is returned by backends when a document has never been written.
var ErrNotExist = errors.New("document does not exist")

// Backend reads and writes raw document bodies.
type Backend interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	ModTime(ctx context.Context, name string) (time.Time, error)
	Close() error
}

// Store hands out documents that share one backend and one lock per name.
type Store struct {
	backend Backend
	logger  *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New wraps a backend.
func New(backend Backend, logger *slog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logging.NewComponentLogger(logger, "docstore"),
		locks:   make(map[string]*sync.Mutex),
	}
}

// Open builds the backend selected by storage.backend.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("docstore: config required")
	}
	var (
		backend Backend
		err     error
	)
	switch cfg.Storage.Backend {
	case "sqlite":
		backend, err = OpenSQLite(cfg.Storage.SQLitePath)
	case "json", "":
		backend, err = NewFileBackend(cfg.Paths.DataDir)
	default:
		return nil, fmt.Errorf("docstore: unsupported backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}
	store := New(backend, logger)
	store.logger.Debug("document store opened",
		logging.String("backend", cfg.Storage.Backend),
		logging.String("data_dir", cfg.Paths.DataDir))
	return store, nil
}

// Close releases the backend.
func (s *Store) Close() error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

func (s *Store) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[name] = lock
	}
	return lock
}
