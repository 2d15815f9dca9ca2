package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"briefings/internal/logging"
)

// Document is a typed view over one named record.
type Document[T any] struct {
	store      *Store
	name       string
	newDefault func() T
}

// NewDocument binds name to a value type. newDefault supplies the value used
// when the record is absent or corrupt; nil means the zero value.
func NewDocument[T any](store *Store, name string, newDefault func() T) *Document[T] {
	if newDefault == nil {
		newDefault = func() T {
			var zero T
			return zero
		}
	}
	return &Document[T]{store: store, name: name, newDefault: newDefault}
}

// Name returns the document name.
func (d *Document[T]) Name() string {
	return d.name
}

// Load returns the last written value, or the default.
func (d *Document[T]) Load(ctx context.Context) T {
	lock := d.store.lockFor(d.name)
	lock.Lock()
	defer lock.Unlock()
	return d.loadLocked(ctx)
}

// Save replaces the whole document.
func (d *Document[T]) Save(ctx context.Context, value T) error {
	lock := d.store.lockFor(d.name)
	lock.Lock()
	defer lock.Unlock()
	return d.saveLocked(ctx, value)
}

// Update loads the document, applies fn, and persists the result while
// holding the document lock. Returning an error from fn skips the write.
func (d *Document[T]) Update(ctx context.Context, fn func(*T) error) error {
	lock := d.store.lockFor(d.name)
	lock.Lock()
	defer lock.Unlock()

	value := d.loadLocked(ctx)
	if err := fn(&value); err != nil {
		return err
	}
	return d.saveLocked(ctx, value)
}

// ModTime reports when the document was last written.
func (d *Document[T]) ModTime(ctx context.Context) (time.Time, bool) {
	ts, err := d.store.backend.ModTime(ctx, d.name)
	if err != nil {
		if !errors.Is(err, ErrNotExist) {
			d.store.logger.Debug("document mod time unavailable",
				logging.String("document", d.name),
				logging.Error(err))
		}
		return time.Time{}, false
	}
	return ts, true
}

func (d *Document[T]) loadLocked(ctx context.Context) T {
	data, err := d.store.backend.Read(ctx, d.name)
	if err != nil {
		if !errors.Is(err, ErrNotExist) {
			logging.WarnWithContext(d.store.logger, "document read failed", "document_read_failed",
				logging.String("document", d.name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check data directory permissions"),
				logging.String(logging.FieldImpact, "document treated as empty"))
		}
		return d.newDefault()
	}

	value := d.newDefault()
	if err := json.Unmarshal(data, &value); err != nil {
		logging.WarnWithContext(d.store.logger, "document is corrupt", "document_corrupt",
			logging.String("document", d.name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the next write replaces it"),
			logging.String(logging.FieldImpact, "document treated as empty"))
		return d.newDefault()
	}
	return value
}

func (d *Document[T]) saveLocked(ctx context.Context, value T) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.name, err)
	}
	if err := d.store.backend.Write(ctx, d.name, data); err != nil {
		return fmt.Errorf("write %s: %w", d.name, err)
	}
	return nil
}
