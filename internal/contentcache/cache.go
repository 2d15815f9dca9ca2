// Package contentcache memoizes expensive generation results for one local
// calendar day.
package contentcache

import (
	"context"
	"time"

	"briefings/internal/docstore"
)

// DateLayout is the calendar-date key stored with every entry.
const DateLayout = "2006-01-02"

// Entry is the persisted shape of a daily cache.
type Entry[T any] struct {
	Date  string `json:"date"`
	Items []T    `json:"items"`
}

// ModTimer reports when a document was last written.
type ModTimer interface {
	ModTime(ctx context.Context) (time.Time, bool)
}

// Generator produces a fresh set of items.
type Generator[T any] func(ctx context.Context) ([]T, error)

// Daily caches one list per local date.
type Daily[T any] struct {
	doc   *docstore.Document[Entry[T]]
	after ModTimer
	now   func() time.Time
}

// Option configures a Daily cache.
type Option func(*options)

type options struct {
	after ModTimer
	now   func() time.Time
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// StaleBefore marks a cached entry stale when it was written before dep.
func StaleBefore(dep ModTimer) Option {
	return func(o *options) {
		o.after = dep
	}
}

// NewDaily returns a cache stored under name.
func NewDaily[T any](store *docstore.Store, name string, opts ...Option) *Daily[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Daily[T]{
		doc:   docstore.NewDocument(store, name, func() Entry[T] { return Entry[T]{} }),
		after: o.after,
		now:   o.now,
	}
}

// Today returns the local date key.
func (c *Daily[T]) Today() string {
	return c.now().Local().Format(DateLayout)
}

// Cached returns today's entry when one exists, ignoring freshness.
func (c *Daily[T]) Cached(ctx context.Context) ([]T, bool) {
	entry := c.doc.Load(ctx)
	if entry.Date != c.Today() {
		return nil, false
	}
	return entry.Items, true
}

// Get returns today's cached items, or runs generate and stores the result.
// force skips the lookup. cached reports whether the items came from the
// store. A generation error leaves the stored entry untouched.
func (c *Daily[T]) Get(ctx context.Context, force bool, generate Generator[T]) (items []T, cached bool, err error) {
	today := c.Today()
	if !force {
		if items, ok := c.Cached(ctx); ok && c.fresh(ctx) {
			return items, true, nil
		}
	}
	items, err = generate(ctx)
	if err != nil {
		return nil, false, err
	}
	if items == nil {
		items = []T{}
	}
	if err := c.doc.Save(ctx, Entry[T]{Date: today, Items: items}); err != nil {
		return items, false, err
	}
	return items, false, nil
}

// ModTime reports when the cache was last written.
func (c *Daily[T]) ModTime(ctx context.Context) (time.Time, bool) {
	return c.doc.ModTime(ctx)
}

func (c *Daily[T]) fresh(ctx context.Context) bool {
	if c.after == nil {
		return true
	}
	depTime, ok := c.after.ModTime(ctx)
	if !ok {
		return true
	}
	own, ok := c.doc.ModTime(ctx)
	if !ok {
		return false
	}
	return !own.Before(depTime)
}
