package contentcache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"briefings/internal/contentcache"
	"briefings/internal/testsupport"
)

type fixedModTime struct {
	at time.Time
	ok bool
}

func (f fixedModTime) ModTime(context.Context) (time.Time, bool) { return f.at, f.ok }

func TestDailyGeneratesOncePerDate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	now := time.Date(2026, 3, 9, 8, 0, 0, 0, time.Local)
	cache := contentcache.NewDaily[string](store, "topics_cache", contentcache.WithClock(func() time.Time { return now }))

	calls := 0
	generate := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}
	ctx := context.Background()

	items, cached, err := cache.Get(ctx, false, generate)
	if err != nil || cached || len(items) != 2 {
		t.Fatalf("first Get: items=%v cached=%v err=%v", items, cached, err)
	}
	now = now.Add(10 * time.Hour)
	items, cached, err = cache.Get(ctx, false, generate)
	if err != nil || !cached || items[1] != "b" {
		t.Fatalf("same-day Get: items=%v cached=%v err=%v", items, cached, err)
	}
	if calls != 1 {
		t.Fatalf("expected one generation on the same date, got %d", calls)
	}

	now = now.Add(24 * time.Hour)
	if _, cached, _ = cache.Get(ctx, false, generate); cached {
		t.Fatal("next date should regenerate")
	}
	if calls != 2 {
		t.Fatalf("expected two generations, got %d", calls)
	}

	if _, cached, _ = cache.Get(ctx, true, generate); cached || calls != 3 {
		t.Fatalf("force should regenerate, cached=%v calls=%d", cached, calls)
	}
}

func TestDailyKeepsEntryOnGenerationError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	cache := contentcache.NewDaily[string](store, "suggestions_cache")
	ctx := context.Background()

	if _, _, err := cache.Get(ctx, false, func(context.Context) ([]string, error) { return []string{"kept"}, nil }); err != nil {
		t.Fatalf("seed: %v", err)
	}
	boom := errors.New("boom")
	if _, _, err := cache.Get(ctx, true, func(context.Context) ([]string, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected generation error, got %v", err)
	}
	items, ok := cache.Cached(ctx)
	if !ok || len(items) != 1 || items[0] != "kept" {
		t.Fatalf("expected previous entry to survive, got %v ok=%v", items, ok)
	}
}

func TestDailyStaleBeforeDependency(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	dep := &fixedModTime{}
	cache := contentcache.NewDaily[string](store, "suggestions_cache", contentcache.StaleBefore(dep))

	calls := 0
	generate := func(context.Context) ([]string, error) {
		calls++
		return []string{"s"}, nil
	}
	if _, _, err := cache.Get(ctx, false, generate); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Dependency never written: cache is fresh.
	if _, cached, _ := cache.Get(ctx, false, generate); !cached {
		t.Fatal("expected cached result with no dependency")
	}

	dep.at, dep.ok = time.Now().Add(time.Hour), true
	if _, cached, _ := cache.Get(ctx, false, generate); cached {
		t.Fatal("expected regeneration when the dependency is newer")
	}
	if calls != 2 {
		t.Fatalf("expected two generations, got %d", calls)
	}

	dep.at = time.Now().Add(-time.Hour)
	if _, cached, _ := cache.Get(ctx, false, generate); !cached {
		t.Fatal("expected cached result once the dependency is older")
	}
}
