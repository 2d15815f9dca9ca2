package docstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"briefings/internal/docstore"
	"briefings/internal/testsupport"
)

type sample struct {
	Names []string       `json:"names"`
	Count int            `json:"count"`
	Meta  map[string]int `json:"meta"`
}

func newSample() sample {
	return sample{Names: []string{}, Meta: map[string]int{}}
}

func backends(t *testing.T) map[string]*docstore.Store {
	t.Helper()
	return map[string]*docstore.Store{
		"json":   testsupport.MustOpenStore(t, testsupport.NewConfig(t)),
		"sqlite": testsupport.MustOpenStore(t, testsupport.NewConfig(t, testsupport.WithSQLite())),
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc := docstore.NewDocument(store, "sample", newSample)

			want := sample{Names: []string{"a", "b"}, Count: 2, Meta: map[string]int{"x": 1}}
			if err := doc.Save(ctx, want); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got := doc.Load(ctx)
			if got.Count != 2 || len(got.Names) != 2 || got.Names[1] != "b" || got.Meta["x"] != 1 {
				t.Fatalf("unexpected document: %+v", got)
			}
			if _, ok := doc.ModTime(ctx); !ok {
				t.Fatal("expected mod time after save")
			}
		})
	}
}

func TestMissingDocumentLoadsDefault(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc := docstore.NewDocument(store, "absent", newSample)
			got := doc.Load(ctx)
			if got.Names == nil || got.Meta == nil || got.Count != 0 {
				t.Fatalf("expected default value, got %+v", got)
			}
			if _, ok := doc.ModTime(ctx); ok {
				t.Fatal("expected no mod time for absent document")
			}
		})
	}
}

func TestCorruptFileLoadsDefault(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	path := filepath.Join(cfg.Paths.DataDir, "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	doc := docstore.NewDocument(store, "broken", newSample)
	got := doc.Load(context.Background())
	if got.Count != 0 || len(got.Names) != 0 {
		t.Fatalf("expected default for corrupt document, got %+v", got)
	}

	if err := doc.Save(context.Background(), sample{Count: 7}); err != nil {
		t.Fatalf("Save after corrupt: %v", err)
	}
	if doc.Load(context.Background()).Count != 7 {
		t.Fatal("expected save to replace corrupt document")
	}
}

func TestUpdateSkipsWriteOnError(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc := docstore.NewDocument(store, "counter", newSample)

			for i := 0; i < 3; i++ {
				if err := doc.Update(ctx, func(s *sample) error {
					s.Count++
					return nil
				}); err != nil {
					t.Fatalf("Update: %v", err)
				}
			}

			sentinel := errors.New("stop")
			err := doc.Update(ctx, func(s *sample) error {
				s.Count = 100
				return sentinel
			})
			if !errors.Is(err, sentinel) {
				t.Fatalf("expected sentinel error, got %v", err)
			}
			if got := doc.Load(ctx).Count; got != 3 {
				t.Fatalf("expected count 3, got %d", got)
			}
		})
	}
}

func TestFileBackendWritesNamedFile(t *testing.T) {
	dir := t.TempDir()
	backend, err := docstore.NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	if _, err := backend.Read(ctx, "jobs"); !errors.Is(err, docstore.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
	if err := backend.Write(ctx, "jobs", []byte(`{}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "jobs.json")); err != nil {
		t.Fatalf("expected jobs.json: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".tmp" {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestSQLiteBackendPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.db")
	ctx := context.Background()

	backend, err := docstore.OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := backend.Write(ctx, "ledger", []byte(`{"entries":[]}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := backend.Write(ctx, "ledger", []byte(`{"entries":[1]}`)); err != nil {
		t.Fatalf("Write overwrite: %v", err)
	}
	backend.Close()

	reopened, err := docstore.OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	data, err := reopened.Read(ctx, "ledger")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != `{"entries":[1]}` {
		t.Fatalf("unexpected body %q", data)
	}
}
