package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"briefings/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckIntel(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	if r := CheckIntel(context.Background(), ok.URL); !r.Passed {
		t.Fatalf("expected pass, got: %s", r.Detail)
	}
	if r := CheckIntel(context.Background(), down.URL); r.Passed {
		t.Fatal("expected failure for 502")
	}
	if r := CheckIntel(context.Background(), ""); r.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestCheckSpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-speech-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"character_count":10,"character_limit":100,"tier":"starter"}`))
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithSpeechURL(srv.URL))
	if r := CheckSpeech(context.Background(), cfg); !r.Passed {
		t.Fatalf("expected pass, got: %s", r.Detail)
	}

	cfg.Speech.APIKey = "wrong"
	if r := CheckSpeech(context.Background(), cfg); r.Passed || r.Detail != "auth failed (invalid api key)" {
		t.Fatalf("expected auth failure, got %+v", r)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_WithoutKeys(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutKeys())

	results := RunAll(context.Background(), cfg)
	// Three directories and two key checks, no intel URL
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	failed := Failed(results)
	if len(failed) != 2 {
		t.Fatalf("expected both key checks to fail, got %+v", failed)
	}
	for _, r := range failed {
		if r.Name != "Generation API key" && r.Name != "Speech API key" {
			t.Errorf("unexpected failing check %q: %s", r.Name, r.Detail)
		}
	}
}

func TestRunAll_IncludesIntelWhenConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithoutKeys(), testsupport.WithIntelURL(srv.URL))
	found := false
	for _, r := range RunAll(context.Background(), cfg) {
		if r.Name == "Intelligence page" {
			found = true
			if !r.Passed {
				t.Errorf("intel check failed: %s", r.Detail)
			}
		}
	}
	if !found {
		t.Fatal("expected intelligence check in results")
	}
}
