package intel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"briefings/internal/config"
	"briefings/internal/logging"
)

const page = `<html><head><title>Dashboard</title><style>.x{}</style></head>
<body>
<script>var secret = "Executive Summary";</script>
<h1>Executive Summary</h1>
<p>  Rivals are consolidating.  </p>
<h2>Dominant strategic positions</h2>
<ul><li>Platform bundling</li></ul>
<h2>Strategic contradictions</h2>
<p>Price vs premium.</p>
<h2>Questions that demonstrate</h2>
<p>Ignored.</p>
</body></html>`

func TestExtractTextSkipsHiddenContent(t *testing.T) {
	text, err := ExtractText(strings.NewReader(page))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if strings.Contains(text, "secret") || strings.Contains(text, "Dashboard") || strings.Contains(text, ".x{}") {
		t.Fatalf("hidden content leaked: %q", text)
	}
	if !strings.Contains(text, "Executive Summary\nRivals are consolidating.\nDominant strategic positions") {
		t.Fatalf("unexpected text layout: %q", text)
	}
}

func TestSplitSections(t *testing.T) {
	text, _ := ExtractText(strings.NewReader(page))
	sections := Split(text)
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %+v", sections)
	}
	if sections[0].Key != "executive_summary" || sections[0].Text != "Rivals are consolidating." {
		t.Fatalf("unexpected summary %+v", sections[0])
	}
	if sections[1].Text != "Dominant strategic positions\nPlatform bundling" {
		t.Fatalf("positions should keep heading, got %q", sections[1].Text)
	}
	if sections[2].Text != "Strategic contradictions\nPrice vs premium." {
		t.Fatalf("unexpected tensions %q", sections[2].Text)
	}
	want := "EXECUTIVE_SUMMARY:\nRivals are consolidating.\n\nPOSITIONS:\n"
	if !strings.HasPrefix(sections.Format(), want) {
		t.Fatalf("unexpected format %q", sections.Format())
	}
}

func TestSplitMissingHeadingsAreAbsent(t *testing.T) {
	sections := Split("nothing useful here")
	if !sections.Empty() {
		t.Fatalf("expected no sections, got %+v", sections)
	}

	sections = Split("Strategic contradictions\n" + strings.Repeat("x", 2000))
	if len(sections) != 1 || sections[0].Key != "tensions" {
		t.Fatalf("expected only tensions, got %+v", sections)
	}
	if len([]rune(sections[0].Text)) != 1000 {
		t.Fatalf("expected tensions truncated to 1000, got %d", len(sections[0].Text))
	}
}

func TestFetcherSendsUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != userAgent {
			t.Fatalf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Intel.URL = server.URL
	sections := NewFetcher(&cfg, logging.NewNop()).Fetch(context.Background())
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(sections))
	}
}

func TestFetcherFailureYieldsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Intel.URL = server.URL
	if sections := NewFetcher(&cfg, logging.NewNop()).Fetch(context.Background()); !sections.Empty() {
		t.Fatalf("expected empty sections, got %+v", sections)
	}
}
