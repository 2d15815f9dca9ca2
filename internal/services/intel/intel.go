// Package intel scrapes the competitive-intelligence page and slices its
// visible text into named sections.
package intel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"briefings/internal/config"
	"briefings/internal/logging"
	"briefings/internal/services"
)

const (
	userAgent      = "Mozilla/5.0 (compatible; IntelligenceBriefings/1.0)"
	defaultTimeout = 15 * time.Second
)

// Section is one named slice of the page text.
type Section struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Sections is an ordered set of page sections.
type Sections []Section

// Empty reports whether no section was found.
func (s Sections) Empty() bool {
	return len(s) == 0
}

// Format renders sections as "KEY:\ntext" blocks separated by blank lines.
func (s Sections) Format() string {
	parts := make([]string, 0, len(s))
	for _, section := range s {
		parts = append(parts, strings.ToUpper(section.Key)+":\n"+section.Text)
	}
	return strings.Join(parts, "\n\n")
}

type marker struct {
	key      string
	heading  string
	end      string
	keepHead bool
	limit    int
}

var markers = []marker{
	{key: "executive_summary", heading: "Executive Summary", end: "Dominant strategic positions", limit: 800},
	{key: "positions", heading: "Dominant strategic positions", end: "Strategic contradictions", keepHead: true, limit: 1500},
	{key: "tensions", heading: "Strategic contradictions", end: "Questions that demonstrate", keepHead: true, limit: 1000},
}

// Split extracts the known sections from raw page text. A missing heading
// leaves its section out; a missing end heading runs to the end of the text.
func Split(raw string) Sections {
	out := make(Sections, 0, len(markers))
	for _, m := range markers {
		start := strings.Index(raw, m.heading)
		if start < 0 {
			continue
		}
		bodyStart := start
		if !m.keepHead {
			bodyStart = start + len(m.heading)
		}
		end := len(raw)
		if idx := strings.Index(raw[bodyStart:], m.end); idx >= 0 {
			end = bodyStart + idx
		}
		text := truncate(strings.TrimSpace(raw[bodyStart:end]), m.limit)
		out = append(out, Section{Key: m.key, Text: text})
	}
	return out
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// ExtractText returns the visible text of an HTML document, one trimmed text
// node per line. Content inside script, style, and head is skipped.
func ExtractText(r io.Reader) (string, error) {
	tokenizer := html.NewTokenizer(r)
	var (
		parts []string
		skip  int
	)
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if err := tokenizer.Err(); err != nil && err != io.EOF {
				return "", err
			}
			return strings.Join(parts, "\n"), nil
		case html.StartTagToken:
			if skipped(tokenizer) {
				skip++
			}
		case html.EndTagToken:
			if skipped(tokenizer) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			if text := strings.TrimSpace(string(tokenizer.Text())); text != "" {
				parts = append(parts, text)
			}
		}
	}
}

func skipped(tokenizer *html.Tokenizer) bool {
	name, _ := tokenizer.TagName()
	switch string(name) {
	case "script", "style", "head":
		return true
	}
	return false
}

// Fetcher downloads and splits the intelligence page.
type Fetcher struct {
	url     string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

// NewFetcher builds a fetcher from the intel config section. An empty URL
// yields a fetcher that always returns no sections.
func NewFetcher(cfg *config.Config, logger *slog.Logger) *Fetcher {
	f := &Fetcher{
		timeout: defaultTimeout,
		client:  &http.Client{},
		logger:  logging.NewComponentLogger(logger, "intel"),
	}
	if cfg != nil {
		f.url = strings.TrimSpace(cfg.Intel.URL)
		if cfg.Intel.TimeoutSeconds > 0 {
			f.timeout = time.Duration(cfg.Intel.TimeoutSeconds) * time.Second
		}
	}
	return f
}

// Fetch returns the page sections. Failures are logged and reported as an
// empty result; the page is an optional enrichment.
func (f *Fetcher) Fetch(ctx context.Context) Sections {
	sections, err := f.fetch(ctx)
	if err != nil {
		logging.WarnWithContext(f.logger, "intelligence fetch failed", "intel_fetch_failed",
			logging.String("url", f.url),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check intel.url reachability"),
			logging.String(logging.FieldImpact, "prompts run without live intelligence"))
		return Sections{}
	}
	return sections
}

func (f *Fetcher) fetch(ctx context.Context) (Sections, error) {
	if f == nil || f.url == "" {
		return Sections{}, nil
	}
	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build intel request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "intel", "fetch", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, services.Wrap(services.ErrExternalService, "intel", "fetch", fmt.Sprintf("http %d", resp.StatusCode), nil)
	}
	raw, err := ExtractText(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse intel page: %w", err)
	}
	sections := Split(raw)
	f.logger.Debug("intelligence fetched",
		logging.Int("sections", len(sections)),
		logging.Int("chars", len(raw)))
	return sections, nil
}
