package testsupport

import (
	"path/filepath"
	"testing"

	"briefings/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Service keys are set to placeholders and base URLs point nowhere useful;
// tests that talk to fakes override them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Storage.SQLitePath = filepath.Join(base, "data", "briefings.db")
	cfgVal.Generation.APIKey = "test-generation-key"
	cfgVal.Speech.APIKey = "test-speech-key"
	cfgVal.Intel.URL = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithSQLite switches the document backend to sqlite.
func WithSQLite() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.Backend = "sqlite"
	}
}

// WithoutKeys clears both service keys.
func WithoutKeys() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Generation.APIKey = ""
		b.cfg.Speech.APIKey = ""
	}
}

// WithGenerationURL points the text-generation client at url.
func WithGenerationURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Generation.BaseURL = url
		b.cfg.Generation.RetryMaxAttempts = 1
	}
}

// WithSpeechURL points the speech client at url.
func WithSpeechURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Speech.BaseURL = url
	}
}

// WithIntelURL points the intelligence fetcher at url.
func WithIntelURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Intel.URL = url
	}
}

// WithAPIToken requires bearer token on the API routes.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithCronSecret guards the scheduled-trigger routes with secret.
func WithCronSecret(secret string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.CronSecret = secret
	}
}
