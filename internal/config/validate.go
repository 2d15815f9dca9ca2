package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable. Missing API keys are not a
// validation failure: the daemon starts without them and rejects the
// submissions that need them.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateURLs(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case "json", "sqlite":
		return nil
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (use json or sqlite)", c.Storage.Backend)
	}
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.MaxWorkers > 64 {
		return errors.New("workflow.max_workers must be 64 or less")
	}
	if c.Workflow.JobRetention < 10 {
		return errors.New("workflow.job_retention must be at least 10")
	}
	return nil
}

func (c *Config) validateURLs() error {
	checks := []struct {
		key   string
		value string
	}{
		{"generation.base_url", c.Generation.BaseURL},
		{"speech.base_url", c.Speech.BaseURL},
		{"feed.base_url", c.Feed.BaseURL},
	}
	for _, check := range checks {
		parsed, err := url.Parse(check.value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", check.key, check.value)
		}
	}
	if strings.TrimSpace(c.Intel.URL) != "" {
		if parsed, err := url.Parse(c.Intel.URL); err != nil || parsed.Scheme == "" {
			return fmt.Errorf("intel.url must be an absolute URL, got %q", c.Intel.URL)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
