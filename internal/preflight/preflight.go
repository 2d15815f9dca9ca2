package preflight

import (
	"context"
	"strings"

	"briefings/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Episodes directory", cfg.EpisodesDir()),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckKey("Generation API key", cfg.Generation.APIKey),
	}

	if cfg.HasSpeechKey() {
		results = append(results, CheckSpeech(ctx, cfg))
	} else {
		results = append(results, CheckKey("Speech API key", cfg.Speech.APIKey))
	}

	if strings.TrimSpace(cfg.Intel.URL) != "" {
		results = append(results, CheckIntel(ctx, cfg.Intel.URL))
	}

	return results
}

// Failed filters results down to the checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
