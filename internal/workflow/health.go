package workflow

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"

	"briefings/internal/services/llm"
	"briefings/internal/services/tts"
)

const (
	speechWarnPct      = 80.0
	recentErrorWindow  = 10
	webSearchTestToken = 100
	webSearchPrompt    = "What is today's date? Answer in one sentence."
)

var (
	billingWords   = []string{"credit", "quota", "billing", "overload", "rate limit", "insufficient"}
	permissionHint = []string{"credit", "quota", "billing", "unauthorized", "403", "permission"}
)

// SpeechHealth summarizes the speech account.
type SpeechHealth struct {
	Status              string  `json:"status"`
	CharactersUsed      int     `json:"characters_used,omitempty"`
	CharactersLimit     int     `json:"characters_limit,omitempty"`
	CharactersRemaining int     `json:"characters_remaining,omitempty"`
	PctUsed             float64 `json:"pct_used,omitempty"`
	Tier                string  `json:"tier,omitempty"`
	Error               string  `json:"error,omitempty"`
	Warning             bool    `json:"warning"`
}

// GenerationHealth summarizes the generation service.
type GenerationHealth struct {
	Status        string `json:"status"`
	KeyConfigured bool   `json:"key_configured"`
	Warning       bool   `json:"warning"`
	WarningReason string `json:"warning_reason,omitempty"`
}

// Services groups the per-service reports.
type Services struct {
	Speech     SpeechHealth     `json:"elevenlabs"`
	Generation GenerationHealth `json:"anthropic"`
}

// HealthReport is the combined service health.
type HealthReport struct {
	Health     Services `json:"health"`
	AnyWarning bool     `json:"any_warning"`
}

// Health checks both external services.
func (m *Manager) Health(ctx context.Context) HealthReport {
	report := HealthReport{Health: Services{
		Speech:     m.speechHealth(ctx),
		Generation: m.generationHealth(ctx),
	}}
	report.AnyWarning = report.Health.Speech.Warning || report.Health.Generation.Warning
	return report
}

func (m *Manager) speechHealth(ctx context.Context) SpeechHealth {
	if !m.cfg.HasSpeechKey() || m.speech == nil {
		return SpeechHealth{Status: "missing_key", Warning: true}
	}
	sub, err := m.speech.Subscription(ctx)
	if err != nil {
		var statusErr *tts.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
			return SpeechHealth{Status: "invalid_key", Warning: true}
		}
		return SpeechHealth{Status: "error", Error: err.Error()}
	}
	pct := 0.0
	if sub.CharacterLimit > 0 {
		pct = float64(sub.CharacterCount) / float64(sub.CharacterLimit) * 100
	}
	tier := sub.Tier
	if tier == "" {
		tier = "unknown"
	}
	return SpeechHealth{
		Status:              "ok",
		CharactersUsed:      sub.CharacterCount,
		CharactersLimit:     sub.CharacterLimit,
		CharactersRemaining: sub.CharacterLimit - sub.CharacterCount,
		PctUsed:             math.Round(pct*10) / 10,
		Tier:                tier,
		Warning:             pct >= speechWarnPct,
	}
}

func (m *Manager) generationHealth(ctx context.Context) GenerationHealth {
	if !m.cfg.HasGenerationKey() {
		return GenerationHealth{Status: "missing_key", Warning: true}
	}
	health := GenerationHealth{Status: "ok", KeyConfigured: true}
	for _, job := range m.jobs.RecentErrors(ctx, recentErrorWindow) {
		if containsAny(job.Error, billingWords) {
			health.Warning = true
			health.WarningReason = "Recent job errors suggest quota or billing issues"
			break
		}
	}
	return health
}

// WebSearchResult reports whether a search-enabled call used the tool.
type WebSearchResult struct {
	Success         bool   `json:"success"`
	Invoked         bool   `json:"web_search_invoked"`
	ResponsePreview string `json:"response_preview,omitempty"`
	StopReason      string `json:"stop_reason,omitempty"`
	Note            string `json:"note,omitempty"`
	Error           string `json:"error,omitempty"`
	LikelyCause     string `json:"likely_cause,omitempty"`
}

// WebSearchTest sends a one-line question with web search enabled.
func (m *Manager) WebSearchTest(ctx context.Context) WebSearchResult {
	if m.search == nil {
		return WebSearchResult{Error: "generation client not configured", LikelyCause: "API error"}
	}
	resp, err := m.search.Create(ctx, llm.Request{
		Messages:  []llm.Message{{Role: "user", Content: webSearchPrompt}},
		MaxTokens: webSearchTestToken,
		WebSearch: true,
	})
	if err != nil {
		cause := "API error"
		if containsAny(err.Error(), permissionHint) {
			cause = "Billing/permissions issue"
		}
		return WebSearchResult{Error: err.Error(), LikelyCause: cause}
	}
	invoked := resp.UsedWebSearch()
	note := "Call succeeded but web search was not invoked"
	if invoked {
		note = "Web search is working"
	}
	return WebSearchResult{
		Success:         true,
		Invoked:         invoked,
		ResponsePreview: preview(resp.Text(), 200),
		StopReason:      resp.StopReason,
		Note:            note,
	}
}

func containsAny(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
