package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"briefings/internal/config"
	"briefings/internal/services"
)

const (
	defaultBaseURL      = "https://api.elevenlabs.io/v1"
	defaultModelID      = "eleven_turbo_v2_5"
	defaultOutputFormat = "mp3_44100_128"
	defaultTimeout      = 120 * time.Second
	healthTimeout       = 10 * time.Second
)

// HTTPDoer describes the HTTP client used by the speech client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Voice is one entry of the voice catalog.
type Voice struct {
	Name     string `json:"name"`
	VoiceID  string `json:"voice_id"`
	Category string `json:"category"`
}

// Subscription is the usage summary for the account.
type Subscription struct {
	CharacterCount int    `json:"character_count"`
	CharacterLimit int    `json:"character_limit"`
	Tier           string `json:"tier"`
}

// Client wraps the speech API.
type Client struct {
	baseURL      string
	apiKey       string
	modelID      string
	outputFormat string
	timeout      time.Duration
	http         HTTPDoer
}

// NewClient constructs a client from explicit settings.
func NewClient(baseURL, apiKey, modelID, outputFormat string, timeout time.Duration, doer HTTPDoer) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:       strings.TrimSpace(apiKey),
		modelID:      strings.TrimSpace(modelID),
		outputFormat: strings.TrimSpace(outputFormat),
		timeout:      timeout,
		http:         doer,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.modelID == "" {
		c.modelID = defaultModelID
	}
	if c.outputFormat == "" {
		c.outputFormat = defaultOutputFormat
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	return c
}

// NewConfiguredClient builds a client from the speech config section.
func NewConfiguredClient(cfg *config.Config) *Client {
	if cfg == nil {
		return NewClient("", "", "", "", 0, nil)
	}
	s := cfg.Speech
	return NewClient(s.BaseURL, s.APIKey, s.ModelID, s.OutputFormat, time.Duration(s.TimeoutSeconds)*time.Second, nil)
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Voices returns the account's voice catalog.
func (c *Client) Voices(ctx context.Context) ([]Voice, error) {
	var payload struct {
		Voices []Voice `json:"voices"`
	}
	if err := c.getJSON(ctx, "voices", c.timeout, "list voices", &payload); err != nil {
		return nil, err
	}
	for i := range payload.Voices {
		if strings.TrimSpace(payload.Voices[i].Category) == "" {
			payload.Voices[i].Category = "custom"
		}
	}
	return payload.Voices, nil
}

// Subscription returns character usage for the account.
func (c *Client) Subscription(ctx context.Context) (Subscription, error) {
	var sub Subscription
	err := c.getJSON(ctx, "user/subscription", healthTimeout, "subscription", &sub)
	return sub, err
}

// Synthesize converts text to audio bytes with voiceID.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if !c.Configured() {
		return nil, services.Wrap(services.ErrConfiguration, "tts", "synthesize", "api key required", nil)
	}
	body, err := json.Marshal(map[string]string{
		"text":     text,
		"model_id": c.modelID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode tts request: %w", err)
	}
	endpoint, err := url.JoinPath(c.baseURL, "text-to-speech", voiceID)
	if err != nil {
		return nil, fmt.Errorf("build tts url: %w", err)
	}
	endpoint += "?output_format=" + url.QueryEscape(c.outputFormat)

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build tts request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "tts", "synthesize", "request failed", err)
	}
	defer resp.Body.Close()
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "tts", "synthesize", "read audio", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{Op: "synthesize", StatusCode: resp.StatusCode, Body: snippet(audio)}
	}
	return audio, nil
}

// StatusError reports a non-2xx reply.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tts %s: http %d: %s", e.Op, e.StatusCode, e.Body)
}

// Unwrap classifies status errors as external service failures.
func (e *StatusError) Unwrap() error {
	return services.ErrExternalService
}

func (c *Client) getJSON(ctx context.Context, path string, timeout time.Duration, op string, target any) error {
	if !c.Configured() {
		return services.Wrap(services.ErrConfiguration, "tts", op, "api key required", nil)
	}
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("build tts url: %w", err)
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build tts request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternalService, "tts", op, "request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrExternalService, "tts", op, "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: snippet(body)}
	}
	if err := json.Unmarshal(body, target); err != nil {
		return services.Wrap(services.ErrExternalService, "tts", op, "decode response", err)
	}
	return nil
}

func snippet(body []byte) string {
	text := strings.Join(strings.Fields(string(body)), " ")
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	return text
}

// ResolveVoice finds the voice id for nameOrID in voices.
func ResolveVoice(voices []Voice, nameOrID string) (string, bool) {
	query := strings.TrimSpace(nameOrID)
	if query == "" {
		return "", false
	}
	lower := strings.ToLower(query)
	for _, v := range voices {
		if strings.ToLower(v.Name) == lower || v.VoiceID == query {
			return v.VoiceID, true
		}
	}
	for _, v := range voices {
		if strings.Contains(strings.ToLower(v.Name), lower) {
			return v.VoiceID, true
		}
	}
	return "", false
}
