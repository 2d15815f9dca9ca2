package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"briefings/internal/services"
)

const (
	defaultBaseURL        = "https://api.anthropic.com/v1/messages"
	defaultModel          = "claude-sonnet-4-20250514"
	defaultTimeout        = 90 * time.Second
	defaultSearchTimeout  = 300 * time.Second
	defaultMaxTokens      = 2500
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 3

	apiVersion       = "2023-06-01"
	webSearchBeta    = "web-search-2025-03-05"
	webSearchTool    = "web_search_20250305"
	webSearchName    = "web_search"
	statusOverloaded = 529
)

// Config captures the runtime settings required to talk to the API.
type Config struct {
	APIKey               string
	BaseURL              string
	Model                string
	TimeoutSeconds       int
	SearchTimeoutSeconds int
}

// Client wraps the Messages API.
type Client struct {
	cfg           Config
	httpClient    *http.Client
	timeout       time.Duration
	searchTimeout time.Duration

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client. Its Timeout should be
// zero or longer than the search timeout; per-request deadlines come from
// the context.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg: Config{
			APIKey:  strings.TrimSpace(cfg.APIKey),
			BaseURL: strings.TrimSpace(cfg.BaseURL),
			Model:   strings.TrimSpace(cfg.Model),
		},
		httpClient:       &http.Client{},
		timeout:          defaultTimeout,
		searchTimeout:    defaultSearchTimeout,
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	if cfg.TimeoutSeconds > 0 {
		client.timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if cfg.SearchTimeoutSeconds > 0 {
		client.searchTimeout = time.Duration(cfg.SearchTimeoutSeconds) * time.Second
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{}
	}
	return client
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single Messages call.
type Request struct {
	Messages  []Message
	MaxTokens int
	WebSearch bool
}

// ContentBlock is one element of a response's content array.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Name string `json:"name,omitempty"`
}

// Response is the decoded Messages reply.
type Response struct {
	ID         string         `json:"id"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

// Text joins the text blocks with single spaces.
func (r Response) Text() string {
	parts := make([]string, 0, len(r.Content))
	for _, block := range r.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// UsedTool reports whether any tool block names tool.
func (r Response) UsedTool(name string) bool {
	for _, block := range r.Content {
		if (block.Type == "tool_use" || block.Type == "server_tool_use") && block.Name == name {
			return true
		}
	}
	return false
}

// UsedWebSearch reports whether the model invoked web search.
func (r Response) UsedWebSearch() bool {
	return r.UsedTool(webSearchName)
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type emptyContentError struct {
	Op         string
	StopReason string
	Snippet    string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s: empty content (stop_reason=%q, response_snippet=%s)", e.Op, e.StopReason, e.Snippet)
}

// Create sends req and returns the decoded response.
func (c *Client) Create(ctx context.Context, req Request) (Response, error) {
	if !c.Configured() {
		return Response{}, services.Wrap(services.ErrConfiguration, "llm", "create", "api key required", nil)
	}
	if len(req.Messages) == 0 {
		return Response{}, services.Wrap(services.ErrValidation, "llm", "create", "at least one message required", nil)
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	payload := messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: maxTokens,
		Messages:  req.Messages,
	}
	if req.WebSearch {
		payload.Tools = []tool{{Type: webSearchTool, Name: webSearchName}}
	}
	resp, err := c.createWithRetry(ctx, payload, req.WebSearch, "llm create")
	if err != nil {
		return Response{}, services.Wrap(services.ErrExternalService, "llm", "create", "", err)
	}
	return resp, nil
}

// Complete sends prompt as a single user message and returns the response text.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int, webSearch bool) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", services.Wrap(services.ErrValidation, "llm", "complete", "prompt required", nil)
	}
	resp, err := c.Create(ctx, Request{
		Messages:  []Message{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
		WebSearch: webSearch,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Completer is the part of Client that prompt builders depend on.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int, webSearch bool) (string, error)
}

// CompleteSearchFirst tries prompt with web search and repeats it without
// search when that fails. searchErr carries the first failure so callers can
// log the downgrade.
func CompleteSearchFirst(ctx context.Context, c Completer, prompt string, maxTokens int) (text string, searchErr error, err error) {
	text, searchErr = c.Complete(ctx, prompt, maxTokens, true)
	if searchErr == nil {
		return text, nil, nil
	}
	if errors.Is(searchErr, services.ErrConfiguration) || errors.Is(searchErr, services.ErrValidation) {
		return "", searchErr, searchErr
	}
	text, err = c.Complete(ctx, prompt, maxTokens, false)
	return text, searchErr, err
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []Message `json:"messages"`
	Tools     []tool    `json:"tools,omitempty"`
}

type tool struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type messagesResponse struct {
	Response
	Type  string `json:"type"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) createWithRetry(ctx context.Context, payload messagesRequest, search bool, op string) (Response, error) {
	attempts := c.retryAttempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		resp, body, err := c.sendOnce(ctx, payload, search)
		if err == nil {
			if len(resp.Content) == 0 {
				err = &emptyContentError{
					Op:         op,
					StopReason: resp.StopReason,
					Snippet:    summarizePayloadSnippet(string(body)),
				}
			} else {
				return resp, nil
			}
		}

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return Response{}, err
		}
		if err := c.sleep(ctx, delay); err != nil {
			return Response{}, err
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return Response{}, fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (c *Client) sendOnce(ctx context.Context, payload messagesRequest, search bool) (Response, []byte, error) {
	timeout := c.timeout
	if search {
		timeout = c.searchTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	encoded, err := json.Marshal(payload)
	if err != nil {
		return Response{}, nil, fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return Response{}, nil, fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("content-type", "application/json")
	if search {
		req.Header.Set("anthropic-beta", webSearchBeta)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, nil, fmt.Errorf("llm request: http error (timeout=%s): %w", timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, nil, fmt.Errorf("llm request: read body (timeout=%s): %w", timeout, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return Response{}, body, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	var decoded messagesResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Response{}, body, fmt.Errorf("llm request: decode response: %w", err)
	}
	if decoded.Error != nil {
		return Response{}, body, fmt.Errorf("llm request: api error: %s", strings.TrimSpace(decoded.Error.Message))
	}
	return decoded.Response, body, nil
}

func (c *Client) retryAttempts() int {
	if c == nil {
		return 1
	}
	if c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts {
		return 0, false
	}
	if err == nil {
		return 0, false
	}
	if ctx == nil {
		return 0, false
	}
	if ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	if _, ok := err.(*emptyContentError); ok {
		return c.backoffDelay(attempt), true
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode == statusOverloaded,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return c.capDelay(statusErr.RetryAfter), true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return c.backoffDelay(attempt), true
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// url.Error often wraps net.Error types, but keep a conservative retry for
		// non-context errors anyway.
		if urlErr.Timeout() {
			return c.backoffDelay(attempt), true
		}
	}

	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := defaultRetryBaseDelay
	maxDelay := defaultRetryMaxDelay
	if c != nil {
		if c.retryBaseDelay >= 0 {
			base = c.retryBaseDelay
		}
		if c.retryMaxDelay > 0 {
			maxDelay = c.retryMaxDelay
		}
	}
	if base <= 0 {
		return 0
	}

	retryCount := attempt // attempt is 1-based, delay is for the next attempt.
	if retryCount <= 0 {
		retryCount = 1
	}

	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < retryCount; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := defaultRetryMaxDelay
	if c != nil && c.retryMaxDelay > 0 {
		maxDelay = c.retryMaxDelay
	}
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx == nil {
		return errors.New("llm retry: nil context")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c != nil && c.sleeper != nil {
		c.sleeper(delay)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

// DecodeLLMJSON decodes JSON from an LLM response, handling common formatting quirks.
func DecodeLLMJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}

	// Try direct unmarshal first
	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	// Try sanitizing (strip code fences, extract JSON object/array)
	sanitized := sanitizeJSONPayload(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return fmt.Errorf("%w (payload snippet: %s)", directErr, summarizePayloadSnippet(trimmed))
	}

	sanitizedErr := json.Unmarshal([]byte(sanitized), target)
	if sanitizedErr == nil {
		return nil
	}
	return fmt.Errorf("%w (sanitized payload snippet: %s)", sanitizedErr, summarizePayloadSnippet(sanitized))
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFenceBlock(content))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	if start := strings.Index(trimmed, "["); start >= 0 {
		if end := strings.LastIndex(trimmed, "]"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

func stripCodeFenceBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
		body = strings.TrimLeft(body, " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	clean := replacer.Replace(trimmed)
	clean = strings.Join(strings.Fields(clean), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}

// StripCodeFence returns the body of the first fenced block in text, minus a
// leading "json" language tag. Text without a fence is returned trimmed.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	start := strings.Index(trimmed, "```")
	if start < 0 {
		return trimmed
	}
	body := trimmed[start+3:]
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	body = strings.TrimPrefix(body, "json")
	return strings.TrimSpace(body)
}

// SplitSources separates a trailing "SOURCES: a, b, c" line from the body.
// Only the last marker counts; empty entries are dropped.
func SplitSources(text string) (string, []string) {
	idx := strings.LastIndex(text, "SOURCES:")
	if idx < 0 {
		return strings.TrimSpace(text), []string{}
	}
	body := strings.TrimSpace(text[:idx])
	sources := make([]string, 0)
	for _, part := range strings.Split(text[idx+len("SOURCES:"):], ",") {
		if part = strings.TrimSpace(part); part != "" {
			sources = append(sources, part)
		}
	}
	return body, sources
}

// DecodeJSONArray decodes a JSON array from a model reply, skipping any
// fence and any preamble before the first bracket.
func DecodeJSONArray(content string, target any) error {
	text := StripCodeFence(content)
	if start := strings.Index(text, "["); start > 0 {
		text = text[start:]
	}
	if end := strings.LastIndex(text, "]"); end >= 0 && end < len(text)-1 {
		text = text[:end+1]
	}
	if text == "" {
		return errors.New("empty payload")
	}
	if err := json.Unmarshal([]byte(text), target); err != nil {
		return fmt.Errorf("%w (payload snippet: %s)", err, summarizePayloadSnippet(text))
	}
	return nil
}
