package apiclient

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
	"strings"
	"time"

	"briefings/internal/daemon"
	"briefings/internal/editorial"
	"briefings/internal/episodes"
	"briefings/internal/jobs"
	"briefings/internal/series"
	"briefings/internal/workflow"
)

// ErrUnavailable is returned when no daemon address is configured.
var ErrUnavailable = errors.New("daemon API unavailable")

const defaultTimeout = 30 * time.Second

// Error is a non-2xx reply from the daemon.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("daemon returned status %d: %s", e.StatusCode, e.Message)
}

// Client talks to one daemon.
type Client struct {
	base       *url.URL
	token      string
	cronSecret string
	http       *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithCronSecret sets the secret sent to /api/cron/* routes.
func WithCronSecret(secret string) Option {
	return func(c *Client) { c.cronSecret = strings.TrimSpace(secret) }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New builds a client for bind, which may be host:port or a full URL. An
// empty bind returns a nil client whose methods report ErrUnavailable.
func New(bind, token string, opts ...Option) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse daemon address: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	c := &Client{
		base:  base,
		token: strings.TrimSpace(token),
		http:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// IsUnavailable reports whether err means the daemon could not be reached.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// Status returns daemon and workflow state.
func (c *Client) Status(ctx context.Context) (daemon.Status, error) {
	var out daemon.Status
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &out)
	return out, err
}

// Health checks both external services through the daemon.
func (c *Client) Health(ctx context.Context) (workflow.HealthReport, error) {
	var out workflow.HealthReport
	err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, &out)
	return out, err
}

// Queue lists active jobs.
func (c *Client) Queue(ctx context.Context) (workflow.QueueView, error) {
	var out workflow.QueueView
	err := c.do(ctx, http.MethodGet, "/api/queue", nil, nil, &out)
	return out, err
}

// ClearQueue removes queued and failed jobs.
func (c *Client) ClearQueue(ctx context.Context) (int, error) {
	var out struct {
		Cleared int `json:"cleared"`
	}
	err := c.do(ctx, http.MethodPost, "/api/queue/clear", nil, nil, &out)
	return out.Cleared, err
}

// Job returns one job.
func (c *Client) Job(ctx context.Context, id string) (jobs.Job, error) {
	var out jobs.Job
	err := c.do(ctx, http.MethodGet, "/api/job/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// GenerateParams is the body of POST /api/generate.
type GenerateParams struct {
	Topic       *editorial.Topic `json:"topic_data,omitempty"`
	Title       string           `json:"topic,omitempty"`
	Depth       string           `json:"depth,omitempty"`
	Trailer     bool             `json:"trailer,omitempty"`
	Brief       string           `json:"production_brief,omitempty"`
	TrailerHook string           `json:"trailer_hook,omitempty"`
	VoiceA      string           `json:"voice_alex,omitempty"`
	VoiceB      string           `json:"voice_morgan,omitempty"`
}

// Generate queues an episode and returns its job id.
func (c *Client) Generate(ctx context.Context, params GenerateParams) (string, error) {
	return c.submit(ctx, "/api/generate", params)
}

// ChatParams is the body of POST /api/chat.
type ChatParams struct {
	Message  string            `json:"message"`
	Existing []editorial.Topic `json:"existing_topics,omitempty"`
	VoiceA   string            `json:"voice_alex,omitempty"`
	VoiceB   string            `json:"voice_morgan,omitempty"`
}

// Chat queues an episode from a free-form message.
func (c *Client) Chat(ctx context.Context, params ChatParams) (string, error) {
	return c.submit(ctx, "/api/chat", params)
}

// SeriesParams is the body of POST /api/series.
type SeriesParams struct {
	Topic       *editorial.Topic `json:"topic_data,omitempty"`
	Prompt      string           `json:"topic,omitempty"`
	NumEpisodes int              `json:"num_episodes,omitempty"`
	VoiceA      string           `json:"voice_alex,omitempty"`
	VoiceB      string           `json:"voice_morgan,omitempty"`
}

// CreateSeries starts a series and returns its id and title.
func (c *Client) CreateSeries(ctx context.Context, params SeriesParams) (string, string, error) {
	var out struct {
		SeriesID string `json:"series_id"`
		Title    string `json:"title"`
	}
	err := c.do(ctx, http.MethodPost, "/api/series", nil, params, &out)
	return out.SeriesID, out.Title, err
}

// SeriesList returns every series, newest first.
func (c *Client) SeriesList(ctx context.Context) ([]series.Series, error) {
	var out struct {
		Series []series.Series `json:"series"`
	}
	err := c.do(ctx, http.MethodGet, "/api/series", nil, nil, &out)
	return out.Series, err
}

// Series returns one series with its episode job states.
func (c *Client) Series(ctx context.Context, id string) (series.View, error) {
	var out series.View
	err := c.do(ctx, http.MethodGet, "/api/series/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// Episodes lists published episodes.
func (c *Client) Episodes(ctx context.Context) (episodes.Listing, error) {
	var out episodes.Listing
	err := c.do(ctx, http.MethodGet, "/api/episodes", nil, nil, &out)
	return out, err
}

// DeleteEpisode removes an episode and returns its title.
func (c *Client) DeleteEpisode(ctx context.Context, id string) (string, error) {
	var out struct {
		Title string `json:"title"`
	}
	err := c.do(ctx, http.MethodDelete, "/api/episodes/"+url.PathEscape(id), nil, nil, &out)
	return out.Title, err
}

// RebuildFeed re-renders feed.xml and returns the number of full episodes in it.
func (c *Client) RebuildFeed(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"episodes_in_feed"`
	}
	err := c.do(ctx, http.MethodPost, "/api/feed/rebuild", nil, nil, &out)
	return out.Count, err
}

// Topics returns today's topics and the weekly usage.
func (c *Client) Topics(ctx context.Context, refresh bool) (workflow.TopicsView, error) {
	var out workflow.TopicsView
	err := c.do(ctx, http.MethodGet, "/api/topics", flagQuery("refresh", refresh), nil, &out)
	return out, err
}

// TestNotification asks the daemon to send a test push.
func (c *Client) TestNotification(ctx context.Context) (bool, string, error) {
	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, "/api/notifications/test", nil, nil, &out)
	return out.Success, out.Message, err
}

// Cron triggers a scheduled routine by name (nightly-trailers, autoqueue or
// morning-prep) and returns the daemon's reply as is.
func (c *Client) Cron(ctx context.Context, name string, force bool) (json.RawMessage, error) {
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" {
		return nil, errors.New("cron routine name required")
	}
	query := flagQuery("force", force)
	if c != nil && c.cronSecret != "" {
		query.Set("secret", c.cronSecret)
	}
	var out json.RawMessage
	err := c.do(ctx, http.MethodPost, "/api/cron/"+name, query, nil, &out)
	return out, err
}

// NightlyStatus returns the last nightly run or nil.
func (c *Client) NightlyStatus(ctx context.Context) (*workflow.NightlyRun, error) {
	var out struct {
		Run *workflow.NightlyRun `json:"run"`
	}
	err := c.do(ctx, http.MethodGet, "/api/cron/nightly-trailers/status", nil, nil, &out)
	return out.Run, err
}

func (c *Client) submit(ctx context.Context, path string, body any) (string, error) {
	var out struct {
		JobID string `json:"job_id"`
	}
	if err := c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return "", err
	}
	return out.JobID, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c == nil {
		return ErrUnavailable
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.Error == "" {
		return &Error{StatusCode: status, Message: strings.TrimSpace(string(data))}
	}
	return &Error{StatusCode: status, Message: payload.Error}
}

func flagQuery(name string, on bool) url.Values {
	values := url.Values{}
	if on {
		values.Set(name, "true")
	}
	return values
}
