package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"briefings/internal/config"
)

const userAgent = "Briefings-Go/0.1.0"

// Event names a notification kind.
type Event string

const (
	EventEpisodePublished Event = "episode_published"
	EventSeriesFinished   Event = "series_finished"
	EventJobFailed        Event = "job_failed"
	EventTest             Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	msg, ok := format(event, data)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, data Payload) (payload, bool) {
	switch event {
	case EventEpisodePublished:
		title := text(data, "title")
		message := fmt.Sprintf("🎙️ New episode: %s", title)
		if depth := text(data, "depth"); depth != "" {
			message = fmt.Sprintf("%s (%s)", message, depth)
		}
		return payload{
			title:   "Briefings - Episode Published",
			message: message,
			tags:    []string{"briefings", "episode", "published"},
		}, true
	case EventSeriesFinished:
		title := text(data, "title")
		completed, _ := data["completed"].(int)
		total, _ := data["total"].(int)
		if status := text(data, "status"); status == "error" {
			return payload{
				title:    "Briefings - Series Failed",
				message:  fmt.Sprintf("❌ Series failed: %s\n%s", title, text(data, "error")),
				tags:     []string{"briefings", "series", "error"},
				priority: "high",
			}, true
		}
		return payload{
			title:   "Briefings - Series Complete",
			message: fmt.Sprintf("📚 Series complete: %s (%d of %d episodes)", title, completed, total),
			tags:    []string{"briefings", "series", "completed"},
		}, true
	case EventJobFailed:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := text(data, "context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if msg := text(data, "error"); msg != "" {
			builder.WriteString(msg)
		} else {
			builder.WriteString("unknown")
		}
		return payload{
			title:    "Briefings - Error",
			message:  builder.String(),
			tags:     []string{"briefings", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return payload{
			title:    "Briefings - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"briefings", "test"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
}

func text(data Payload, key string) string {
	switch v := data[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
