package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"briefings/internal/episodes"
	"briefings/internal/jobs"
	"briefings/internal/logging"
	"briefings/internal/pipeline"
)

// DefaultPrefix is used when no subject prefix is configured.
const DefaultPrefix = "briefings"

// JSONPublisher is the publishing half of Client.
type JSONPublisher interface {
	PublishJSON(subject string, v any) error
}

// JobEvent is the payload of <prefix>.job.<status>.
type JobEvent struct {
	JobID    string    `json:"job_id"`
	Type     jobs.Type `json:"type"`
	Status   string    `json:"status"`
	Progress string    `json:"progress"`
	Error    string    `json:"error,omitempty"`
	SeriesID string    `json:"series_id,omitempty"`
	SeriesEp int       `json:"series_ep,omitempty"`
	At       time.Time `json:"at"`
}

// EpisodeEvent is the payload of <prefix>.episode.published.
type EpisodeEvent struct {
	JobID   string           `json:"job_id"`
	Episode episodes.Episode `json:"episode"`
}

// Events is a jobs.Observer that publishes status transitions. Progress-only
// updates are not published.
type Events struct {
	pub    JSONPublisher
	prefix string
	logger *slog.Logger

	mu   sync.Mutex
	last map[string]jobs.Status
}

// NewEvents publishes through pub under prefix.
func NewEvents(pub JSONPublisher, prefix string, logger *slog.Logger) *Events {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Events{
		pub:    pub,
		prefix: prefix,
		logger: logging.NewComponentLogger(logger, "bus"),
		last:   make(map[string]jobs.Status),
	}
}

// JobSubject returns the subject for status.
func (e *Events) JobSubject(status jobs.Status) string {
	return e.prefix + ".job." + string(status)
}

// EpisodeSubject returns the published-episode subject.
func (e *Events) EpisodeSubject() string {
	return e.prefix + ".episode.published"
}

// JobChanged implements jobs.Observer.
func (e *Events) JobChanged(_ context.Context, job jobs.Job) {
	if !e.transitioned(job) {
		return
	}
	e.publish(e.JobSubject(job.Status), JobEvent{
		JobID:    job.ID,
		Type:     job.Type,
		Status:   string(job.Status),
		Progress: job.Progress,
		Error:    job.Error,
		SeriesID: job.SeriesID,
		SeriesEp: job.SeriesEp,
		At:       job.UpdatedAt,
	})
	if job.Status != jobs.StatusDone || len(job.Result) == 0 {
		return
	}
	var result pipeline.Result
	if err := json.Unmarshal(job.Result, &result); err != nil || result.Episode.ID == "" {
		return
	}
	e.publish(e.EpisodeSubject(), EpisodeEvent{JobID: job.ID, Episode: result.Episode})
}

func (e *Events) transitioned(job jobs.Job) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if prev, ok := e.last[job.ID]; ok && prev == job.Status {
		return false
	}
	e.last[job.ID] = job.Status
	return true
}

func (e *Events) publish(subject string, v any) {
	if err := e.pub.PublishJSON(subject, v); err != nil {
		logging.WarnWithContext(e.logger, "event publish failed", "bus_publish_failed",
			logging.String("subject", subject),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check events.nats_url connectivity"),
			logging.String(logging.FieldImpact, "subscribers miss this event"))
	}
}
