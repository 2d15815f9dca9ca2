package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"briefings/internal/config"
	"briefings/internal/jobs"
	"briefings/internal/logging"
	"briefings/internal/pipeline"
	"briefings/internal/series"
)

// Toggles selects which events the observer forwards.
type Toggles struct {
	Episodes     bool
	Series       bool
	Errors       bool
	SkipTrailers bool
}

// TogglesFromConfig reads the notification switches.
func TogglesFromConfig(cfg *config.Config) Toggles {
	if cfg == nil {
		return Toggles{}
	}
	n := cfg.Notifications
	return Toggles{Episodes: n.Episodes, Series: n.Series, Errors: n.Errors, SkipTrailers: n.SkipTrailers}
}

// Observer turns terminal job and series changes into notifications. Each
// job notifies at most once.
type Observer struct {
	svc     Service
	toggles Toggles
	logger  *slog.Logger

	mu       sync.Mutex
	notified map[string]struct{}
}

// NewObserver wraps svc.
func NewObserver(svc Service, toggles Toggles, logger *slog.Logger) *Observer {
	if svc == nil {
		svc = noopService{}
	}
	return &Observer{
		svc:      svc,
		toggles:  toggles,
		logger:   logging.NewComponentLogger(logger, "notifications"),
		notified: make(map[string]struct{}),
	}
}

// JobChanged implements jobs.Observer.
func (o *Observer) JobChanged(ctx context.Context, job jobs.Job) {
	if !job.Status.Terminal() || !o.first(job.ID) {
		return
	}
	switch job.Status {
	case jobs.StatusDone:
		if !o.toggles.Episodes {
			return
		}
		var result pipeline.Result
		if err := json.Unmarshal(job.Result, &result); err != nil || result.Episode.ID == "" {
			return
		}
		if result.Episode.IsTrailer && o.toggles.SkipTrailers {
			return
		}
		o.publish(ctx, EventEpisodePublished, Payload{
			"title": result.Episode.Title,
			"depth": result.Episode.Depth,
		})
	case jobs.StatusError:
		if !o.toggles.Errors {
			return
		}
		o.publish(ctx, EventJobFailed, Payload{
			"error":   job.Error,
			"context": fmt.Sprintf("%s job %s", job.Type, job.ID),
		})
	}
}

// SeriesFinished implements series.Observer.
func (o *Observer) SeriesFinished(ctx context.Context, s series.Series) {
	if !o.toggles.Series {
		return
	}
	o.publish(ctx, EventSeriesFinished, Payload{
		"title":     s.Title,
		"status":    string(s.Status),
		"completed": s.Completed,
		"total":     s.Total,
		"error":     s.Error,
	})
}

func (o *Observer) first(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, seen := o.notified[id]; seen {
		return false
	}
	o.notified[id] = struct{}{}
	return true
}

func (o *Observer) publish(ctx context.Context, event Event, data Payload) {
	if err := o.svc.Publish(ctx, event, data); err != nil {
		if errors.Is(err, context.Canceled) {
			o.logger.Debug("daemon shutting down, could not send notification")
			return
		}
		o.logger.Debug("notification failed",
			logging.String("event", string(event)),
			logging.Error(err))
	}
}
