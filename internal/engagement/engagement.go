// Package engagement records listener signals and condenses them into the
// interest buckets that steer topic suggestions.
package engagement

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"briefings/internal/docstore"
	"briefings/internal/logging"
	"briefings/internal/services"
)

// Event types understood by Summarize. Other types are stored but ignored.
const (
	EventPreviewStarted = "preview_started"
	EventCommissioned   = "commissioned"
	EventDismissed      = "dismissed"
	EventPlayPct        = "play_pct"
	EventListenComplete = "listen_complete"
)

// MaxEvents is the number of events retained.
const MaxEvents = 2000

const (
	strongLimit    = 20
	moderateLimit  = 20
	dismissedLimit = 30
)

const documentName = "engagement_log"

// Event is one listener signal.
type Event struct {
	Timestamp  time.Time         `json:"ts"`
	EventType  string            `json:"event_type"`
	TopicTitle string            `json:"topic_title"`
	EpisodeID  string            `json:"episode_id,omitempty"`
	Pct        *float64          `json:"pct,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Log is the append-only event store.
type Log struct {
	doc    *docstore.Document[[]Event]
	logger *slog.Logger
	now    func() time.Time
}

// NewLog binds an event log to store.
func NewLog(store *docstore.Store, logger *slog.Logger) *Log {
	return &Log{
		doc: docstore.NewDocument(store, documentName, func() []Event {
			return []Event{}
		}),
		logger: logging.NewComponentLogger(logger, "engagement"),
		now:    time.Now,
	}
}

// Append stores event, stamping it when Timestamp is zero, and trims the log
// to the newest MaxEvents entries.
func (l *Log) Append(ctx context.Context, event Event) error {
	event.EventType = strings.TrimSpace(event.EventType)
	event.TopicTitle = strings.TrimSpace(event.TopicTitle)
	if event.EventType == "" || event.TopicTitle == "" {
		return services.Wrap(services.ErrValidation, "engagement", "append", "event_type and topic_title required", nil)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}
	err := l.doc.Update(ctx, func(events *[]Event) error {
		*events = append(*events, event)
		if excess := len(*events) - MaxEvents; excess > 0 {
			*events = append([]Event(nil), (*events)[excess:]...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append engagement event: %w", err)
	}
	return nil
}

// Events returns the retained events, oldest first.
func (l *Log) Events(ctx context.Context) []Event {
	return l.doc.Load(ctx)
}

// Summary returns the interest buckets for the retained events.
func (l *Log) Summary(ctx context.Context) Summary {
	return Summarize(l.Events(ctx))
}

// Summary holds topic titles grouped by listener interest.
type Summary struct {
	StrongInterest   []string `json:"strong_interest"`
	ModerateInterest []string `json:"moderate_interest"`
	Dismissed        []string `json:"dismissed"`
}

// Empty reports whether no bucket has titles.
func (s Summary) Empty() bool {
	return len(s.StrongInterest) == 0 && len(s.ModerateInterest) == 0 && len(s.Dismissed) == 0
}

type signals struct {
	previewed      bool
	commissioned   bool
	dismissed      bool
	maxPct         float64
	listenComplete bool
}

func (s signals) strong() bool {
	return s.listenComplete || s.maxPct >= 75
}

// Summarize folds events into per-title signals and buckets the titles.
// A dismissed title that was also listened through stays in the strong
// bucket as well as the dismissed bucket.
func Summarize(events []Event) Summary {
	order := make([]string, 0)
	byTitle := make(map[string]*signals)
	for _, event := range events {
		title := event.TopicTitle
		if title == "" {
			continue
		}
		sig, ok := byTitle[title]
		if !ok {
			sig = &signals{}
			byTitle[title] = sig
			order = append(order, title)
		}
		switch event.EventType {
		case EventPreviewStarted:
			sig.previewed = true
		case EventCommissioned:
			sig.commissioned = true
		case EventDismissed:
			sig.dismissed = true
		case EventPlayPct:
			if event.Pct != nil && *event.Pct > sig.maxPct {
				sig.maxPct = *event.Pct
			}
		case EventListenComplete:
			sig.listenComplete = true
			sig.maxPct = 100
		}
	}

	var strong, moderate, dismissed []string
	for _, title := range order {
		sig := byTitle[title]
		if sig.strong() {
			strong = append(strong, title)
		}
		if !sig.dismissed && (sig.previewed || sig.maxPct >= 25) && !sig.strong() {
			moderate = append(moderate, title)
		}
		if sig.dismissed {
			dismissed = append(dismissed, title)
		}
	}
	return Summary{
		StrongInterest:   lastN(strong, strongLimit),
		ModerateInterest: lastN(moderate, moderateLimit),
		Dismissed:        lastN(dismissed, dismissedLimit),
	}
}

func lastN(list []string, n int) []string {
	if len(list) > n {
		list = list[len(list)-n:]
	}
	return append([]string{}, list...)
}
