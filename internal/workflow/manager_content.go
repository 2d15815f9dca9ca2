package workflow

import (
	"context"

	"briefings/internal/editorial"
	"briefings/internal/logging"
)

const (
	suggestionExcludeRecent = 30
	trailerExcludeRecent    = 20
)

// TopicsView is today's topic list with the production cap report.
type TopicsView struct {
	Topics              []editorial.Topic `json:"topics"`
	ProductionsThisWeek int               `json:"productions_this_week"`
	WeeklyCap           int               `json:"weekly_cap"`
	Remaining           int               `json:"remaining"`
}

// Topics returns today's topics, generating them once per local date. The
// generator degrades to the built-in list, so a failure here only means the
// cache could not be written.
func (m *Manager) Topics(ctx context.Context, force bool) TopicsView {
	topics, err := m.todayTopics(ctx, force)
	if err != nil {
		logging.WarnWithContext(m.logger, "topic cache write failed", "topics_cache_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check data directory permissions"),
			logging.String(logging.FieldImpact, "topics regenerate on the next request"))
	}
	if len(topics) == 0 {
		topics = editorial.FallbackTopics()
	}
	usage := m.ledger.Usage(ctx)
	return TopicsView{
		Topics:              topics,
		ProductionsThisWeek: usage.ThisWeek,
		WeeklyCap:           usage.WeeklyCap,
		Remaining:           usage.Remaining,
	}
}

func (m *Manager) todayTopics(ctx context.Context, force bool) ([]editorial.Topic, error) {
	topics, _, err := m.topics.Get(ctx, force, func(ctx context.Context) ([]editorial.Topic, error) {
		return m.editorial.Topics(ctx), nil
	})
	return topics, err
}

// Suggestions returns today's recommendation list. cached reports whether it
// came from the store.
func (m *Manager) Suggestions(ctx context.Context, force bool) (items []editorial.Topic, cached bool, err error) {
	return m.suggestions.Get(ctx, force, func(ctx context.Context) ([]editorial.Topic, error) {
		return m.editorial.Suggestions(ctx, m.signals(ctx, suggestionExcludeRecent))
	})
}

// signals gathers the exclusion list, series titles and engagement buckets.
// recent bounds how many commissioned titles are excluded.
func (m *Manager) signals(ctx context.Context, recent int) editorial.Signals {
	var todays []string
	if topics, ok := m.topics.Cached(ctx); ok {
		todays = editorial.Titles(topics)
	}
	return editorial.Signals{
		Exclusions:   editorial.Exclusions(todays, m.episodes.RecentTitles(ctx, recent)),
		SeriesTitles: m.series.Titles(ctx),
		Engagement:   m.engagement.Summary(ctx),
	}
}
