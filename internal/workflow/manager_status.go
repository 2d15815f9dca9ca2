package workflow

import (
	"context"

	"briefings/internal/engagement"
	"briefings/internal/episodes"
	"briefings/internal/jobs"
	"briefings/internal/ledger"
	"briefings/internal/series"
)

// QueueView lists queued and running jobs, oldest first.
type QueueView struct {
	Active      []jobs.Job `json:"active"`
	TotalActive int        `json:"total_active"`
}

// Queue returns the active jobs.
func (m *Manager) Queue(ctx context.Context) QueueView {
	active := m.jobs.Active(ctx)
	return QueueView{Active: active, TotalActive: len(active)}
}

// ClearQueue removes queued and failed jobs. Running jobs are untouched.
func (m *Manager) ClearQueue(ctx context.Context) (int, error) {
	return m.jobs.ClearPendingAndFailed(ctx)
}

// StatusSummary is the daemon-level view used by the CLI.
type StatusSummary struct {
	Workers      int          `json:"workers"`
	Running      int          `json:"running_tasks"`
	ActiveJobs   int          `json:"active_jobs"`
	Episodes     int          `json:"episodes"`
	Series       int          `json:"series"`
	Productions  ledger.Usage `json:"productions"`
	GenerationOK bool         `json:"generation_key"`
	SpeechOK     bool         `json:"speech_key"`
}

// Status summarizes pool load and stored collections.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	return StatusSummary{
		Workers:      m.pool.Size(),
		Running:      m.pool.Active(),
		ActiveJobs:   len(m.jobs.Active(ctx)),
		Episodes:     len(m.episodes.List(ctx)),
		Series:       len(m.series.List(ctx)),
		Productions:  m.ledger.Usage(ctx),
		GenerationOK: m.cfg.HasGenerationKey(),
		SpeechOK:     m.cfg.HasSpeechKey(),
	}
}

// Job returns one job by id.
func (m *Manager) Job(ctx context.Context, id string) (jobs.Job, bool) {
	return m.jobs.Get(ctx, id)
}

// SeriesList returns every stored series.
func (m *Manager) SeriesList(ctx context.Context) []series.Series {
	return m.series.List(ctx)
}

// SeriesStatus returns a series with its per-episode job states.
func (m *Manager) SeriesStatus(ctx context.Context, id string) (series.View, bool) {
	return m.series.Status(ctx, id)
}

// Episodes returns the episode listing with full and trailer counts.
func (m *Manager) Episodes(ctx context.Context) episodes.Listing {
	return m.episodes.Listing(ctx)
}

// DeleteEpisode removes an episode and its files.
func (m *Manager) DeleteEpisode(ctx context.Context, id string) (episodes.Episode, error) {
	return m.episodes.Delete(ctx, id)
}

// RebuildFeed rewrites the feed and reports how many full episodes it lists.
func (m *Manager) RebuildFeed(ctx context.Context) (int, error) {
	if err := m.episodes.Rebuild(ctx); err != nil {
		return 0, err
	}
	return m.episodes.Listing(ctx).FullCount, nil
}

// RecordEngagement appends a listener reaction.
func (m *Manager) RecordEngagement(ctx context.Context, event engagement.Event) error {
	return m.engagement.Append(ctx, event)
}

// EngagementSummary returns the interest buckets derived from the event log.
func (m *Manager) EngagementSummary(ctx context.Context) engagement.Summary {
	return m.engagement.Summary(ctx)
}
