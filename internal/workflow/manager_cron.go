package workflow

import (
	"context"
	"fmt"
	"time"

	"briefings/internal/editorial"
	"briefings/internal/logging"
	"briefings/internal/pipeline"
	"briefings/internal/script"
)

// ReasonAlreadyRan is reported when a daily routine is skipped.
const ReasonAlreadyRan = "Already ran today"

// TrailerJob is one queued nightly trailer.
type TrailerJob struct {
	JobID      string  `json:"job_id"`
	Title      string  `json:"title"`
	Confidence float64 `json:"confidence"`
	Status     string  `json:"status,omitempty"`
}

// NightlyRun is the persisted record of the last nightly trailer run.
type NightlyRun struct {
	Date   string            `json:"date"`
	RunAt  time.Time         `json:"run_at"`
	JobIDs []TrailerJob      `json:"job_ids"`
	Topics []editorial.Topic `json:"topics"`
}

// NightlyResult is returned by NightlyTrailers.
type NightlyResult struct {
	Skipped     bool         `json:"skipped,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	Queued      int          `json:"queued"`
	JobIDs      []TrailerJob `json:"job_ids"`
	TriggeredAt time.Time    `json:"triggered_at,omitzero"`
}

// NightlyTrailers queues six executive-depth trailers, once per local date
// unless force is set.
func (m *Manager) NightlyTrailers(ctx context.Context, force bool) (NightlyResult, error) {
	today := m.today()
	if !force {
		if last := m.nightly.Load(ctx); last.Date == today {
			return NightlyResult{Skipped: true, Reason: ReasonAlreadyRan, JobIDs: nonNil(last.JobIDs)}, nil
		}
	}
	if err := m.requireKeys("nightly-trailers"); err != nil {
		return NightlyResult{}, err
	}

	topics, err := m.editorial.NightlyTrailers(ctx, m.signals(ctx, trailerExcludeRecent))
	if err != nil {
		return NightlyResult{}, err
	}

	voiceA, voiceB := m.voices("", "")
	queued := make([]TrailerJob, 0, len(topics))
	for _, topic := range topics {
		job, err := m.queueGenerate(ctx, pipeline.GenerateRequest{
			Topic:   topic,
			Depth:   script.DepthExecutive,
			VoiceA:  voiceA,
			VoiceB:  voiceB,
			Trailer: true,
		})
		if err != nil {
			return NightlyResult{}, fmt.Errorf("queue trailer %q: %w", topic.Title, err)
		}
		queued = append(queued, TrailerJob{JobID: job.ID, Title: topic.Title, Confidence: topic.ConfidenceScore})
	}

	runAt := m.now().UTC()
	if err := m.nightly.Save(ctx, NightlyRun{Date: today, RunAt: runAt, JobIDs: queued, Topics: topics}); err != nil {
		logging.WarnWithContext(m.logger, "nightly run log not saved", "nightly_log_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check data directory permissions"),
			logging.String(logging.FieldImpact, "a second run today will queue trailers again"))
	}
	m.logger.Info("nightly trailers queued",
		logging.Int("queued", len(queued)),
		logging.String(logging.FieldEventType, "nightly_trailers_queued"))
	return NightlyResult{Queued: len(queued), JobIDs: queued, TriggeredAt: runAt}, nil
}

// NightlyStatus returns the last run annotated with each job's current
// status. ok is false when no run was recorded.
func (m *Manager) NightlyStatus(ctx context.Context) (NightlyRun, bool) {
	run := m.nightly.Load(ctx)
	if run.Date == "" {
		return NightlyRun{}, false
	}
	for i := range run.JobIDs {
		run.JobIDs[i].Status = "unknown"
		if job, ok := m.jobs.Get(ctx, run.JobIDs[i].JobID); ok {
			run.JobIDs[i].Status = string(job.Status)
		}
	}
	return run, true
}

// MorningResults counts what the morning prep warmed.
type MorningResults struct {
	Topics      int      `json:"topics"`
	Suggestions int      `json:"suggestions"`
	Errors      []string `json:"errors"`
}

// MorningRun is the persisted record of the last morning prep.
type MorningRun struct {
	Date    string         `json:"date"`
	RunAt   time.Time      `json:"run_at"`
	Results MorningResults `json:"results"`
}

// MorningResult is returned by MorningPrep.
type MorningResult struct {
	Success           bool      `json:"success"`
	Skipped           bool      `json:"skipped,omitempty"`
	Reason            string    `json:"reason,omitempty"`
	CachedAt          time.Time `json:"cached_at,omitzero"`
	Date              string    `json:"date,omitempty"`
	TopicsCached      int       `json:"topics_cached"`
	SuggestionsCached int       `json:"suggestions_cached"`
	Errors            []string  `json:"errors"`
	RunAt             time.Time `json:"run_at,omitzero"`
}

// MorningPrep warms the topic cache and then the suggestion cache, once per
// local date unless force is set. Success reflects the topic step only.
func (m *Manager) MorningPrep(ctx context.Context, force bool) MorningResult {
	today := m.today()
	if !force {
		if last := m.morning.Load(ctx); last.Date == today {
			return MorningResult{Success: true, Skipped: true, Reason: ReasonAlreadyRan, CachedAt: last.RunAt, Errors: []string{}}
		}
	}

	started := m.now()
	results := MorningResults{Errors: []string{}}
	topicsOK := true

	topics, err := m.todayTopics(ctx, false)
	if err != nil {
		topicsOK = false
		results.Errors = append(results.Errors, fmt.Sprintf("Topics failed: %v", err))
	} else {
		results.Topics = len(topics)
	}

	suggestions, _, err := m.Suggestions(ctx, false)
	if err != nil {
		results.Errors = append(results.Errors, fmt.Sprintf("Suggestions failed: %v", err))
	} else {
		results.Suggestions = len(suggestions)
	}

	runAt := m.now().UTC()
	run := MorningRun{Date: today, RunAt: runAt, Results: results}
	if err := m.morning.Save(ctx, run); err != nil {
		logging.WarnWithContext(m.logger, "morning prep log not saved", "morning_log_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check data directory permissions"),
			logging.String(logging.FieldImpact, "morning prep may run again today"))
	}
	m.logger.Info("morning prep complete",
		logging.Int("topics", results.Topics),
		logging.Int("suggestions", results.Suggestions),
		logging.Int("errors", len(results.Errors)),
		logging.Duration("elapsed", m.now().Sub(started)),
		logging.String(logging.FieldEventType, "morning_prep_complete"))

	return MorningResult{
		Success:           topicsOK,
		Date:              today,
		TopicsCached:      results.Topics,
		SuggestionsCached: results.Suggestions,
		Errors:            results.Errors,
		RunAt:             runAt,
	}
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
