package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"briefings/internal/config"
	"briefings/internal/contentcache"
	"briefings/internal/docstore"
	"briefings/internal/editorial"
	"briefings/internal/engagement"
	"briefings/internal/episodes"
	"briefings/internal/jobs"
	"briefings/internal/ledger"
	"briefings/internal/logging"
	"briefings/internal/pipeline"
	"briefings/internal/series"
	"briefings/internal/services"
	"briefings/internal/services/llm"
	"briefings/internal/services/tts"
)

const (
	topicsCacheName      = "topics_cache"
	suggestionsCacheName = "suggestions_cache"
	nightlyLogName       = "nightly_trailer_log"
	morningLogName       = "morning_prep_log"
)

// Producer runs single-episode jobs.
type Producer interface {
	Generate(ctx context.Context, jobID string, req pipeline.GenerateRequest) (episodes.Episode, error)
	Chat(ctx context.Context, jobID string, req pipeline.ChatRequest) (episodes.Episode, error)
}

// Editorial generates topic lists.
type Editorial interface {
	Topics(ctx context.Context) []editorial.Topic
	Suggestions(ctx context.Context, signals editorial.Signals) ([]editorial.Topic, error)
	NightlyTrailers(ctx context.Context, signals editorial.Signals) ([]editorial.Topic, error)
	IntelTopic(ctx context.Context) (editorial.Topic, bool, error)
}

// SpeechAccount reports speech service usage.
type SpeechAccount interface {
	Subscription(ctx context.Context) (tts.Subscription, error)
}

// SearchProbe sends a raw generation request.
type SearchProbe interface {
	Create(ctx context.Context, req llm.Request) (llm.Response, error)
}

// Deps collects the manager's collaborators.
type Deps struct {
	Config     *config.Config
	Store      *docstore.Store
	Jobs       *jobs.Registry
	Series     *series.Coordinator
	Episodes   *episodes.Store
	Ledger     *ledger.Ledger
	Engagement *engagement.Log
	Producer   Producer
	Editorial  Editorial
	Speech     SpeechAccount
	Search     SearchProbe
	Pool       *Pool
	Logger     *slog.Logger
	Now        func() time.Time
}

// Manager coordinates submissions, caches and scheduled routines.
type Manager struct {
	cfg        *config.Config
	jobs       *jobs.Registry
	series     *series.Coordinator
	episodes   *episodes.Store
	ledger     *ledger.Ledger
	engagement *engagement.Log
	producer   Producer
	editorial  Editorial
	speech     SpeechAccount
	search     SearchProbe
	pool       *Pool
	logger     *slog.Logger
	now        func() time.Time

	topics      *contentcache.Daily[editorial.Topic]
	suggestions *contentcache.Daily[editorial.Topic]
	nightly     *docstore.Document[NightlyRun]
	morning     *docstore.Document[MorningRun]
}

// NewManager validates deps and builds a manager.
func NewManager(deps Deps) (*Manager, error) {
	switch {
	case deps.Config == nil:
		return nil, errors.New("workflow: config required")
	case deps.Store == nil:
		return nil, errors.New("workflow: store required")
	case deps.Jobs == nil:
		return nil, errors.New("workflow: job registry required")
	case deps.Series == nil:
		return nil, errors.New("workflow: series coordinator required")
	case deps.Episodes == nil:
		return nil, errors.New("workflow: episode store required")
	case deps.Ledger == nil:
		return nil, errors.New("workflow: ledger required")
	case deps.Engagement == nil:
		return nil, errors.New("workflow: engagement log required")
	case deps.Producer == nil:
		return nil, errors.New("workflow: producer required")
	case deps.Editorial == nil:
		return nil, errors.New("workflow: editorial generator required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Pool == nil {
		deps.Pool = NewPool(deps.Config.Workflow.MaxWorkers, deps.Logger)
	}
	clock := contentcache.WithClock(deps.Now)
	topics := contentcache.NewDaily[editorial.Topic](deps.Store, topicsCacheName, clock)
	m := &Manager{
		cfg:         deps.Config,
		jobs:        deps.Jobs,
		series:      deps.Series,
		episodes:    deps.Episodes,
		ledger:      deps.Ledger,
		engagement:  deps.Engagement,
		producer:    deps.Producer,
		editorial:   deps.Editorial,
		speech:      deps.Speech,
		search:      deps.Search,
		pool:        deps.Pool,
		logger:      logging.NewComponentLogger(deps.Logger, "workflow-manager"),
		now:         deps.Now,
		topics:      topics,
		suggestions: contentcache.NewDaily[editorial.Topic](deps.Store, suggestionsCacheName, clock, contentcache.StaleBefore(topics)),
		nightly:     docstore.NewDocument(deps.Store, nightlyLogName, func() NightlyRun { return NightlyRun{} }),
		morning:     docstore.NewDocument(deps.Store, morningLogName, func() MorningRun { return MorningRun{} }),
	}
	return m, nil
}

// Wait blocks until every submitted task has finished.
func (m *Manager) Wait() {
	m.pool.Wait()
}

// Pool exposes the worker pool for status reporting.
func (m *Manager) Pool() *Pool {
	return m.pool
}

func (m *Manager) today() string {
	return m.now().Local().Format(contentcache.DateLayout)
}

func (m *Manager) voices(a, b string) (string, string) {
	if strings.TrimSpace(a) == "" {
		a = m.cfg.Speech.VoiceA
	}
	if strings.TrimSpace(b) == "" {
		b = m.cfg.Speech.VoiceB
	}
	return a, b
}

func (m *Manager) requireKeys(op string) error {
	if !m.cfg.HasGenerationKey() || !m.cfg.HasSpeechKey() {
		return services.Wrap(services.ErrConfiguration, "workflow", op, "API keys not configured", nil)
	}
	return nil
}

// runJob submits task for job id. A panic inside the task is recorded on the
// job so it never stays running.
func (m *Manager) runJob(ctx context.Context, job jobs.Job, task Task) {
	ctx = services.WithJobID(ctx, job.ID)
	m.pool.Submit(ctx, string(job.Type)+" "+job.ID, task, func(ctx context.Context, err error) {
		if uerr := m.jobs.Update(ctx, job.ID, jobs.Failed(err.Error())); uerr != nil {
			m.logger.Error("record panic on job failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(uerr))
		}
	})
}
