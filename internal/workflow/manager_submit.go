package workflow

import (
	"context"
	"strings"

	"briefings/internal/editorial"
	"briefings/internal/jobs"
	"briefings/internal/logging"
	"briefings/internal/pipeline"
	"briefings/internal/script"
	"briefings/internal/series"
	"briefings/internal/services"
)

// GenerateInput describes a generate submission. Topic wins over Title.
type GenerateInput struct {
	Topic   *editorial.Topic
	Title   string
	Hook    string
	Depth   string
	VoiceA  string
	VoiceB  string
	Trailer bool
	Brief   string
}

// ChatInput describes a chat submission.
type ChatInput struct {
	Message  string
	Existing []editorial.Topic
	VoiceA   string
	VoiceB   string
}

// SeriesInput describes a series submission. Topic wins over Prompt.
type SeriesInput struct {
	Topic       *editorial.Topic
	Prompt      string
	NumEpisodes int
	VoiceA      string
	VoiceB      string
}

// SubmitGenerate queues a trailer or full episode.
func (m *Manager) SubmitGenerate(ctx context.Context, in GenerateInput) (jobs.Job, error) {
	var topic editorial.Topic
	switch {
	case in.Topic != nil:
		topic = *in.Topic
	case strings.TrimSpace(in.Title) != "":
		topic = editorial.FromTitle(strings.TrimSpace(in.Title), in.Hook)
	default:
		return jobs.Job{}, services.Wrap(services.ErrValidation, "workflow", "generate", "Topic required", nil)
	}
	if !m.cfg.HasSpeechKey() {
		return jobs.Job{}, services.Wrap(services.ErrConfiguration, "workflow", "generate", "ElevenLabs API key not configured", nil)
	}
	depth := strings.TrimSpace(in.Depth)
	if depth == "" {
		depth = script.DepthStandard
	}
	voiceA, voiceB := m.voices(in.VoiceA, in.VoiceB)
	req := pipeline.GenerateRequest{
		Topic:   topic,
		Depth:   depth,
		VoiceA:  voiceA,
		VoiceB:  voiceB,
		Trailer: in.Trailer,
		Brief:   in.Brief,
	}
	return m.queueGenerate(ctx, req)
}

func (m *Manager) queueGenerate(ctx context.Context, req pipeline.GenerateRequest) (jobs.Job, error) {
	job, err := m.jobs.Create(ctx, jobs.TypeGenerate)
	if err != nil {
		return jobs.Job{}, err
	}
	m.runJob(ctx, job, func(ctx context.Context) error {
		_, err := m.producer.Generate(ctx, job.ID, req)
		return err
	})
	m.logger.Info("generate queued",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("title", req.Topic.Title),
		logging.String("depth", req.Depth),
		logging.Bool("trailer", req.Trailer))
	return job, nil
}

// SubmitChat queues an episode built from a free-form message.
func (m *Manager) SubmitChat(ctx context.Context, in ChatInput) (jobs.Job, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return jobs.Job{}, services.Wrap(services.ErrValidation, "workflow", "chat", "Message required", nil)
	}
	if !m.cfg.HasGenerationKey() {
		return jobs.Job{}, services.Wrap(services.ErrConfiguration, "workflow", "chat", "Anthropic API key not configured", nil)
	}
	if !m.cfg.HasSpeechKey() {
		return jobs.Job{}, services.Wrap(services.ErrConfiguration, "workflow", "chat", "ElevenLabs API key not configured", nil)
	}
	voiceA, voiceB := m.voices(in.VoiceA, in.VoiceB)
	job, err := m.jobs.Create(ctx, jobs.TypeChat)
	if err != nil {
		return jobs.Job{}, err
	}
	req := pipeline.ChatRequest{Message: message, Existing: in.Existing, VoiceA: voiceA, VoiceB: voiceB}
	m.runJob(ctx, job, func(ctx context.Context) error {
		_, err := m.producer.Chat(ctx, job.ID, req)
		return err
	})
	m.logger.Info("chat queued", logging.String(logging.FieldJobID, job.ID))
	return job, nil
}

// SubmitSeries persists a queued series and starts its production task.
func (m *Manager) SubmitSeries(ctx context.Context, in SeriesInput) (series.Series, error) {
	seed := editorial.Seed{Topic: in.Topic, Prompt: strings.TrimSpace(in.Prompt)}
	if seed.Topic == nil && seed.Prompt == "" {
		return series.Series{}, services.Wrap(services.ErrValidation, "workflow", "series", "topic or topic_data required", nil)
	}
	if err := m.requireKeys("series"); err != nil {
		return series.Series{}, err
	}
	created, err := m.series.Create(ctx, seed, in.NumEpisodes)
	if err != nil {
		return series.Series{}, err
	}
	voiceA, voiceB := m.voices(in.VoiceA, in.VoiceB)
	ctx = services.WithSeriesID(ctx, created.ID)
	m.pool.Submit(ctx, "series "+created.ID, func(ctx context.Context) error {
		return m.series.Run(ctx, created.ID, seed, voiceA, voiceB)
	}, func(ctx context.Context, err error) {
		m.series.Fail(ctx, created.ID, err)
	})
	return created, nil
}

// Autoqueue turns the intelligence page into one standard-depth episode.
// ok is false when no topic could be derived; the reason is logged.
func (m *Manager) Autoqueue(ctx context.Context, voiceA, voiceB string) (job jobs.Job, ok bool, err error) {
	if err := m.requireKeys("autoqueue"); err != nil {
		return jobs.Job{}, false, err
	}
	topic, found, err := m.editorial.IntelTopic(ctx)
	if err != nil {
		logging.WarnWithContext(m.logger, "autoqueue topic failed", "autoqueue_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check generation service and intel.url"),
			logging.String(logging.FieldImpact, "no intelligence episode queued"))
		return jobs.Job{}, false, nil
	}
	if !found {
		m.logger.Info("autoqueue skipped: no intelligence sections",
			logging.String(logging.FieldEventType, "autoqueue_no_data"))
		return jobs.Job{}, false, nil
	}
	voiceA, voiceB = m.voices(voiceA, voiceB)
	job, err = m.queueGenerate(ctx, pipeline.GenerateRequest{
		Topic:  topic,
		Depth:  script.DepthStandard,
		VoiceA: voiceA,
		VoiceB: voiceB,
		Brief:  topic.ProductionBrief,
	})
	if err != nil {
		return jobs.Job{}, false, err
	}
	return job, true, nil
}
