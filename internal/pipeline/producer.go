package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"briefings/internal/audio"
	"briefings/internal/editorial"
	"briefings/internal/episodes"
	"briefings/internal/jobs"
	"briefings/internal/logging"
	"briefings/internal/script"
	"briefings/internal/services"
	"briefings/internal/services/tts"
)

// ErrVoiceNotFound is recorded when either requested voice cannot be
// resolved against the speech catalog. The text is shown to users as is.
var ErrVoiceNotFound = errors.New("Voice not found")

const timestampLayout = "20060102-150405"

// ScriptWriter writes full episode scripts.
type ScriptWriter interface {
	Episode(ctx context.Context, topic editorial.Topic, depth, brief string) script.Script
}

// ChatTopicWriter turns a free-form message into a topic.
type ChatTopicWriter interface {
	ChatTopic(ctx context.Context, message string, existing []editorial.Topic) (editorial.Topic, error)
}

// VoiceCatalog lists the available speech voices.
type VoiceCatalog interface {
	Voices(ctx context.Context) ([]tts.Voice, error)
}

// Renderer turns a script into a published audio file.
type Renderer interface {
	Render(ctx context.Context, id string, segments []script.Segment, voices audio.Voices) (audio.Published, error)
}

// EpisodeSink records finished episodes.
type EpisodeSink interface {
	Add(ctx context.Context, ep episodes.Episode) error
	Get(ctx context.Context, id string) (episodes.Episode, bool)
}

// ProductionLog counts productions toward the weekly cap.
type ProductionLog interface {
	Log(ctx context.Context) error
}

// JobSink receives job state changes.
type JobSink interface {
	Update(ctx context.Context, id string, change jobs.JobUpdate) error
}

// Deps collects the producer's collaborators.
type Deps struct {
	Jobs     JobSink
	Scripts  ScriptWriter
	Topics   ChatTopicWriter
	Voices   VoiceCatalog
	Audio    Renderer
	Episodes EpisodeSink
	Ledger   ProductionLog
	Logger   *slog.Logger
	Now      func() time.Time
}

// Producer runs episode jobs.
type Producer struct {
	deps   Deps
	logger *slog.Logger

	mu       sync.Mutex
	reserved map[string]struct{}
}

// NewProducer validates deps and returns a producer.
func NewProducer(deps Deps) (*Producer, error) {
	switch {
	case deps.Jobs == nil:
		return nil, errors.New("pipeline: job sink required")
	case deps.Scripts == nil:
		return nil, errors.New("pipeline: script writer required")
	case deps.Voices == nil:
		return nil, errors.New("pipeline: voice catalog required")
	case deps.Audio == nil:
		return nil, errors.New("pipeline: audio renderer required")
	case deps.Episodes == nil:
		return nil, errors.New("pipeline: episode sink required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Producer{
		deps:     deps,
		logger:   logging.NewComponentLogger(deps.Logger, "pipeline"),
		reserved: make(map[string]struct{}),
	}, nil
}

// GenerateRequest asks for one episode or trailer from a topic.
type GenerateRequest struct {
	Topic   editorial.Topic
	Depth   string
	VoiceA  string
	VoiceB  string
	Trailer bool
	Brief   string
}

// ChatRequest asks for an episode from a free-form message.
type ChatRequest struct {
	Message  string
	Existing []editorial.Topic
	VoiceA   string
	VoiceB   string
}

// SeriesEpisodeRequest is one step of a series arc.
type SeriesEpisodeRequest struct {
	SeriesID    string
	SeriesTitle string
	Number      int
	Total       int
	Topic       editorial.Topic
	VoiceA      string
	VoiceB      string
}

// Result is the payload stored on a finished job.
type Result struct {
	Topic   *editorial.Topic `json:"topic,omitempty"`
	Episode episodes.Episode `json:"episode"`
	Sources []string         `json:"sources"`
}

// Generate produces a trailer or a full episode for req.Topic.
func (p *Producer) Generate(ctx context.Context, jobID string, req GenerateRequest) (episodes.Episode, error) {
	ctx = services.WithJobID(ctx, jobID)
	p.progress(ctx, jobID, jobs.Running("Connecting to voice service..."))
	voices, err := p.resolveVoices(ctx, req.VoiceA, req.VoiceB)
	if err != nil {
		return p.fail(ctx, jobID, err)
	}

	var written script.Script
	if req.Trailer {
		p.progress(ctx, jobID, jobs.Progress("Building trailer..."))
		written = script.Trailer(req.Topic)
	} else {
		p.progress(ctx, jobID, jobs.Progress("Writing script - 1-2 minutes..."))
		written = p.deps.Scripts.Episode(ctx, req.Topic, req.Depth, req.Brief)
		p.logProduction(ctx)
	}

	p.progress(ctx, jobID, jobs.Progress(audioProgress("", len(written.Segments))))
	kind, title, depth := "episode", "Briefing: "+req.Topic.Title, p.depthLabel(req.Depth)
	if req.Trailer {
		kind, title, depth = "trailer", "[Trailer] Briefing: "+req.Topic.Title, "Trailer"
	}
	ep, err := p.publish(ctx, jobID, "briefing-"+kind, written, voices, episodes.Episode{
		Title:       title,
		Description: req.Topic.Tension,
		Depth:       depth,
		IsTrailer:   req.Trailer,
	})
	if err != nil {
		return p.fail(ctx, jobID, err)
	}
	p.progress(ctx, jobID, jobs.Done("Complete", Result{Episode: ep, Sources: ep.Sources}))
	return ep, nil
}

// Chat produces a standard episode from a message. The production is logged
// once audio exists.
func (p *Producer) Chat(ctx context.Context, jobID string, req ChatRequest) (episodes.Episode, error) {
	ctx = services.WithJobID(ctx, jobID)
	p.progress(ctx, jobID, jobs.Running("Generating topic from your message..."))
	if p.deps.Topics == nil {
		return p.fail(ctx, jobID, services.Wrap(services.ErrConfiguration, "pipeline", "chat", "topic writer not configured", nil))
	}
	topic, err := p.deps.Topics.ChatTopic(ctx, req.Message, req.Existing)
	if err != nil {
		return p.fail(ctx, jobID, err)
	}

	p.progress(ctx, jobID, jobs.Progress("Writing script - 1-2 minutes..."))
	written := p.deps.Scripts.Episode(ctx, topic, script.DepthStandard, topic.ProductionBrief)

	p.progress(ctx, jobID, jobs.Progress(audioProgress("", len(written.Segments))))
	voices, err := p.resolveVoices(ctx, req.VoiceA, req.VoiceB)
	if err != nil {
		return p.fail(ctx, jobID, err)
	}
	ep, err := p.publish(ctx, jobID, "briefing-chat", written, voices, episodes.Episode{
		Title:       "[Chat] " + topic.Title,
		Description: topic.Tension,
		Depth:       p.depthLabel(script.DepthStandard),
	}, p.logProduction)
	if err != nil {
		return p.fail(ctx, jobID, err)
	}
	p.progress(ctx, jobID, jobs.Done("Complete", Result{Topic: &topic, Episode: ep, Sources: ep.Sources}))
	return ep, nil
}

// SeriesEpisode produces episode req.Number of a series.
func (p *Producer) SeriesEpisode(ctx context.Context, jobID string, req SeriesEpisodeRequest) (episodes.Episode, error) {
	ctx = services.WithSeriesID(services.WithJobID(ctx, jobID), req.SeriesID)
	step := fmt.Sprintf("Episode %d/%d: ", req.Number, req.Total)
	p.progress(ctx, jobID, jobs.Running(step+"Writing script..."))

	brief := req.Topic.SeriesContext
	if req.Number > 1 {
		brief += fmt.Sprintf(" This is episode %d of %d in the series - assume listeners heard previous episodes.", req.Number, req.Total)
	}
	written := p.deps.Scripts.Episode(ctx, req.Topic, script.DepthStandard, brief)
	p.logProduction(ctx)

	p.progress(ctx, jobID, jobs.Progress(audioProgress(step, len(written.Segments))))
	voices, err := p.resolveVoices(ctx, req.VoiceA, req.VoiceB)
	if err != nil {
		return p.fail(ctx, jobID, err)
	}
	ep, err := p.publish(ctx, jobID, fmt.Sprintf("series-%s-ep%d", req.SeriesID, req.Number), written, voices, episodes.Episode{
		Title:       fmt.Sprintf("[S: %s] Ep %d: %s", req.SeriesTitle, req.Number, req.Topic.Title),
		Description: req.Topic.Tension,
		Depth:       p.depthLabel(script.DepthStandard),
		SeriesID:    req.SeriesID,
		SeriesEp:    req.Number,
	})
	if err != nil {
		return p.fail(ctx, jobID, err)
	}
	p.progress(ctx, jobID, jobs.Done(fmt.Sprintf("Episode %d complete", req.Number), Result{Episode: ep, Sources: ep.Sources}))
	return ep, nil
}

// publish renders audio, runs afterAudio hooks, then records the episode.
func (p *Producer) publish(ctx context.Context, jobID, prefix string, written script.Script, voices audio.Voices, ep episodes.Episode, afterAudio ...func(context.Context)) (episodes.Episode, error) {
	ctx = services.WithStage(ctx, "audio")
	id := p.reserveID(ctx, prefix, jobID)
	defer p.release(id)

	published, err := p.deps.Audio.Render(ctx, id, written.Segments, voices)
	if err != nil {
		return episodes.Episode{}, err
	}
	for _, hook := range afterAudio {
		hook(ctx)
	}

	sources := written.Sources
	if sources == nil {
		sources = []string{}
	}
	ep.ID = id
	ep.File = published.File
	ep.FileSize = published.Size
	ep.Sources = sources
	ep.Published = p.deps.Now().UTC()
	if err := p.deps.Episodes.Add(ctx, ep); err != nil {
		return episodes.Episode{}, err
	}
	return ep, nil
}

func (p *Producer) resolveVoices(ctx context.Context, a, b string) (audio.Voices, error) {
	catalog, err := p.deps.Voices.Voices(ctx)
	if err != nil {
		return audio.Voices{}, err
	}
	idA, okA := tts.ResolveVoice(catalog, a)
	idB, okB := tts.ResolveVoice(catalog, b)
	if !okA || !okB {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "voice not resolved", "pipeline.voice_not_found",
			logging.String("voice_a", a),
			logging.Bool("voice_a_found", okA),
			logging.String("voice_b", b),
			logging.Bool("voice_b_found", okB),
			logging.String(logging.FieldErrorHint, "list voices and pick names from the catalog"),
			logging.String(logging.FieldImpact, "job fails without producing audio"),
		)
		return audio.Voices{}, ErrVoiceNotFound
	}
	return audio.Voices{A: idA, B: idB}, nil
}

// reserveID returns prefix-<local timestamp>. When another job holds that id
// in the same second, or an episode already uses it, the job id is appended.
func (p *Producer) reserveID(ctx context.Context, prefix, jobID string) string {
	id := prefix + "-" + p.deps.Now().Format(timestampLayout)
	p.mu.Lock()
	defer p.mu.Unlock()
	_, taken := p.reserved[id]
	if !taken {
		_, taken = p.deps.Episodes.Get(ctx, id)
	}
	if taken {
		id += "-" + jobID
	}
	p.reserved[id] = struct{}{}
	return id
}

func (p *Producer) release(id string) {
	p.mu.Lock()
	delete(p.reserved, id)
	p.mu.Unlock()
}

func (p *Producer) logProduction(ctx context.Context) {
	if p.deps.Ledger == nil {
		return
	}
	if err := p.deps.Ledger.Log(ctx); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "production not logged", "ledger.log_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "weekly production count undercounts this episode"),
		)
	}
}

func (p *Producer) depthLabel(depth string) string {
	depth = strings.TrimSpace(depth)
	if depth == "" {
		depth = script.DepthStandard
	}
	return cases.Title(language.English).String(depth)
}

func (p *Producer) progress(ctx context.Context, jobID string, change jobs.JobUpdate) {
	if err := p.deps.Jobs.Update(ctx, jobID, change); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "job update not persisted", "jobs.update_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "pollers see stale progress"),
		)
	}
}

func (p *Producer) fail(ctx context.Context, jobID string, err error) (episodes.Episode, error) {
	logging.ErrorWithContext(logging.WithContext(ctx, p.logger), "job failed", "pipeline.job_failed",
		logging.Error(err),
	)
	p.progress(ctx, jobID, jobs.Failed(err.Error()))
	return episodes.Episode{}, err
}

func audioProgress(prefix string, segments int) string {
	return fmt.Sprintf("%sGenerating audio (%d segments)...", prefix, segments)
}
