package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"briefings/internal/audio"
	"briefings/internal/editorial"
	"briefings/internal/episodes"
	"briefings/internal/jobs"
	"briefings/internal/pipeline"
	"briefings/internal/script"
	"briefings/internal/services/tts"
	"briefings/internal/testsupport"
)

type fakeScripts struct {
	briefs []string
	depths []string
}

func (f *fakeScripts) Episode(_ context.Context, topic editorial.Topic, depth, brief string) script.Script {
	f.briefs = append(f.briefs, brief)
	f.depths = append(f.depths, depth)
	return script.Script{
		Segments: []script.Segment{{Host: "Alex", Text: topic.Title}, {Host: "Morgan", Text: "reply"}, {Host: "Alex", Text: "close"}},
		Sources:  []string{"Gartner"},
	}
}

type fakeChat struct{ err error }

func (f fakeChat) ChatTopic(_ context.Context, message string, _ []editorial.Topic) (editorial.Topic, error) {
	if f.err != nil {
		return editorial.Topic{}, f.err
	}
	return editorial.Topic{Title: "From chat", Tension: "chat tension", ProductionBrief: "brief:" + message}, nil
}

type fakeCatalog struct{ voices []tts.Voice }

func (f fakeCatalog) Voices(context.Context) ([]tts.Voice, error) { return f.voices, nil }

type echoTTS struct{}

func (echoTTS) Synthesize(_ context.Context, text, voiceID string) ([]byte, error) {
	return []byte(voiceID + ":" + text), nil
}

type countingLedger struct {
	mu    sync.Mutex
	count int
	// order receives "ledger" when Log runs, for sequencing checks.
	order *[]string
}

func (c *countingLedger) Log(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	if c.order != nil {
		*c.order = append(*c.order, "ledger")
	}
	return nil
}

type orderedRenderer struct {
	inner pipeline.Renderer
	order *[]string
}

func (o orderedRenderer) Render(ctx context.Context, id string, segs []script.Segment, v audio.Voices) (audio.Published, error) {
	*o.order = append(*o.order, "audio")
	return o.inner.Render(ctx, id, segs, v)
}

type progressLog struct {
	mu    sync.Mutex
	steps []string
}

func (p *progressLog) JobChanged(_ context.Context, job jobs.Job) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, string(job.Status)+"|"+job.Progress)
}

type harness struct {
	producer *pipeline.Producer
	registry *jobs.Registry
	episodes *episodes.Store
	scripts  *fakeScripts
	ledger   *countingLedger
	progress *progressLog
	order    []string
	renderer *audio.Renderer
}

var catalog = []tts.Voice{
	{Name: "Chris - Charming, Down-to-Earth", VoiceID: "voice-chris"},
	{Name: "Matilda - Knowledgable, Professional", VoiceID: "voice-matilda"},
}

func newHarness(t *testing.T, now time.Time, chat pipeline.ChatTopicWriter) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	h := &harness{scripts: &fakeScripts{}, progress: &progressLog{}}
	h.ledger = &countingLedger{order: &h.order}
	h.registry = jobs.NewRegistry(store, nil, jobs.WithObserver(h.progress))
	h.renderer = audio.NewRenderer(echoTTS{}, cfg.EpisodesDir(), nil)
	h.episodes = episodes.NewStore(store, nil, h.renderer, nil)

	producer, err := pipeline.NewProducer(pipeline.Deps{
		Jobs:     h.registry,
		Scripts:  h.scripts,
		Topics:   chat,
		Voices:   fakeCatalog{voices: catalog},
		Audio:    orderedRenderer{inner: h.renderer, order: &h.order},
		Episodes: h.episodes,
		Ledger:   h.ledger,
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}
	h.producer = producer
	return h
}

func (h *harness) newJob(t *testing.T, typ jobs.Type) string {
	t.Helper()
	job, err := h.registry.Create(context.Background(), typ)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return job.ID
}

func (h *harness) job(t *testing.T, id string) jobs.Job {
	t.Helper()
	job, ok := h.registry.Get(context.Background(), id)
	if !ok {
		t.Fatalf("job %s missing", id)
	}
	return job
}

var fixedNow = time.Date(2026, 3, 9, 14, 30, 5, 0, time.Local)

func TestGenerateFullEpisode(t *testing.T) {
	h := newHarness(t, fixedNow, nil)
	id := h.newJob(t, jobs.TypeGenerate)

	ep, err := h.producer.Generate(context.Background(), id, pipeline.GenerateRequest{
		Topic:  editorial.Topic{Title: "Moats", Tension: "They moved."},
		Depth:  "deep",
		VoiceA: "chris",
		VoiceB: "voice-matilda",
		Brief:  "lean in",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ep.ID != "briefing-episode-20260309-143005" {
		t.Fatalf("unexpected id %q", ep.ID)
	}
	if ep.Title != "Briefing: Moats" || ep.Depth != "Deep" || ep.Description != "They moved." || ep.IsTrailer {
		t.Fatalf("unexpected episode %+v", ep)
	}
	if ep.File != ep.ID+".mp3" || ep.FileSize != int64(len("voice-chris:Moatsvoice-matilda:replyvoice-chris:close")) {
		t.Fatalf("unexpected file data %+v", ep)
	}
	if h.ledger.count != 1 {
		t.Fatalf("expected one production logged, got %d", h.ledger.count)
	}
	if h.scripts.briefs[0] != "lean in" || h.scripts.depths[0] != "deep" {
		t.Fatalf("script writer got brief=%q depth=%q", h.scripts.briefs[0], h.scripts.depths[0])
	}

	job := h.job(t, id)
	if job.Status != jobs.StatusDone || job.Progress != "Complete" {
		t.Fatalf("unexpected job state %s %q", job.Status, job.Progress)
	}
	var result pipeline.Result
	if err := json.Unmarshal(job.Result, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Episode.ID != ep.ID || len(result.Sources) != 1 || result.Topic != nil {
		t.Fatalf("unexpected result %+v", result)
	}

	want := []string{
		"running|Connecting to voice service...",
		"running|Writing script - 1-2 minutes...",
		"running|Generating audio (3 segments)...",
		"done|Complete",
	}
	got := h.progress.steps[1:]
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("progress sequence:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	if stored, ok := h.episodes.Get(context.Background(), ep.ID); !ok || stored.Title != ep.Title {
		t.Fatal("episode not stored")
	}
}

func TestGenerateTrailerSkipsScriptAndLedger(t *testing.T) {
	h := newHarness(t, fixedNow, nil)
	id := h.newJob(t, jobs.TypeGenerate)

	ep, err := h.producer.Generate(context.Background(), id, pipeline.GenerateRequest{
		Topic:   editorial.Topic{Title: "Moats", Tension: "t", TrailerHook: "Hook."},
		Depth:   "executive",
		VoiceA:  "Chris",
		VoiceB:  "Matilda",
		Trailer: true,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(ep.ID, "briefing-trailer-") || ep.Title != "[Trailer] Briefing: Moats" || ep.Depth != "Trailer" || !ep.IsTrailer {
		t.Fatalf("unexpected trailer %+v", ep)
	}
	if len(h.scripts.briefs) != 0 || h.ledger.count != 0 {
		t.Fatalf("trailer should not write a script or log a production")
	}
	if len(ep.Sources) != 0 || ep.Sources == nil {
		t.Fatalf("trailer sources should be empty, got %v", ep.Sources)
	}
	if !contains(h.progress.steps, "running|Building trailer...") {
		t.Fatalf("missing trailer progress: %v", h.progress.steps)
	}
}

func TestGenerateVoiceNotFound(t *testing.T) {
	h := newHarness(t, fixedNow, nil)
	id := h.newJob(t, jobs.TypeGenerate)

	_, err := h.producer.Generate(context.Background(), id, pipeline.GenerateRequest{
		Topic:  editorial.Topic{Title: "Moats"},
		VoiceA: "Chris",
		VoiceB: "Nobody",
	})
	if !errors.Is(err, pipeline.ErrVoiceNotFound) {
		t.Fatalf("expected ErrVoiceNotFound, got %v", err)
	}
	job := h.job(t, id)
	if job.Status != jobs.StatusError || job.Error != "Voice not found" {
		t.Fatalf("unexpected job %s %q", job.Status, job.Error)
	}
	if len(h.episodes.List(context.Background())) != 0 || len(h.scripts.briefs) != 0 {
		t.Fatal("no script or episode expected after voice failure")
	}
}

func TestChatLogsProductionAfterAudio(t *testing.T) {
	h := newHarness(t, fixedNow, fakeChat{})
	id := h.newJob(t, jobs.TypeChat)

	ep, err := h.producer.Chat(context.Background(), id, pipeline.ChatRequest{
		Message: "pricing",
		VoiceA:  "Chris",
		VoiceB:  "Matilda",
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if ep.ID != "briefing-chat-20260309-143005" || ep.Title != "[Chat] From chat" || ep.Depth != "Standard" {
		t.Fatalf("unexpected episode %+v", ep)
	}
	if strings.Join(h.order, ",") != "audio,ledger" {
		t.Fatalf("expected production logged after audio, got %v", h.order)
	}
	if h.scripts.briefs[0] != "brief:pricing" || h.scripts.depths[0] != "standard" {
		t.Fatalf("unexpected script inputs %v %v", h.scripts.briefs, h.scripts.depths)
	}

	var result pipeline.Result
	if err := json.Unmarshal(h.job(t, id).Result, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Topic == nil || result.Topic.Title != "From chat" {
		t.Fatalf("chat result should carry the topic, got %+v", result)
	}
	if h.progress.steps[1] != "running|Generating topic from your message..." {
		t.Fatalf("unexpected first progress %q", h.progress.steps[1])
	}
}

func TestChatTopicFailure(t *testing.T) {
	h := newHarness(t, fixedNow, fakeChat{err: errors.New("model refused")})
	id := h.newJob(t, jobs.TypeChat)

	if _, err := h.producer.Chat(context.Background(), id, pipeline.ChatRequest{Message: "x", VoiceA: "Chris", VoiceB: "Matilda"}); err == nil {
		t.Fatal("expected failure")
	}
	if job := h.job(t, id); job.Status != jobs.StatusError || job.Error != "model refused" {
		t.Fatalf("unexpected job %s %q", job.Status, job.Error)
	}
}

func TestSeriesEpisode(t *testing.T) {
	h := newHarness(t, fixedNow, nil)
	id := h.newJob(t, jobs.TypeSeriesEpisode)

	ep, err := h.producer.SeriesEpisode(context.Background(), id, pipeline.SeriesEpisodeRequest{
		SeriesID:    "ab12cd34",
		SeriesTitle: "Moats",
		Number:      2,
		Total:       3,
		Topic:       editorial.Topic{Title: "Mechanisms", Tension: "why", SeriesContext: "Builds on ep 1."},
		VoiceA:      "Chris",
		VoiceB:      "Matilda",
	})
	if err != nil {
		t.Fatalf("SeriesEpisode: %v", err)
	}
	if ep.ID != "series-ab12cd34-ep2-20260309-143005" || ep.Title != "[S: Moats] Ep 2: Mechanisms" {
		t.Fatalf("unexpected episode %+v", ep)
	}
	if ep.SeriesID != "ab12cd34" || ep.SeriesEp != 2 || ep.Depth != "Standard" {
		t.Fatalf("series fields missing %+v", ep)
	}
	wantBrief := "Builds on ep 1. This is episode 2 of 3 in the series - assume listeners heard previous episodes."
	if h.scripts.briefs[0] != wantBrief {
		t.Fatalf("brief = %q", h.scripts.briefs[0])
	}
	job := h.job(t, id)
	if job.Progress != "Episode 2 complete" || job.Status != jobs.StatusDone {
		t.Fatalf("unexpected job %s %q", job.Status, job.Progress)
	}
	if !contains(h.progress.steps, "running|Episode 2/3: Generating audio (3 segments)...") {
		t.Fatalf("missing audio progress: %v", h.progress.steps)
	}
}

func TestSeriesFirstEpisodeBriefIsContextOnly(t *testing.T) {
	h := newHarness(t, fixedNow, nil)
	id := h.newJob(t, jobs.TypeSeriesEpisode)
	_, err := h.producer.SeriesEpisode(context.Background(), id, pipeline.SeriesEpisodeRequest{
		SeriesID: "s", SeriesTitle: "S", Number: 1, Total: 3,
		Topic:  editorial.Topic{Title: "Overview", SeriesContext: "Opens the arc."},
		VoiceA: "Chris", VoiceB: "Matilda",
	})
	if err != nil {
		t.Fatalf("SeriesEpisode: %v", err)
	}
	if h.scripts.briefs[0] != "Opens the arc." {
		t.Fatalf("brief = %q", h.scripts.briefs[0])
	}
}

func TestSameSecondEpisodesGetDistinctIDs(t *testing.T) {
	h := newHarness(t, fixedNow, nil)
	req := pipeline.GenerateRequest{Topic: editorial.Topic{Title: "A"}, VoiceA: "Chris", VoiceB: "Matilda", Trailer: true}

	first := h.newJob(t, jobs.TypeGenerate)
	second := h.newJob(t, jobs.TypeGenerate)
	a, err := h.producer.Generate(context.Background(), first, req)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := h.producer.Generate(context.Background(), second, req)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if a.ID == b.ID {
		t.Fatalf("ids collide: %s", a.ID)
	}
	if b.ID != a.ID+"-"+second {
		t.Fatalf("expected job id suffix, got %s", b.ID)
	}
}

func contains(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}
