package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"briefings/internal/config"
	"briefings/internal/editorial"
	"briefings/internal/engagement"
	"briefings/internal/episodes"
	"briefings/internal/jobs"
	"briefings/internal/ledger"
	"briefings/internal/pipeline"
	"briefings/internal/series"
	"briefings/internal/services/llm"
	"briefings/internal/services/tts"
	"briefings/internal/testsupport"
	"briefings/internal/workflow"
)

type fakeProducer struct {
	reg *jobs.Registry

	mu       sync.Mutex
	generate []pipeline.GenerateRequest
	chats    []pipeline.ChatRequest
	panicMsg string
}

func (f *fakeProducer) Generate(ctx context.Context, jobID string, req pipeline.GenerateRequest) (episodes.Episode, error) {
	f.mu.Lock()
	f.generate = append(f.generate, req)
	panicMsg := f.panicMsg
	f.mu.Unlock()
	if panicMsg != "" {
		panic(panicMsg)
	}
	ep := episodes.Episode{ID: "briefing-episode-" + jobID, Title: req.Topic.Title, IsTrailer: req.Trailer}
	_ = f.reg.Update(ctx, jobID, jobs.Done("Complete", pipeline.Result{Episode: ep}))
	return ep, nil
}

func (f *fakeProducer) Chat(ctx context.Context, jobID string, req pipeline.ChatRequest) (episodes.Episode, error) {
	f.mu.Lock()
	f.chats = append(f.chats, req)
	f.mu.Unlock()
	_ = f.reg.Update(ctx, jobID, jobs.Done("Complete", nil))
	return episodes.Episode{ID: "briefing-chat-" + jobID}, nil
}

func (f *fakeProducer) generateRequests() []pipeline.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pipeline.GenerateRequest(nil), f.generate...)
}

type fakeEditorial struct {
	mu             sync.Mutex
	topicCalls     int
	suggestCalls   int
	signals        []editorial.Signals
	trailers       []editorial.Topic
	suggestErr     error
	intel          editorial.Topic
	intelFound     bool
	intelErr       error
	todaysTopics   []editorial.Topic
	suggestionList []editorial.Topic
}

func (f *fakeEditorial) Topics(context.Context) []editorial.Topic {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topicCalls++
	return f.todaysTopics
}

func (f *fakeEditorial) Suggestions(_ context.Context, s editorial.Signals) ([]editorial.Topic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suggestCalls++
	f.signals = append(f.signals, s)
	if f.suggestErr != nil {
		return nil, f.suggestErr
	}
	return f.suggestionList, nil
}

func (f *fakeEditorial) NightlyTrailers(_ context.Context, s editorial.Signals) ([]editorial.Topic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, s)
	return f.trailers, nil
}

func (f *fakeEditorial) IntelTopic(context.Context) (editorial.Topic, bool, error) {
	return f.intel, f.intelFound, f.intelErr
}

type fakeOutliner struct{}

func (fakeOutliner) Outline(_ context.Context, seed editorial.Seed, n int) ([]editorial.Topic, error) {
	out := make([]editorial.Topic, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, editorial.Topic{Title: seed.Title(), EpisodeNumber: i})
	}
	return out, nil
}

type seriesProducer struct{ reg *jobs.Registry }

func (s seriesProducer) SeriesEpisode(ctx context.Context, jobID string, req pipeline.SeriesEpisodeRequest) (episodes.Episode, error) {
	_ = s.reg.Update(ctx, jobID, jobs.Done("Done!", nil))
	return episodes.Episode{ID: "series-" + req.SeriesID}, nil
}

type fakeSpeech struct {
	sub tts.Subscription
	err error
}

func (f fakeSpeech) Subscription(context.Context) (tts.Subscription, error) { return f.sub, f.err }

type fakeSearch struct {
	resp llm.Response
	err  error
}

func (f fakeSearch) Create(context.Context, llm.Request) (llm.Response, error) { return f.resp, f.err }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	cfg       *config.Config
	mgr       *workflow.Manager
	reg       *jobs.Registry
	episodes  *episodes.Store
	producer  *fakeProducer
	editorial *fakeEditorial
	clock     *clock
}

type harnessOption func(*workflow.Deps)

func withSpeech(s workflow.SpeechAccount) harnessOption {
	return func(d *workflow.Deps) { d.Speech = s }
}

func withSearch(s workflow.SearchProbe) harnessOption {
	return func(d *workflow.Deps) { d.Search = s }
}

func newHarness(t *testing.T, cfgOpts []testsupport.ConfigOption, opts ...harnessOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, cfgOpts...)
	store := testsupport.MustOpenStore(t, cfg)
	clk := &clock{now: time.Date(2026, 3, 9, 14, 30, 0, 0, time.Local)}

	reg := jobs.NewRegistry(store, nil, jobs.WithClock(clk.Now))
	eps := episodes.NewStore(store, nil, nil, nil)
	coord := series.NewCoordinator(store, reg, fakeOutliner{}, seriesProducer{reg: reg}, nil, series.WithClock(clk.Now))
	led := ledger.New(store, cfg.Workflow.WeeklyCap, nil)
	led.SetClock(clk.Now)
	producer := &fakeProducer{reg: reg}
	ed := &fakeEditorial{}

	deps := workflow.Deps{
		Config:     cfg,
		Store:      store,
		Jobs:       reg,
		Series:     coord,
		Episodes:   eps,
		Ledger:     led,
		Engagement: engagement.NewLog(store, nil),
		Producer:   producer,
		Editorial:  ed,
		Pool:       workflow.NewPool(2, nil),
		Now:        clk.Now,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	mgr, err := workflow.NewManager(deps)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(mgr.Wait)
	return &harness{cfg: cfg, mgr: mgr, reg: reg, episodes: eps, producer: producer, editorial: ed, clock: clk}
}

func mustJob(t *testing.T, reg *jobs.Registry, id string) jobs.Job {
	t.Helper()
	job, ok := reg.Get(context.Background(), id)
	if !ok {
		t.Fatalf("job %s missing", id)
	}
	return job
}

var errBoom = errors.New("boom")
