package daemon_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"briefings/internal/config"
	"briefings/internal/daemon"
	"briefings/internal/editorial"
	"briefings/internal/engagement"
	"briefings/internal/episodes"
	"briefings/internal/feed"
	"briefings/internal/jobs"
	"briefings/internal/ledger"
	"briefings/internal/pipeline"
	"briefings/internal/series"
	"briefings/internal/services/tts"
	"briefings/internal/testsupport"
	"briefings/internal/workflow"
)

type doneProducer struct{ reg *jobs.Registry }

func (p doneProducer) Generate(ctx context.Context, jobID string, req pipeline.GenerateRequest) (episodes.Episode, error) {
	_ = p.reg.Update(ctx, jobID, jobs.Done("Complete", nil))
	return episodes.Episode{ID: "briefing-" + jobID, Title: req.Topic.Title}, nil
}

func (p doneProducer) Chat(ctx context.Context, jobID string, _ pipeline.ChatRequest) (episodes.Episode, error) {
	_ = p.reg.Update(ctx, jobID, jobs.Done("Complete", nil))
	return episodes.Episode{ID: "briefing-chat-" + jobID}, nil
}

func (p doneProducer) SeriesEpisode(ctx context.Context, jobID string, _ pipeline.SeriesEpisodeRequest) (episodes.Episode, error) {
	_ = p.reg.Update(ctx, jobID, jobs.Done("Done!", nil))
	return episodes.Episode{}, nil
}

type staticEditorial struct{}

func (staticEditorial) Topics(context.Context) []editorial.Topic {
	return []editorial.Topic{{Title: "Static topic"}}
}

func (staticEditorial) Suggestions(context.Context, editorial.Signals) ([]editorial.Topic, error) {
	return []editorial.Topic{{Title: "Suggested"}}, nil
}

func (staticEditorial) NightlyTrailers(context.Context, editorial.Signals) ([]editorial.Topic, error) {
	return []editorial.Topic{{Title: "Trailer"}}, nil
}

func (staticEditorial) IntelTopic(context.Context) (editorial.Topic, bool, error) {
	return editorial.Topic{}, false, nil
}

func (staticEditorial) Outline(_ context.Context, seed editorial.Seed, n int) ([]editorial.Topic, error) {
	out := make([]editorial.Topic, n)
	for i := range out {
		out[i] = editorial.Topic{Title: seed.Title(), EpisodeNumber: i + 1}
	}
	return out, nil
}

type stubVoices []tts.Voice

func (v stubVoices) Voices(context.Context) ([]tts.Voice, error) { return v, nil }

type testDaemon struct {
	cfg      *config.Config
	daemon   *daemon.Daemon
	manager  *workflow.Manager
	episodes *episodes.Store
}

func newTestDaemon(t *testing.T, opts ...testsupport.ConfigOption) *testDaemon {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	reg := jobs.NewRegistry(store, nil)
	producer := doneProducer{reg: reg}
	eps := episodes.NewStore(store, feed.NewPublisher(cfg, nil), nil, nil)
	mgr, err := workflow.NewManager(workflow.Deps{
		Config:     cfg,
		Store:      store,
		Jobs:       reg,
		Series:     series.NewCoordinator(store, reg, staticEditorial{}, producer, nil),
		Episodes:   eps,
		Ledger:     ledger.New(store, cfg.Workflow.WeeklyCap, nil),
		Engagement: engagement.NewLog(store, nil),
		Producer:   producer,
		Editorial:  staticEditorial{},
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	d, err := daemon.New(cfg, nil, mgr, daemon.WithVoices(stubVoices{{Name: "Chris", VoiceID: "v1"}}))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
		mgr.Wait()
	})
	return &testDaemon{cfg: cfg, daemon: d, manager: mgr, episodes: eps}
}

func (td *testDaemon) do(t *testing.T, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	td.daemon.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}
