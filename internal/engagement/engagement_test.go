package engagement_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"briefings/internal/engagement"
	"briefings/internal/logging"
	"briefings/internal/services"
	"briefings/internal/testsupport"
)

func pct(v float64) *float64 { return &v }

func TestSummarizeBuckets(t *testing.T) {
	events := []engagement.Event{
		{EventType: engagement.EventListenComplete, TopicTitle: "A"},
		{EventType: engagement.EventPreviewStarted, TopicTitle: "B"},
		{EventType: engagement.EventPlayPct, TopicTitle: "B", Pct: pct(30)},
		{EventType: engagement.EventDismissed, TopicTitle: "C"},
		{EventType: engagement.EventPreviewStarted, TopicTitle: "C"},
		{EventType: engagement.EventPlayPct, TopicTitle: "D", Pct: pct(80)},
		{EventType: engagement.EventDismissed, TopicTitle: "D"},
		{EventType: engagement.EventCommissioned, TopicTitle: "E"},
	}

	got := engagement.Summarize(events)
	assertTitles(t, "strong", got.StrongInterest, "A", "D")
	assertTitles(t, "moderate", got.ModerateInterest, "B")
	assertTitles(t, "dismissed", got.Dismissed, "C", "D")
}

func TestSummarizePreviewThenHighPctIsStrongOnly(t *testing.T) {
	got := engagement.Summarize([]engagement.Event{
		{EventType: engagement.EventPreviewStarted, TopicTitle: "T"},
		{EventType: engagement.EventPlayPct, TopicTitle: "T", Pct: pct(80)},
	})
	assertTitles(t, "strong", got.StrongInterest, "T")
	assertTitles(t, "moderate", got.ModerateInterest)
	assertTitles(t, "dismissed", got.Dismissed)
}

func TestSummarizeDismissedStaysOutOfModerate(t *testing.T) {
	dismissed := []engagement.Event{{EventType: engagement.EventDismissed, TopicTitle: "T"}}
	got := engagement.Summarize(dismissed)
	assertTitles(t, "strong", got.StrongInterest)
	assertTitles(t, "moderate", got.ModerateInterest)
	assertTitles(t, "dismissed", got.Dismissed, "T")

	// A later high play percentage still counts as strong interest.
	got = engagement.Summarize(append(dismissed,
		engagement.Event{EventType: engagement.EventPlayPct, TopicTitle: "T", Pct: pct(90)}))
	assertTitles(t, "strong", got.StrongInterest, "T")
	assertTitles(t, "moderate", got.ModerateInterest)
	assertTitles(t, "dismissed", got.Dismissed, "T")
}

func TestSummarizeListenCompleteOverridesPct(t *testing.T) {
	events := []engagement.Event{
		{EventType: engagement.EventPlayPct, TopicTitle: "A", Pct: pct(10)},
		{EventType: engagement.EventListenComplete, TopicTitle: "A"},
		{EventType: engagement.EventPlayPct, TopicTitle: "A", Pct: pct(20)},
	}
	got := engagement.Summarize(events)
	assertTitles(t, "strong", got.StrongInterest, "A")
	assertTitles(t, "moderate", got.ModerateInterest)
}

func TestSummarizeKeepsLastTitles(t *testing.T) {
	var events []engagement.Event
	for i := 0; i < 25; i++ {
		events = append(events, engagement.Event{EventType: engagement.EventListenComplete, TopicTitle: fmt.Sprintf("T%02d", i)})
	}
	got := engagement.Summarize(events)
	if len(got.StrongInterest) != 20 {
		t.Fatalf("expected 20 strong titles, got %d", len(got.StrongInterest))
	}
	if got.StrongInterest[0] != "T05" || got.StrongInterest[19] != "T24" {
		t.Fatalf("unexpected window: %v", got.StrongInterest)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	got := engagement.Summarize(nil)
	if !got.Empty() {
		t.Fatalf("expected empty summary, got %+v", got)
	}
	if got.StrongInterest == nil || got.Dismissed == nil {
		t.Fatal("expected non-nil buckets for JSON output")
	}
}

func TestAppendTrimsToNewest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	seed := make([]engagement.Event, 0, engagement.MaxEvents)
	for i := 0; i < engagement.MaxEvents; i++ {
		seed = append(seed, engagement.Event{EventType: engagement.EventPreviewStarted, TopicTitle: fmt.Sprintf("T%d", i)})
	}
	data, err := json.Marshal(seed)
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Paths.DataDir, "engagement_log.json"), data, 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	store := testsupport.MustOpenStore(t, cfg)
	log := engagement.NewLog(store, logging.NewNop())
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := log.Append(ctx, engagement.Event{EventType: engagement.EventCommissioned, TopicTitle: fmt.Sprintf("N%d", i)}); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	events := log.Events(ctx)
	if len(events) != engagement.MaxEvents {
		t.Fatalf("expected %d events, got %d", engagement.MaxEvents, len(events))
	}
	if events[0].TopicTitle != "T5" {
		t.Fatalf("expected oldest retained T5, got %s", events[0].TopicTitle)
	}
	last := events[len(events)-1]
	if last.TopicTitle != "N4" || last.Timestamp.IsZero() {
		t.Fatalf("unexpected newest event: %+v", last)
	}
}

func TestAppendRequiresTypeAndTitle(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	log := engagement.NewLog(store, logging.NewNop())
	err := log.Append(context.Background(), engagement.Event{EventType: engagement.EventDismissed})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func assertTitles(t *testing.T, bucket string, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %v, got %v", bucket, want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s: expected %v, got %v", bucket, want, got)
		}
	}
}
