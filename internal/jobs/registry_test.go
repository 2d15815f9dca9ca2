package jobs_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"briefings/internal/jobs"
	"briefings/internal/logging"
	"briefings/internal/testsupport"
)

type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []jobs.Job
}

func (o *recordingObserver) JobChanged(_ context.Context, job jobs.Job) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, job)
}

func newRegistry(t *testing.T, opts ...jobs.Option) *jobs.Registry {
	t.Helper()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	clock := &steppingClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	opts = append([]jobs.Option{jobs.WithClock(clock.Now)}, opts...)
	return jobs.NewRegistry(store, logging.NewNop(), opts...)
}

func TestCreateQueuesJob(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	job, err := reg.Create(ctx, jobs.TypeGenerate)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(job.ID) != 8 {
		t.Fatalf("expected 8-char id, got %q", job.ID)
	}
	if job.Status != jobs.StatusQueued || job.Progress != "Queued..." {
		t.Fatalf("unexpected new job: %+v", job)
	}
	stored, ok := reg.Get(ctx, job.ID)
	if !ok || stored.Type != jobs.TypeGenerate {
		t.Fatalf("expected persisted job, got %+v ok=%v", stored, ok)
	}
}

func TestStatusNeverMovesBackward(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()
	job, err := reg.Create(ctx, jobs.TypeChat)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := reg.Update(ctx, job.ID, jobs.Running("Writing script...")); err != nil {
		t.Fatalf("Update running: %v", err)
	}
	if err := reg.Update(ctx, job.ID, jobs.Done("Complete", map[string]string{"episode": "x"})); err != nil {
		t.Fatalf("Update done: %v", err)
	}
	if err := reg.Update(ctx, job.ID, jobs.Running("again")); err != nil {
		t.Fatalf("Update after done: %v", err)
	}
	if err := reg.Update(ctx, job.ID, jobs.Failed("late failure")); err != nil {
		t.Fatalf("Update error after done: %v", err)
	}

	got, _ := reg.Get(ctx, job.ID)
	if got.Status != jobs.StatusDone {
		t.Fatalf("expected done to stick, got %s", got.Status)
	}
	var result map[string]string
	if err := json.Unmarshal(got.Result, &result); err != nil || result["episode"] != "x" {
		t.Fatalf("unexpected result %s: %v", got.Result, err)
	}
}

func TestQueuedMayJumpToError(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()
	job, _ := reg.Create(ctx, jobs.TypeGenerate)

	if err := reg.Update(ctx, job.ID, jobs.Failed("Voice not found")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := reg.Get(ctx, job.ID)
	if got.Status != jobs.StatusError || got.Error != "Voice not found" {
		t.Fatalf("unexpected job: %+v", got)
	}
}

func TestUpdateUnknownIDIsNoop(t *testing.T) {
	observer := &recordingObserver{}
	reg := newRegistry(t, jobs.WithObserver(observer))
	ctx := context.Background()

	if err := reg.Update(ctx, "deadbeef", jobs.Progress("nothing")); err != nil {
		t.Fatalf("Update unknown: %v", err)
	}
	if got := len(reg.List(ctx)); got != 0 {
		t.Fatalf("expected empty registry, got %d", got)
	}
	if len(observer.seen) != 0 {
		t.Fatalf("observer should not fire for unknown id")
	}
}

func TestClearPendingAndFailed(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	statuses := []jobs.JobUpdate{
		{},
		jobs.Running("working"),
		jobs.Done("Complete", nil),
		jobs.Failed("boom"),
		jobs.Failed("boom again"),
	}
	ids := make([]string, 0, len(statuses))
	for _, change := range statuses {
		job, err := reg.Create(ctx, jobs.TypeGenerate)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if change.Status != nil {
			if err := reg.Update(ctx, job.ID, change); err != nil {
				t.Fatalf("Update: %v", err)
			}
		}
		ids = append(ids, job.ID)
	}

	removed, err := reg.ClearPendingAndFailed(ctx)
	if err != nil {
		t.Fatalf("ClearPendingAndFailed: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
	remaining := reg.List(ctx)
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining, got %d", len(remaining))
	}
	if _, ok := remaining[ids[1]]; !ok {
		t.Fatal("running job should remain")
	}
	if _, ok := remaining[ids[2]]; !ok {
		t.Fatal("done job should remain")
	}
}

func TestRetentionEvictsOldest(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	first, err := reg.Create(ctx, jobs.TypeGenerate)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, _ := reg.Create(ctx, jobs.TypeGenerate)
	for i := 2; i < jobs.DefaultRetention; i++ {
		if _, err := reg.Create(ctx, jobs.TypeGenerate); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}
	if got := len(reg.List(ctx)); got != jobs.DefaultRetention {
		t.Fatalf("expected %d jobs, got %d", jobs.DefaultRetention, got)
	}

	if _, err := reg.Create(ctx, jobs.TypeGenerate); err != nil {
		t.Fatalf("Create overflow: %v", err)
	}
	all := reg.List(ctx)
	if len(all) != jobs.DefaultRetention {
		t.Fatalf("expected %d jobs after overflow, got %d", jobs.DefaultRetention, len(all))
	}
	if _, ok := all[first.ID]; ok {
		t.Fatal("expected earliest job to be evicted")
	}
	if _, ok := all[second.ID]; !ok {
		t.Fatal("expected only the earliest job to be evicted")
	}
}

func TestActiveAndObserver(t *testing.T) {
	observer := &recordingObserver{}
	reg := newRegistry(t, jobs.WithObserver(observer))
	ctx := context.Background()

	a, _ := reg.Create(ctx, jobs.TypeGenerate)
	b, _ := reg.Create(ctx, jobs.TypeSeriesEpisode, jobs.WithSeries("abc12345", 2))
	c, _ := reg.Create(ctx, jobs.TypeChat)
	_ = reg.Update(ctx, b.ID, jobs.Running("Episode 2/3: Writing script..."))
	_ = reg.Update(ctx, c.ID, jobs.Done("Complete", nil))

	active := reg.Active(ctx)
	if len(active) != 2 || active[0].ID != a.ID || active[1].ID != b.ID {
		t.Fatalf("unexpected active jobs: %+v", active)
	}
	if active[1].SeriesID != "abc12345" || active[1].SeriesEp != 2 {
		t.Fatalf("series link lost: %+v", active[1])
	}
	if len(observer.seen) != 5 {
		t.Fatalf("expected 5 observed changes, got %d", len(observer.seen))
	}
	if last := observer.seen[len(observer.seen)-1]; last.Status != jobs.StatusDone {
		t.Fatalf("expected last observed status done, got %s", last.Status)
	}
}
