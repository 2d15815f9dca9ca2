package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"briefings/internal/docstore"
	"briefings/internal/logging"
)

// DefaultRetention is the number of job records kept.
const DefaultRetention = 200

const documentName = "jobs"

// Observer is told about every persisted job change.
type Observer interface {
	JobChanged(ctx context.Context, job Job)
}

// Registry persists jobs in a single document.
type Registry struct {
	doc       *docstore.Document[map[string]Job]
	retention int
	logger    *slog.Logger
	observers []Observer
	now       func() time.Time
}

// Option customizes a Registry.
type Option func(*Registry)

// WithRetention overrides DefaultRetention.
func WithRetention(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.retention = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithObserver registers an observer for job changes.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// NewRegistry binds a registry to store.
func NewRegistry(store *docstore.Store, logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		doc: docstore.NewDocument(store, documentName, func() map[string]Job {
			return map[string]Job{}
		}),
		retention: DefaultRetention,
		logger:    logging.NewComponentLogger(logger, "jobs"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create persists a queued job and returns it.
func (r *Registry) Create(ctx context.Context, jobType Type, opts ...CreateOption) (Job, error) {
	var created Job
	err := r.doc.Update(ctx, func(all *map[string]Job) error {
		ensureMap(all)
		now := r.now().UTC()
		created = Job{
			ID:        newID(*all),
			Type:      jobType,
			Status:    StatusQueued,
			Progress:  "Queued...",
			CreatedAt: now,
			UpdatedAt: now,
		}
		for _, opt := range opts {
			opt(&created)
		}
		(*all)[created.ID] = created
		r.evict(*all)
		return nil
	})
	if err != nil {
		return Job{}, fmt.Errorf("create job: %w", err)
	}
	r.logger.Info("job created",
		logging.String(logging.FieldJobID, created.ID),
		logging.String("job_type", string(created.Type)),
		logging.String(logging.FieldEventType, "job_created"))
	r.notify(ctx, created)
	return created, nil
}

// Update merges change into the job with id. An unknown id is ignored. A
// status change out of a terminal status, or backwards, is dropped while the
// other fields still apply.
func (r *Registry) Update(ctx context.Context, id string, change JobUpdate) error {
	var (
		updated  Job
		found    bool
		result   json.RawMessage
		hasValue = change.Result != nil
	)
	if hasValue {
		encoded, err := encodeResult(change.Result)
		if err != nil {
			return fmt.Errorf("encode job result: %w", err)
		}
		result = encoded
	}

	err := r.doc.Update(ctx, func(all *map[string]Job) error {
		ensureMap(all)
		job, ok := (*all)[id]
		if !ok {
			return nil
		}
		found = true
		if change.Status != nil && *change.Status != job.Status {
			if job.Status.CanTransition(*change.Status) {
				job.Status = *change.Status
			} else {
				r.logger.Debug("dropped status change",
					logging.String(logging.FieldJobID, id),
					logging.String("from", string(job.Status)),
					logging.String("to", string(*change.Status)))
			}
		}
		if change.Progress != nil {
			job.Progress = *change.Progress
		}
		if hasValue {
			job.Result = result
		}
		if change.Error != nil {
			job.Error = *change.Error
		}
		job.UpdatedAt = r.now().UTC()
		(*all)[id] = job
		updated = job
		r.evict(*all)
		return nil
	})
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if found {
		r.notify(ctx, updated)
	}
	return nil
}

// Get returns the job with id.
func (r *Registry) Get(ctx context.Context, id string) (Job, bool) {
	job, ok := r.doc.Load(ctx)[strings.TrimSpace(id)]
	return job, ok
}

// List returns every retained job keyed by id.
func (r *Registry) List(ctx context.Context) map[string]Job {
	all := r.doc.Load(ctx)
	if all == nil {
		return map[string]Job{}
	}
	return all
}

// Sorted returns every retained job, newest first.
func (r *Registry) Sorted(ctx context.Context) []Job {
	out := make([]Job, 0)
	for _, job := range r.List(ctx) {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Active returns queued and running jobs, oldest first.
func (r *Registry) Active(ctx context.Context) []Job {
	out := make([]Job, 0)
	for _, job := range r.List(ctx) {
		if job.Active() {
			out = append(out, job)
		}
	}
	sortOldestFirst(out)
	return out
}

// RecentErrors returns up to limit error jobs, newest first.
func (r *Registry) RecentErrors(ctx context.Context, limit int) []Job {
	out := make([]Job, 0)
	for _, job := range r.Sorted(ctx) {
		if job.Status != StatusError {
			continue
		}
		out = append(out, job)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// ClearPendingAndFailed removes queued and error jobs and reports how many
// were removed. Running and done jobs are kept.
func (r *Registry) ClearPendingAndFailed(ctx context.Context) (int, error) {
	removed := 0
	err := r.doc.Update(ctx, func(all *map[string]Job) error {
		ensureMap(all)
		for id, job := range *all {
			if job.Status == StatusQueued || job.Status == StatusError {
				delete(*all, id)
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	r.logger.Info("cleared pending and failed jobs",
		logging.Int("removed", removed),
		logging.String(logging.FieldEventType, "jobs_cleared"))
	return removed, nil
}

func (r *Registry) evict(all map[string]Job) {
	if len(all) <= r.retention {
		return
	}
	ordered := make([]Job, 0, len(all))
	for _, job := range all {
		ordered = append(ordered, job)
	}
	sortOldestFirst(ordered)
	excess := len(all) - r.retention
	for _, job := range ordered[:excess] {
		delete(all, job.ID)
	}
}

func (r *Registry) notify(ctx context.Context, job Job) {
	for _, o := range r.observers {
		o.JobChanged(ctx, job)
	}
}

func sortOldestFirst(list []Job) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}

func ensureMap(all *map[string]Job) {
	if *all == nil {
		*all = map[string]Job{}
	}
}

func newID(existing map[string]Job) string {
	for {
		id := uuid.NewString()[:8]
		if _, taken := existing[id]; !taken {
			return id
		}
	}
}

func encodeResult(v any) (json.RawMessage, error) {
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}
