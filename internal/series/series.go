// Package series coordinates multi-episode arcs.
//
// A series is outlined once, then its episodes are produced strictly in
// order by a single task. A failed or panicking episode marks only its own job; the
// series finishes done with the episodes that succeeded counted in
// completed. Only a failure outside the per-episode loop (outlining, job
// creation, persistence) ends the series in error.
package series

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"briefings/internal/docstore"
	"briefings/internal/editorial"
	"briefings/internal/episodes"
	"briefings/internal/jobs"
	"briefings/internal/logging"
	"briefings/internal/pipeline"
	"briefings/internal/services"
)

const (
	documentName = "series"

	// DefaultEpisodes is used when a request omits the episode count.
	DefaultEpisodes = 6
)

// Status is the series lifecycle state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusOutlining Status = "outlining"
	StatusProducing Status = "producing"
	StatusDone      Status = "done"
	StatusError     Status = "error"
)

// Series is one multi-episode arc.
type Series struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	NumEpisodes int               `json:"num_episodes"`
	Status      Status            `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	Episodes    []editorial.Topic `json:"episodes"`
	JobIDs      []string          `json:"job_ids"`
	Completed   int               `json:"completed"`
	Total       int               `json:"total"`
	Error       string            `json:"error,omitempty"`
}

// EpisodeStatus is one row of the status view.
type EpisodeStatus struct {
	Episode  int    `json:"episode"`
	Title    string `json:"title"`
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Progress string `json:"progress"`
}

// View is a series annotated with its episode jobs' current state.
type View struct {
	Series
	JobStatuses []EpisodeStatus `json:"job_statuses,omitempty"`
}

// Outliner designs the episode arc.
type Outliner interface {
	Outline(ctx context.Context, seed editorial.Seed, episodes int) ([]editorial.Topic, error)
}

// EpisodeProducer produces one series episode and records its job state.
type EpisodeProducer interface {
	SeriesEpisode(ctx context.Context, jobID string, req pipeline.SeriesEpisodeRequest) (episodes.Episode, error)
}

// JobStore creates, reads and fails episode jobs.
type JobStore interface {
	Create(ctx context.Context, jobType jobs.Type, opts ...jobs.CreateOption) (jobs.Job, error)
	Get(ctx context.Context, id string) (jobs.Job, bool)
	Update(ctx context.Context, id string, change jobs.JobUpdate) error
}

// Observer hears about series that reached a terminal status.
type Observer interface {
	SeriesFinished(ctx context.Context, s Series)
}

// Coordinator owns the series collection.
type Coordinator struct {
	doc      *docstore.Document[[]Series]
	jobs     JobStore
	outliner Outliner
	producer EpisodeProducer
	observer Observer
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithObserver registers o for terminal series notifications.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		c.observer = o
	}
}

// NewCoordinator builds a coordinator.
func NewCoordinator(store *docstore.Store, jobStore JobStore, outliner Outliner, producer EpisodeProducer, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		doc:      docstore.NewDocument(store, documentName, func() []Series { return []Series{} }),
		jobs:     jobStore,
		outliner: outliner,
		producer: producer,
		now:      time.Now,
		logger:   logging.NewComponentLogger(logger, "series"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create persists a queued series for seed. Production starts with Run.
func (c *Coordinator) Create(ctx context.Context, seed editorial.Seed, numEpisodes int) (Series, error) {
	if seed.Topic == nil && seed.Prompt == "" {
		return Series{}, services.Wrap(services.ErrValidation, "series", "create", "topic or topic_data required", nil)
	}
	if numEpisodes <= 0 {
		numEpisodes = DefaultEpisodes
	}
	entry := Series{
		ID:          uuid.NewString()[:8],
		Title:       seed.Title(),
		NumEpisodes: numEpisodes,
		Status:      StatusQueued,
		CreatedAt:   c.now().UTC(),
		Episodes:    []editorial.Topic{},
		JobIDs:      []string{},
		Total:       numEpisodes,
	}
	if err := c.doc.Update(ctx, func(list *[]Series) error {
		*list = append(*list, entry)
		return nil
	}); err != nil {
		return Series{}, services.Wrap(services.ErrTransient, "series", "create", "persist series", err)
	}
	c.logger.Info("series created",
		logging.String(logging.FieldSeriesID, entry.ID),
		logging.String("title", entry.Title),
		logging.Int("episodes", numEpisodes),
	)
	return entry, nil
}

// Run outlines and produces series id. It is the body of the background
// task and returns the error that ended the series, if any.
func (c *Coordinator) Run(ctx context.Context, id string, seed editorial.Seed, voiceA, voiceB string) error {
	ctx = services.WithSeriesID(ctx, id)
	logger := logging.WithContext(ctx, c.logger)

	err := c.guardedRun(ctx, logger, id, seed, voiceA, voiceB)
	if err != nil {
		logging.ErrorWithContext(logger, "series failed", "series.failed", logging.Error(err))
		c.Fail(ctx, id, err)
	}
	if s, ok := c.Get(ctx, id); ok && c.observer != nil {
		c.observer.SeriesFinished(ctx, s)
	}
	return err
}

// Fail records err on series id unless it already finished.
func (c *Coordinator) Fail(ctx context.Context, id string, err error) {
	if err == nil {
		return
	}
	if uerr := c.update(ctx, id, func(s *Series) {
		if s.Status == StatusDone || s.Status == StatusError {
			return
		}
		s.Status = StatusError
		s.Error = err.Error()
	}); uerr != nil {
		logging.WithContext(ctx, c.logger).Error("series error not persisted", logging.Error(uerr))
	}
}

// guardedRun turns a panic outside the episode loop into the series error.
func (c *Coordinator) guardedRun(ctx context.Context, logger *slog.Logger, id string, seed editorial.Seed, voiceA, voiceB string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("series %s panicked: %v", id, r)
		}
	}()
	return c.run(ctx, logger, id, seed, voiceA, voiceB)
}

// produceEpisode runs one episode. A panic fails only that episode's job.
func (c *Coordinator) produceEpisode(ctx context.Context, jobID string, req pipeline.SeriesEpisodeRequest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("episode %d panicked: %v", req.Number, r)
			if uerr := c.jobs.Update(ctx, jobID, jobs.Failed(err.Error())); uerr != nil {
				logging.WithContext(ctx, c.logger).Error("episode error not persisted",
					logging.String(logging.FieldJobID, jobID),
					logging.Error(uerr))
			}
		}
	}()
	_, err = c.producer.SeriesEpisode(ctx, jobID, req)
	return err
}

func (c *Coordinator) run(ctx context.Context, logger *slog.Logger, id string, seed editorial.Seed, voiceA, voiceB string) error {
	entry, ok := c.Get(ctx, id)
	if !ok {
		return services.Wrap(services.ErrNotFound, "series", "run", "Series not found", nil)
	}
	if err := c.update(ctx, id, func(s *Series) { s.Status = StatusOutlining }); err != nil {
		return err
	}

	outline, err := c.outliner.Outline(ctx, seed, entry.NumEpisodes)
	if err != nil {
		return err
	}

	jobIDs := make([]string, 0, len(outline))
	for i, topic := range outline {
		number := topic.EpisodeNumber
		if number <= 0 {
			number = i + 1
		}
		job, err := c.jobs.Create(ctx, jobs.TypeSeriesEpisode, jobs.WithSeries(id, number))
		if err != nil {
			return err
		}
		jobIDs = append(jobIDs, job.ID)
	}
	if err := c.update(ctx, id, func(s *Series) {
		s.Episodes = outline
		s.JobIDs = jobIDs
		s.Status = StatusProducing
		s.Total = len(outline)
		s.Completed = 0
	}); err != nil {
		return err
	}
	logger.Info("series producing", logging.Int("episodes", len(outline)))

	for i, topic := range outline {
		err := c.produceEpisode(ctx, jobIDs[i], pipeline.SeriesEpisodeRequest{
			SeriesID:    id,
			SeriesTitle: entry.Title,
			Number:      i + 1,
			Total:       len(outline),
			Topic:       topic,
			VoiceA:      voiceA,
			VoiceB:      voiceB,
		})
		if err != nil {
			logging.WarnWithContext(logger, "series episode failed; continuing", "series.episode_failed",
				logging.Int("episode", i+1),
				logging.String(logging.FieldJobID, jobIDs[i]),
				logging.Error(err),
				logging.String(logging.FieldImpact, "series finishes without this episode"),
			)
			continue
		}
		if err := c.update(ctx, id, func(s *Series) { s.Completed++ }); err != nil {
			return err
		}
	}

	if err := c.update(ctx, id, func(s *Series) { s.Status = StatusDone }); err != nil {
		return err
	}
	logger.Info("series finished")
	return nil
}

// List returns every series in creation order.
func (c *Coordinator) List(ctx context.Context) []Series {
	return c.doc.Load(ctx)
}

// Titles lists series titles.
func (c *Coordinator) Titles(ctx context.Context) []string {
	list := c.List(ctx)
	titles := make([]string, 0, len(list))
	for _, s := range list {
		titles = append(titles, s.Title)
	}
	return titles
}

// Get returns one series.
func (c *Coordinator) Get(ctx context.Context, id string) (Series, bool) {
	for _, s := range c.List(ctx) {
		if s.ID == id {
			return s, true
		}
	}
	return Series{}, false
}

// Status returns the series annotated with each episode job's state. Jobs
// evicted from the registry show as unknown.
func (c *Coordinator) Status(ctx context.Context, id string) (View, bool) {
	s, ok := c.Get(ctx, id)
	if !ok {
		return View{}, false
	}
	view := View{Series: s}
	for i, jobID := range s.JobIDs {
		row := EpisodeStatus{Episode: i + 1, JobID: jobID, Status: "unknown"}
		if i < len(s.Episodes) {
			row.Title = s.Episodes[i].Title
		} else {
			row.Title = fmt.Sprintf("Episode %d", i+1)
		}
		if job, ok := c.jobs.Get(ctx, jobID); ok {
			row.Status = string(job.Status)
			row.Progress = job.Progress
		}
		view.JobStatuses = append(view.JobStatuses, row)
	}
	return view, true
}

var errMissing = errors.New("series record missing")

func (c *Coordinator) update(ctx context.Context, id string, fn func(*Series)) error {
	return c.doc.Update(ctx, func(list *[]Series) error {
		for i := range *list {
			if (*list)[i].ID == id {
				fn(&(*list)[i])
				return nil
			}
		}
		return errMissing
	})
}
