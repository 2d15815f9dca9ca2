// Package episodes owns the published-episode collection.
package episodes

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"briefings/internal/docstore"
	"briefings/internal/logging"
	"briefings/internal/services"
)

const documentName = "episodes"

// Episode is one published audio file.
type Episode struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	File        string    `json:"file"`
	FileSize    int64     `json:"file_size"`
	Depth       string    `json:"depth"`
	IsTrailer   bool      `json:"is_trailer"`
	Sources     []string  `json:"sources"`
	Published   time.Time `json:"published"`
	SeriesID    string    `json:"series_id,omitempty"`
	SeriesEp    int       `json:"series_ep,omitempty"`
}

// Publisher renders the feed for the current collection.
type Publisher interface {
	Rebuild(ctx context.Context, episodes []Episode) error
}

// FileRemover deletes the audio files belonging to an episode.
type FileRemover interface {
	Remove(id string) error
}

// Listing is the collection with its split counts.
type Listing struct {
	Episodes     []Episode `json:"episodes"`
	FullCount    int       `json:"full_count"`
	TrailerCount int       `json:"trailer_count"`
}

// Store appends, lists and deletes episodes. Every mutation republishes the
// feed; publish failures are logged and never fail the mutation.
type Store struct {
	doc       *docstore.Document[[]Episode]
	publishMu sync.Mutex
	publisher Publisher
	files     FileRemover
	logger    *slog.Logger
}

// NewStore builds the store. publisher and files may be nil.
func NewStore(store *docstore.Store, publisher Publisher, files FileRemover, logger *slog.Logger) *Store {
	return &Store{
		doc:       docstore.NewDocument(store, documentName, func() []Episode { return []Episode{} }),
		publisher: publisher,
		files:     files,
		logger:    logging.NewComponentLogger(logger, "episodes"),
	}
}

// Add appends ep and republishes the feed.
func (s *Store) Add(ctx context.Context, ep Episode) error {
	if ep.Sources == nil {
		ep.Sources = []string{}
	}
	err := s.doc.Update(ctx, func(list *[]Episode) error {
		*list = append(*list, ep)
		return nil
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, "episodes", "add", "persist episode", err)
	}
	s.logger.Info("episode saved",
		logging.String(logging.FieldEpisodeID, ep.ID),
		logging.String("title", ep.Title),
		logging.Bool("trailer", ep.IsTrailer),
	)
	s.publish(ctx)
	return nil
}

// List returns episodes in the order they were added.
func (s *Store) List(ctx context.Context) []Episode {
	return s.doc.Load(ctx)
}

// Listing returns the collection with full and trailer counts.
func (s *Store) Listing(ctx context.Context) Listing {
	list := s.List(ctx)
	out := Listing{Episodes: list}
	for _, ep := range list {
		if ep.IsTrailer {
			out.TrailerCount++
		} else {
			out.FullCount++
		}
	}
	return out
}

// Get looks up one episode.
func (s *Store) Get(ctx context.Context, id string) (Episode, bool) {
	for _, ep := range s.List(ctx) {
		if ep.ID == id {
			return ep, true
		}
	}
	return Episode{}, false
}

// RecentTitles returns the titles of the last n full episodes.
func (s *Store) RecentTitles(ctx context.Context, n int) []string {
	titles := make([]string, 0)
	for _, ep := range s.List(ctx) {
		if !ep.IsTrailer {
			titles = append(titles, ep.Title)
		}
	}
	if n > 0 && len(titles) > n {
		titles = titles[len(titles)-n:]
	}
	return titles
}

// Delete removes the episode record, its audio and its segment directory,
// then republishes the feed. An unknown id returns services.ErrNotFound and
// changes nothing.
func (s *Store) Delete(ctx context.Context, id string) (Episode, error) {
	var removed Episode
	found := false
	err := s.doc.Update(ctx, func(list *[]Episode) error {
		kept := (*list)[:0]
		for _, ep := range *list {
			if ep.ID == id && !found {
				removed = ep
				found = true
				continue
			}
			kept = append(kept, ep)
		}
		if !found {
			return services.Wrap(services.ErrNotFound, "episodes", "delete", "Episode not found", nil)
		}
		*list = kept
		return nil
	})
	if err != nil {
		return Episode{}, err
	}

	if s.files != nil {
		if err := s.files.Remove(id); err != nil {
			logging.WarnWithContext(s.logger, "episode files not fully removed", "episodes.remove_files",
				logging.String(logging.FieldEpisodeID, id),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the leftover files under the episodes directory"),
				logging.String(logging.FieldImpact, "orphaned audio remains on disk"),
			)
		}
	}
	s.logger.Info("episode deleted", logging.String(logging.FieldEpisodeID, id))
	s.publish(ctx)
	return removed, nil
}

// Rebuild republishes the feed from the stored collection. The list is read
// under the publish lock so the last rebuild always sees every finished
// mutation.
func (s *Store) Rebuild(ctx context.Context) error {
	if s.publisher == nil {
		return nil
	}
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	return s.publisher.Rebuild(ctx, s.List(ctx))
}

func (s *Store) publish(ctx context.Context) {
	if err := s.Rebuild(ctx); err != nil {
		logging.WarnWithContext(s.logger, "feed rebuild failed", "feed.rebuild_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the next mutation or an explicit rebuild retries"),
			logging.String(logging.FieldImpact, "feed readers see the previous episode list"),
		)
	}
}
