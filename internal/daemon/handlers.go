package daemon

import (
	"errors"
	"net/http"
	"os"

	"briefings/internal/editorial"
	"briefings/internal/engagement"
	"briefings/internal/logging"
	"briefings/internal/services"
	"briefings/internal/workflow"
)

type voicePair struct {
	VoiceAlex   string `json:"voice_alex"`
	VoiceMorgan string `json:"voice_morgan"`
}

type generateRequest struct {
	voicePair
	TopicData       *editorial.Topic `json:"topic_data"`
	Topic           string           `json:"topic"`
	Depth           string           `json:"depth"`
	Trailer         bool             `json:"trailer"`
	ProductionBrief string           `json:"production_brief"`
	TrailerHook     string           `json:"trailer_hook"`
}

type chatRequest struct {
	voicePair
	Message        string            `json:"message"`
	ExistingTopics []editorial.Topic `json:"existing_topics"`
}

type seriesRequest struct {
	voicePair
	TopicData   *editorial.Topic `json:"topic_data"`
	Topic       string           `json:"topic"`
	NumEpisodes int              `json:"num_episodes"`
}

type engagementRequest struct {
	EventType  string   `json:"event_type"`
	TopicTitle string   `json:"topic_title"`
	EpisodeID  string   `json:"episode_id"`
	Pct        *float64 `json:"pct"`
}

func queuedResponse(jobID string) map[string]any {
	return map[string]any{"success": true, "job_id": jobID, "status": "queued"}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.workflow.Health(r.Context()))
}

func (s *apiServer) handleWebSearchTest(w http.ResponseWriter, r *http.Request) {
	result := s.daemon.workflow.WebSearchTest(r.Context())
	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	s.writeJSON(w, status, result)
}

func (s *apiServer) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	sent, message, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusBadGateway, map[string]any{"success": false, "error": message + ": " + err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": sent, "message": message})
}

func (s *apiServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	job, err := s.daemon.workflow.SubmitGenerate(r.Context(), workflow.GenerateInput{
		Topic:   req.TopicData,
		Title:   req.Topic,
		Hook:    req.TrailerHook,
		Depth:   req.Depth,
		VoiceA:  req.VoiceAlex,
		VoiceB:  req.VoiceMorgan,
		Trailer: req.Trailer,
		Brief:   req.ProductionBrief,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, queuedResponse(job.ID))
}

func (s *apiServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	job, err := s.daemon.workflow.SubmitChat(r.Context(), workflow.ChatInput{
		Message:  req.Message,
		Existing: req.ExistingTopics,
		VoiceA:   req.VoiceAlex,
		VoiceB:   req.VoiceMorgan,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, queuedResponse(job.ID))
}

func (s *apiServer) handleAutoqueue(w http.ResponseWriter, r *http.Request) {
	var req voicePair
	if err := decodeBody(r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	job, ok, err := s.daemon.workflow.Autoqueue(r.Context(), req.VoiceAlex, req.VoiceMorgan)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if !ok {
		s.writeJSON(w, http.StatusBadGateway, map[string]any{
			"success": false,
			"error":   "Auto-queue failed - check AR dashboard connectivity",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "job_id": job.ID})
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.daemon.workflow.Job(r.Context(), r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *apiServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.workflow.Queue(r.Context()))
}

func (s *apiServer) handleQueueClear(w http.ResponseWriter, r *http.Request) {
	cleared, err := s.daemon.workflow.ClearQueue(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "cleared": cleared})
}

func (s *apiServer) handleSeriesList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"series": s.daemon.workflow.SeriesList(r.Context())})
}

func (s *apiServer) handleSeriesCreate(w http.ResponseWriter, r *http.Request) {
	var req seriesRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	created, err := s.daemon.workflow.SubmitSeries(r.Context(), workflow.SeriesInput{
		Topic:       req.TopicData,
		Prompt:      req.Topic,
		NumEpisodes: req.NumEpisodes,
		VoiceA:      req.VoiceAlex,
		VoiceB:      req.VoiceMorgan,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "series_id": created.ID, "title": created.Title})
}

func (s *apiServer) handleSeriesStatus(w http.ResponseWriter, r *http.Request) {
	view, ok := s.daemon.workflow.SeriesStatus(r.Context(), r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "Series not found")
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleTopics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.workflow.Topics(r.Context(), queryFlag(r, "refresh")))
}

func (s *apiServer) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	items, cached, err := s.daemon.workflow.Suggestions(r.Context(), queryFlag(r, "refresh"))
	if err != nil {
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "suggestions failed", "suggestions_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the generation service key and quota"),
			logging.String(logging.FieldImpact, "discover view shows no suggestions"))
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"suggestions": []editorial.Topic{},
			"error":       services.Message(err),
			"cached":      false,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"suggestions": items, "cached": cached})
}

func (s *apiServer) handleVoices(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.HasSpeechKey() || s.daemon.voices == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"error": "No API key", "voices": []any{}})
		return
	}
	voices, err := s.daemon.voices.Voices(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"error": err.Error(), "voices": []any{}})
		return
	}
	for i := range voices {
		if voices[i].Category == "" {
			voices[i].Category = "custom"
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"voices": voices})
}

func (s *apiServer) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.workflow.Episodes(r.Context()))
}

func (s *apiServer) handleEpisodeDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	removed, err := s.daemon.workflow.DeleteEpisode(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": id, "title": removed.Title})
}

func (s *apiServer) handleFeedRebuild(w http.ResponseWriter, r *http.Request) {
	count, err := s.daemon.workflow.RebuildFeed(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "episodes_in_feed": count})
}

func (s *apiServer) handleEngagementSummary(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.workflow.EngagementSummary(r.Context()))
}

func (s *apiServer) handleEngagementLog(w http.ResponseWriter, r *http.Request) {
	var req engagementRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	err := s.daemon.workflow.RecordEngagement(r.Context(), engagement.Event{
		EventType:  req.EventType,
		TopicTitle: req.TopicTitle,
		EpisodeID:  req.EpisodeID,
		Pct:        req.Pct,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleFeed rebuilds the feed before serving it so a missed rebuild heals
// on the next read.
func (s *apiServer) handleFeed(w http.ResponseWriter, r *http.Request) {
	if _, err := s.daemon.workflow.RebuildFeed(r.Context()); err != nil {
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "feed rebuild failed", "feed_rebuild_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check data directory permissions"),
			logging.String(logging.FieldImpact, "the previously rendered feed is served"))
	}
	path := s.cfg.FeedPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		http.Error(w, "No episodes yet.", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml")
	http.ServeFile(w, r, path)
}
