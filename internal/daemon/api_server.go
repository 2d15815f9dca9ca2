package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"briefings/internal/config"
	"briefings/internal/logging"
	"briefings/internal/services"
)

const maxBodyBytes = 1 << 20

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	cfg     *config.Config
	handler http.Handler

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
		cfg:    cfg,
	}

	api := func(h http.HandlerFunc) http.HandlerFunc { return authMiddleware(cfg.Paths.APIToken, h) }
	cron := func(h http.HandlerFunc) http.HandlerFunc { return cronMiddleware(cfg.Paths.CronSecret, h) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", api(srv.handleStatus))
	mux.HandleFunc("GET /api/health", api(srv.handleHealth))
	mux.HandleFunc("GET /api/test/web-search", api(srv.handleWebSearchTest))
	mux.HandleFunc("POST /api/notifications/test", api(srv.handleTestNotification))

	mux.HandleFunc("POST /api/generate", api(srv.handleGenerate))
	mux.HandleFunc("POST /api/chat", api(srv.handleChat))
	mux.HandleFunc("POST /api/autoqueue", api(srv.handleAutoqueue))
	mux.HandleFunc("GET /api/job/{id}", api(srv.handleJob))
	mux.HandleFunc("GET /api/queue", api(srv.handleQueue))
	mux.HandleFunc("POST /api/queue/clear", api(srv.handleQueueClear))

	mux.HandleFunc("GET /api/series", api(srv.handleSeriesList))
	mux.HandleFunc("POST /api/series", api(srv.handleSeriesCreate))
	mux.HandleFunc("GET /api/series/{id}", api(srv.handleSeriesStatus))

	mux.HandleFunc("GET /api/topics", api(srv.handleTopics))
	mux.HandleFunc("GET /api/discover/suggestions", api(srv.handleSuggestions))
	mux.HandleFunc("GET /api/voices", api(srv.handleVoices))
	mux.HandleFunc("GET /api/episodes", api(srv.handleEpisodes))
	mux.HandleFunc("DELETE /api/episodes/{id}", api(srv.handleEpisodeDelete))
	mux.HandleFunc("POST /api/feed/rebuild", api(srv.handleFeedRebuild))
	mux.HandleFunc("GET /api/engagement", api(srv.handleEngagementSummary))
	mux.HandleFunc("POST /api/engagement", api(srv.handleEngagementLog))

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		mux.HandleFunc(method+" /api/cron/nightly-trailers", cron(srv.handleNightlyTrailers))
		mux.HandleFunc(method+" /api/cron/autoqueue", cron(srv.handleCronAutoqueue))
		mux.HandleFunc(method+" /api/cron/morning-prep", cron(srv.handleMorningPrep))
	}
	mux.HandleFunc("GET /api/cron/nightly-trailers/status", api(srv.handleNightlyStatus))

	mux.HandleFunc("GET /feed.xml", srv.handleFeed)
	mux.Handle("GET /episodes/", http.StripPrefix("/episodes/", http.FileServer(http.Dir(cfg.EpisodesDir()))))

	srv.handler = requestIDMiddleware(srv.logger, mux)
	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		s.logger.Info("api server disabled: empty api_bind")
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// decodeBody reads an optional JSON object. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return services.Wrap(services.ErrValidation, "api", "decode", "unreadable request body", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return services.Wrap(services.ErrValidation, "api", "decode", "invalid JSON body", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, status, payload, s.logger)
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeFailure reports err as {"success": false, "error": ...} with the
// status its marker maps to.
func (s *apiServer) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.WithContext(r.Context(), s.logger).Error("request failed",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Error(err))
	}
	s.writeJSON(w, status, map[string]any{"success": false, "error": services.Message(err)})
}

func queryFlag(r *http.Request, name string) bool {
	return strings.EqualFold(strings.TrimSpace(r.URL.Query().Get(name)), "true")
}
