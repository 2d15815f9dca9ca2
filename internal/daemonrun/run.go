// Package daemonrun assembles the briefings runtime: storage, service
// clients, the job pipeline and the HTTP daemon.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"briefings/internal/audio"
	"briefings/internal/bus"
	"briefings/internal/config"
	"briefings/internal/daemon"
	"briefings/internal/docstore"
	"briefings/internal/editorial"
	"briefings/internal/engagement"
	"briefings/internal/episodes"
	"briefings/internal/feed"
	"briefings/internal/jobs"
	"briefings/internal/ledger"
	"briefings/internal/logging"
	"briefings/internal/notifications"
	"briefings/internal/pipeline"
	"briefings/internal/preflight"
	"briefings/internal/script"
	"briefings/internal/series"
	"briefings/internal/services/intel"
	"briefings/internal/services/llm"
	"briefings/internal/services/tts"
	"briefings/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the briefings daemon and blocks until the context is cancelled
// or the process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	sessionID := uuid.NewString()
	logger, err := newLogger(cfg, opts, sessionID)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logPreflight(signalCtx, logger, cfg)

	store, err := docstore.Open(cfg, logger)
	if err != nil {
		logger.Error("open document store", logging.Error(err))
		return err
	}
	defer store.Close()

	rt, err := assemble(cfg, store, logger)
	if err != nil {
		return err
	}
	defer rt.close()

	d, err := daemon.New(cfg, logger, rt.manager,
		daemon.WithVoices(rt.speech),
		daemon.WithNotifier(rt.notifier),
	)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "another briefingsd may hold the lock, or the API port is taken"),
		)
		return err
	}
	logger.Info("briefings daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.String("storage_backend", cfg.Storage.Backend),
		logging.Bool("events_enabled", rt.events != nil),
	)

	<-signalCtx.Done()
	logger.Info("briefings daemon shutting down")
	return nil
}

type runtime struct {
	manager  *workflow.Manager
	speech   *tts.Client
	notifier notifications.Service
	events   *bus.Client
}

func (r *runtime) close() {
	if r.events != nil {
		r.events.Close()
	}
}

// assemble wires every collaborator on top of an open store.
func assemble(cfg *config.Config, store *docstore.Store, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{}

	generation := llm.NewClient(llm.Config{
		APIKey:               cfg.Generation.APIKey,
		BaseURL:              cfg.Generation.BaseURL,
		Model:                cfg.Generation.Model,
		TimeoutSeconds:       cfg.Generation.TimeoutSeconds,
		SearchTimeoutSeconds: cfg.Generation.SearchTimeoutSeconds,
	}, llm.WithRetryMaxAttempts(cfg.Generation.RetryMaxAttempts))
	rt.speech = tts.NewConfiguredClient(cfg)

	writer := editorial.NewGenerator(generation, intel.NewFetcher(cfg, logger), logger)
	synth := script.NewSynthesizer(generation, logger)
	renderer := audio.NewRenderer(rt.speech, cfg.EpisodesDir(), logger)

	episodeStore := episodes.NewStore(store, feed.NewPublisher(cfg, logger), renderer, logger)
	weekly := ledger.New(store, cfg.Workflow.WeeklyCap, logger)

	rt.notifier = notifications.NewService(cfg)
	notify := notifications.NewObserver(rt.notifier, notifications.TogglesFromConfig(cfg), logger)

	registryOpts := []jobs.Option{
		jobs.WithRetention(cfg.Workflow.JobRetention),
		jobs.WithObserver(notify),
	}
	if cfg.Events.NATSURL != "" {
		client, err := bus.Connect(cfg.Events.NATSURL)
		if err != nil {
			logging.WarnWithContext(logger, "event bus unavailable; continuing without events",
				"event_bus_unavailable",
				logging.Error(err),
				logging.String("nats_url", cfg.Events.NATSURL),
				logging.String(logging.FieldImpact, "job events will not be published"),
			)
		} else {
			rt.events = client
			registryOpts = append(registryOpts,
				jobs.WithObserver(bus.NewEvents(client, cfg.Events.SubjectPrefix, logger)))
		}
	}
	registry := jobs.NewRegistry(store, logger, registryOpts...)

	producer, err := pipeline.NewProducer(pipeline.Deps{
		Jobs:     registry,
		Scripts:  synth,
		Topics:   writer,
		Voices:   rt.speech,
		Audio:    renderer,
		Episodes: episodeStore,
		Ledger:   weekly,
		Logger:   logger,
	})
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("create producer: %w", err)
	}

	coordinator := series.NewCoordinator(store, registry, writer, producer, logger,
		series.WithObserver(notify))

	manager, err := workflow.NewManager(workflow.Deps{
		Config:     cfg,
		Store:      store,
		Jobs:       registry,
		Series:     coordinator,
		Episodes:   episodeStore,
		Ledger:     weekly,
		Engagement: engagement.NewLog(store, logger),
		Producer:   producer,
		Editorial:  writer,
		Speech:     rt.speech,
		Search:     generation,
		Logger:     logger,
	})
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("create workflow manager: %w", err)
	}
	rt.manager = manager
	return rt, nil
}

func newLogger(cfg *config.Config, opts Options, sessionID string) (*slog.Logger, error) {
	if opts.LogLevel == "" && !opts.Development {
		return logging.NewFromConfig(cfg, sessionID)
	}
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	return logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		FilePath:    LogPath(cfg),
		SessionID:   sessionID,
		Development: opts.Development,
	})
}

// LogPath is the JSON log written alongside console output.
func LogPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "briefings.log")
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	results := preflight.RunAll(ctx, cfg)
	for _, r := range preflight.Failed(results) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "run `briefings doctor` for details"),
		)
	}
	logger.Info("preflight complete",
		logging.String(logging.FieldEventType, "preflight_complete"),
		logging.Int("checks", len(results)),
		logging.Int("failed", len(preflight.Failed(results))),
		logging.Bool("generation_key_present", cfg.HasGenerationKey()),
		logging.Bool("speech_key_present", cfg.HasSpeechKey()),
	)
}
