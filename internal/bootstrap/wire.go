package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"timescribe/internal/api"
	"timescribe/internal/audio"
	"timescribe/internal/config"
	"timescribe/internal/journal"
	"timescribe/internal/metrics"
	"timescribe/internal/ports"
	"timescribe/internal/rules"
	"timescribe/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Conversation *usecase.Conversation
	Controller   *usecase.SessionController
	Config       config.Config
	Metrics      *metrics.Metrics
	// Journal is nil when no journal path is configured.
	Journal *journal.Store

	metricsServer *metrics.Server
}

// BuildWithConfig wires all backend dependencies for a loaded configuration.
// logger may be nil.
func BuildWithConfig(cfg config.Config, view ports.View, logger *slog.Logger) (Services, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	rulesEngine, err := rules.Load(cfg.Rules.Path, cfg.Rules.IterationLimit)
	if err != nil {
		return Services{}, err
	}

	m := metrics.New()
	client, err := api.NewClient(api.Config{
		BaseURL: cfg.Server.URL,
		Timeout: cfg.Server.Timeout(),
	}, m)
	if err != nil {
		return Services{}, err
	}

	services := Services{Config: cfg, Metrics: m}

	var journalPort ports.Journal
	if cfg.Journal.Path != "" {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return Services{}, fmt.Errorf("open journal: %w", err)
		}
		services.Journal = store
		journalPort = store
	}

	services.Conversation = usecase.NewConversation(
		client,
		client,
		audio.NewFFPlayPlayer(cfg.Audio.PlayerCommand, logger),
		view,
		journalPort,
		logger.With(slog.String("component", "conversation")),
	)

	services.Controller = usecase.NewSessionController(
		audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand),
		client,
		rulesEngine,
		services.Conversation,
		view,
		m,
		logger.With(slog.String("component", "capture")),
		usecase.Config{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			ChunkSize: cfg.Audio.ChunkSize,
		},
	)

	if cfg.Metrics.Addr != "" {
		services.metricsServer = metrics.NewServer(cfg.Metrics.Addr, m, logger)
		services.metricsServer.Start()
	}

	logger.Info("services ready",
		slog.String("server_url", cfg.Server.URL),
		slog.Duration("http_timeout", cfg.Server.Timeout()),
		slog.String("audio_input", cfg.Audio.InputDevice),
		slog.Int("rules", rulesEngine.Len()),
		slog.Bool("journal", services.Journal != nil),
		slog.String("metrics_addr", cfg.Metrics.Addr),
	)

	return services, nil
}

// Close stops the metrics listener and closes the journal.
func (s Services) Close() error {
	var errs []error
	if s.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		errs = append(errs, s.metricsServer.Stop(ctx))
	}
	if s.Journal != nil {
		errs = append(errs, s.Journal.Close())
	}
	return errors.Join(errs...)
}
