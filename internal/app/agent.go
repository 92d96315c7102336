package app

import (
	"context"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/callengine"
	"github.com/vovakirdan/wirechat-presence/internal/callengine/jitsi"
	"github.com/vovakirdan/wirechat-presence/internal/callengine/livekit"
	"github.com/vovakirdan/wirechat-presence/internal/client"
	"github.com/vovakirdan/wirechat-presence/internal/config"
	"github.com/vovakirdan/wirechat-presence/internal/core"
	"github.com/vovakirdan/wirechat-presence/internal/render"
	"github.com/vovakirdan/wirechat-presence/internal/transport/bridge"
)

// Agent runs the tracking core for embedding pages: it serves the page
// bridge and reports presence and activity to the capacity backend.
type Agent struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	teardownTimeout time.Duration
	tracking        bridge.Tracking
	log             *zerolog.Logger
}

// NewAgent wires the tracking core. When terminal is non-nil, accepted
// capacity readings are also drawn there.
func NewAgent(cfg config.Config, terminal io.Writer, logger *zerolog.Logger) *Agent {
	backend := client.NewHTTPClient(cfg.Agent.BackendURL, cfg.Agent.BackendToken, cfg.Agent.RequestTimeout)

	hub := bridge.NewHub(logger)
	renderers := render.Multi{hub}
	if terminal != nil {
		renderers = append(renderers, render.NewTerminal(terminal))
	}

	capacity := core.NewCapacityReconciler(renderers, logger)
	tracker := core.NewPresenceTracker(backend, capacity, logger)
	reporter := core.NewActivityReporter(backend, cfg.Agent.RequestTimeout, logger)
	guard := core.NewUnloadGuard(tracker, reporter, logger)
	tracking := bridge.Tracking{Capacity: capacity, Tracker: tracker, Reporter: reporter, Guard: guard}

	engine, webhook := newEngine(cfg.Engine, hub, logger)
	handler := bridge.NewHandler(hub, engine, tracking, bridge.Options{
		MaxMessageBytes: cfg.Agent.MaxMessageBytes,
		TeardownTimeout: cfg.Agent.TeardownTimeout,
		OriginPatterns:  cfg.Agent.OriginPatterns,
		StartAudioMuted: cfg.Engine.StartAudioMuted,
		StartVideoMuted: cfg.Engine.StartVideoMuted,
	}, logger)

	logger.Info().Str("engine", engine.Kind()).Str("backend", cfg.Agent.BackendURL).Msg("tracking agent configured")

	return &Agent{
		server:          bridge.NewServer(cfg.Agent.Addr, handler, webhook, cfg.Server.ReadHeaderTimeout),
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		teardownTimeout: cfg.Agent.TeardownTimeout,
		tracking:        tracking,
		log:             logger,
	}
}

// newEngine builds the configured engine. A LiveKit engine also gets a
// webhook receiver.
func newEngine(cfg config.EngineConfig, hub *bridge.Hub, logger *zerolog.Logger) (callengine.Engine, *bridge.WebhookHandler) {
	switch cfg.Kind {
	case config.EngineLiveKit:
		lk := livekit.New(cfg.LiveKitAPIKey, cfg.LiveKitAPISecret, cfg.LiveKitURL)
		if cfg.LiveKitAPIKey == "" || cfg.LiveKitAPISecret == "" {
			return lk, nil
		}
		return lk, bridge.NewWebhookHandler(hub, lk.KeyProvider(), logger)
	case config.EngineJitsi:
		return jitsi.New(jitsi.Config{
			Domain:    cfg.JitsiDomain,
			AppID:     cfg.JitsiAppID,
			AppSecret: cfg.JitsiAppSecret,
		}), nil
	default:
		return callengine.Unavailable{Reason: "unknown engine " + cfg.Kind}, nil
	}
}

// Run serves pages until ctx is done. On the way out every session still
// joined is left and pending activity records are flushed.
func (a *Agent) Run(ctx context.Context) error {
	a.log.Info().Str("addr", a.server.Addr).Msg("starting tracking agent")
	return serve(ctx, a.server, a.shutdownTimeout, a.log, nil, a.teardown)
}

func (a *Agent) teardown() {
	timeout := a.teardownTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.tracking.Guard.Teardown(ctx)
	if err := a.tracking.Reporter.Flush(ctx); err != nil {
		a.log.Warn().Err(err).Msg("activity flush incomplete")
	}
	a.log.Info().Msg("tracking agent stopped")
}
