// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/veilcrawl/veil/internal/challenge"
	"github.com/veilcrawl/veil/internal/config"
	"github.com/veilcrawl/veil/internal/engine"
	"github.com/veilcrawl/veil/internal/output"
	"github.com/veilcrawl/veil/internal/pacing"
	"github.com/veilcrawl/veil/internal/proxy"
	"github.com/veilcrawl/veil/internal/secrets"
	"github.com/veilcrawl/veil/internal/stats"
	"github.com/veilcrawl/veil/internal/tor"
)

// Application holds all runtime dependencies and manages their lifecycle.
// It is created once at startup and shared across all CLI commands.
type Application struct {
	Config       *config.Config
	Logger       *zerolog.Logger
	Stats        *stats.Stats
	Pool         *proxy.Pool
	Capabilities engine.Capabilities
	Orchestrator *engine.Orchestrator
	Dispatcher   *engine.Dispatcher
	Writer       *output.Writer
	startTime    time.Time
}

// New creates and initializes an Application: logging, the proxy pool, the
// pacing policy, the three transport strategies as far as the resolved
// capability set allows, and the result writer. If any step fails, an error
// is returned and no resources are allocated.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := initLogger(cfg)

	st := stats.New()
	caps := resolveCapabilities(cfg)
	logger.Debug().
		Bool("impersonation", caps.HTTPImpersonation).
		Bool("browser", caps.BrowserAutomation).
		Bool("anonymity_network", caps.AnonymityNetwork).
		Bool("challenge_solving", caps.ChallengeSolving).
		Msg("Capabilities resolved")

	var endpoints []proxy.Endpoint
	if cfg.ProxyFile != "" {
		endpoints = proxy.LoadFile(cfg.ProxyFile, proxy.Kind(cfg.ProxyKind))
	}
	poolOpts := []proxy.Option{
		proxy.WithRotation(cfg.ProxyRotate),
		proxy.WithStats(st),
	}
	if caps.AnonymityNetwork {
		controlPassword := secrets.Lookup(secrets.TorControlPassword)
		poolOpts = append(poolOpts, proxy.WithRenewer(
			tor.NewController(cfg.TorControlAddr, controlPassword)))
	}
	pool := proxy.NewPool(endpoints, cfg.TorSocksAddr, poolOpts...)
	logger.Debug().Int("endpoints", pool.Size()).Msg("Proxy pool initialized")

	limiter := pacing.NewHostLimiter(cfg.HostRPS, cfg.HostBurst)
	pacer := pacing.New(cfg.DelayMin, cfg.DelayMax, cfg.DwellMin, cfg.DwellMax, limiter)

	detector := challenge.NewDetector()

	var impersonate, browser, torStrategy engine.Strategy
	if caps.HTTPImpersonation {
		impersonate = engine.NewImpersonateStrategy(cfg.Timeout, pacer, detector)
	}
	if caps.BrowserAutomation {
		browserOpts := []engine.BrowserOption{engine.WithBrowserStats(st)}
		if cfg.ChromePath != "" {
			browserOpts = append(browserOpts, engine.WithChromePath(cfg.ChromePath))
		}
		if caps.ChallengeSolving {
			solver := challenge.NewSolver(secrets.Lookup(secrets.SolverAPIKey))
			browserOpts = append(browserOpts, engine.WithResolver(challenge.NewResolver(solver)))
		}
		browser = engine.NewBrowserStrategy(cfg.Headless, cfg.Timeout, pacer, detector, browserOpts...)
	}
	if caps.AnonymityNetwork {
		torStrategy = engine.NewTorStrategy(cfg.TorSocksAddr, cfg.Timeout)
	}

	orch := engine.NewOrchestrator(impersonate, browser, torStrategy, pool, caps, st)
	dispatcher := engine.NewDispatcher(orch, pacer, cfg.Timeout)

	writer, err := output.NewWriter(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	app := &Application{
		Config:       cfg,
		Logger:       &logger,
		Stats:        st,
		Pool:         pool,
		Capabilities: caps,
		Orchestrator: orch,
		Dispatcher:   dispatcher,
		Writer:       writer,
		startTime:    time.Now(),
	}

	logger.Info().Msg("Application initialized successfully")
	return app, nil
}

// initLogger configures the global logger from config and returns it.
func initLogger(cfg *config.Config) zerolog.Logger {
	logLevel := zerolog.InfoLevel
	switch cfg.LogLevel {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	var logWriter io.Writer
	if cfg.JSONLog {
		logWriter = os.Stderr
	} else {
		logWriter = zerolog.NewConsoleWriter()
	}

	logger := log.Output(logWriter).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// resolveCapabilities derives the capability set from configuration. A
// capability turned off here is never attempted at fetch time.
func resolveCapabilities(cfg *config.Config) engine.Capabilities {
	caps := engine.AllCapabilities()
	if cfg.NoBrowser {
		caps.BrowserAutomation = false
	}
	if cfg.NoTor {
		caps.AnonymityNetwork = false
	}
	if cfg.ForceTor {
		// Forced routing collapses the chain to the terminal strategy.
		caps.HTTPImpersonation = false
		caps.BrowserAutomation = false
		caps.ChallengeSolving = false
	}
	if cfg.NoChallenge || cfg.NoBrowser {
		// Challenge solving needs a live rendered session.
		caps.ChallengeSolving = false
	}
	if caps.ChallengeSolving && secrets.Lookup(secrets.SolverAPIKey) == "" {
		log.Debug().Msg("No solver API key configured, challenge solving disabled")
		caps.ChallengeSolving = false
	}
	return caps
}

// Close gracefully shuts down the application. Strategies hold no persistent
// resources; browser sessions are per-attempt and already torn down.
func (a *Application) Close(ctx context.Context) error {
	snap := a.Stats.Snapshot()
	a.Logger.Info().
		Int64("requests", snap.Requests).
		Int64("successes", snap.Successes).
		Int64("failures", snap.Failures).
		Dur("uptime", time.Since(a.startTime)).
		Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
