package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/canvashq/canvas-agent/internal/actions"
	"github.com/canvashq/canvas-agent/internal/authclient"
	"github.com/canvashq/canvas-agent/internal/canvas"
	"github.com/canvashq/canvas-agent/internal/config"
	"github.com/canvashq/canvas-agent/internal/dedupe"
	"github.com/canvashq/canvas-agent/internal/health"
	"github.com/canvashq/canvas-agent/internal/metrics"
	"github.com/canvashq/canvas-agent/internal/server"
	"github.com/canvashq/canvas-agent/internal/store"
	canvassync "github.com/canvashq/canvas-agent/internal/sync"
	"github.com/canvashq/canvas-agent/pkg/tokenstore"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Int("http_port", cfg.HTTPPort).
		Str("api_addr", cfg.APIListenAddr).
		Bool("auth_backend", cfg.AuthBackendEnabled()).
		Msg("starting canvas agent")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Tag catalog (select options, entity tag palette)
	catalog := config.DefaultCatalog()
	if cfg.CatalogPath != "" {
		catalog, err = config.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("failed to load catalog")
		}
		logger.Info().Str("path", cfg.CatalogPath).Msg("catalog loaded")
	}

	collector := metrics.New()

	// Idempotency guard and document store
	guard := dedupe.New(logger,
		dedupe.WithWindow(cfg.DedupeWindow),
		dedupe.WithCapacity(cfg.DedupeCapacity),
	)

	st := store.New(store.Config{
		TagCatalog: catalog.EntityTags,
		OnDedupeHit: func(rule string) {
			collector.DedupeHits.WithLabelValues(rule).Inc()
		},
	}, guard, logger)

	if cfg.SnapshotPath != "" {
		if err := st.Load(cfg.SnapshotPath); err != nil {
			logger.Fatal().Err(err).Str("path", cfg.SnapshotPath).Msg("failed to load snapshot")
		}
	}

	// Action surface
	registry := actions.NewRegistry()
	actions.RegisterCanvasActions(registry, st)

	// Health
	collector.ItemsCurrent.Set(float64(len(st.Snapshot().Items)))
	st.Subscribe(func(snap canvas.Canvas) {
		collector.ItemsCurrent.Set(float64(len(snap.Items)))
	})

	checker := health.NewChecker(logger)

	// Auth backend client (optional)
	var resolver server.UserResolver
	if cfg.AuthBackendEnabled() {
		var tokens tokenstore.Store
		if cfg.TokenFile != "" {
			tokens, err = tokenstore.NewFileStore(cfg.TokenFile)
			if err != nil {
				logger.Fatal().Err(err).Str("path", cfg.TokenFile).Msg("failed to open token store")
			}
		} else {
			tokens = tokenstore.NewMemoryStore()
		}

		authClient := authclient.NewClient(cfg.AuthBackendURL, tokens, logger)
		resolver = authClient.MeWithToken

		checker.Register("auth_backend", func(ctx context.Context) health.Status {
			if err := authClient.Ping(ctx); err != nil {
				return health.StatusDown
			}
			return health.StatusOK
		})
		logger.Info().Str("url", cfg.AuthBackendURL).Msg("auth backend client initialized")
	} else {
		logger.Info().Msg("auth backend not configured, using token claims only")
	}

	// Websocket snapshot sync
	hub := canvassync.NewHub(st, collector, logger)

	// HTTP server for probes, metrics and sync
	mux := http.NewServeMux()
	mux.HandleFunc("/health", health.LivenessHandler())
	mux.HandleFunc("/ready", checker.ReadinessHandler())
	mux.Handle("/metrics", collector.Handler())
	mux.Handle("/ws/canvas", hub.Handler())

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // websocket connections stay open
	}

	rtCfg := &server.RuntimeConfig{
		Environment:   cfg.Environment,
		LogLevel:      cfg.LogLevel,
		HTTPPort:      cfg.HTTPPort,
		APIListenAddr: cfg.APIListenAddr,
		AuthMode:      cfg.AuthMode,
		RateLimitRPS:  cfg.RateLimitRPS,
		DedupeWindow:  cfg.DedupeWindow.String(),
		SelectOptions: catalog.SelectOptions,
		EntityTags:    catalog.EntityTags,
	}

	apiServer := server.NewServer(server.ServerConfig{
		ListenAddr: cfg.APIListenAddr,
		AuthConfig: server.AuthConfig{
			Mode:      cfg.AuthMode,
			APIKey:    cfg.APIKey,
			JWTSecret: cfg.JWTSecret,
		},
		RateLimit: server.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
		CORSOrigins: cfg.CORSOrigins,
		TLSCert:     cfg.TLSCert,
		TLSKey:      cfg.TLSKey,
	}, st, registry, checker, collector, resolver, rtCfg, logger)

	// WaitGroup for in-flight work
	var wg sync.WaitGroup

	// Start HTTP server
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Start canvas API server
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apiServer.Start(); err != nil {
			logger.Error().Err(err).Msg("canvas API server error")
		}
	}()

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	// Shutdown servers
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	hub.Close()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if err := apiServer.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("canvas API server shutdown error")
	}

	// Persist the document across restarts
	if cfg.SnapshotPath != "" {
		if err := st.Save(cfg.SnapshotPath); err != nil {
			logger.Error().Err(err).Str("path", cfg.SnapshotPath).Msg("failed to save snapshot")
		} else {
			logger.Info().Str("path", cfg.SnapshotPath).Msg("snapshot saved")
		}
	}

	wg.Wait()
	logger.Info().Msg("canvas agent stopped")
}
