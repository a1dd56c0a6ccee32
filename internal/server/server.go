package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/canvashq/canvas-agent/internal/actions"
	"github.com/canvashq/canvas-agent/internal/authclient"
	"github.com/canvashq/canvas-agent/internal/health"
	"github.com/canvashq/canvas-agent/internal/metrics"
	"github.com/canvashq/canvas-agent/internal/requestid"
	"github.com/canvashq/canvas-agent/internal/store"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	ListenAddr  string
	AuthConfig  AuthConfig
	RateLimit   RateLimitConfig
	CORSOrigins string
	TLSCert     string
	TLSKey      string
}

// Server is the canvas API Fiber application.
type Server struct {
	app      *fiber.App
	handlers *Handlers
	logger   zerolog.Logger
	config   ServerConfig
}

// NewServer creates and configures a new API server. resolver may be
// nil when no auth backend is configured.
func NewServer(
	cfg ServerConfig,
	st *store.Store,
	reg *actions.Registry,
	checker *health.Checker,
	collector *metrics.Metrics,
	resolver UserResolver,
	rtCfg *RuntimeConfig,
	logger zerolog.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
	})

	handlers := NewHandlers(st, reg, checker, collector, rtCfg, logger)

	s := &Server{
		app:      app,
		handlers: handlers,
		logger:   logger.With().Str("component", "api_server").Logger(),
		config:   cfg,
	}

	s.setupMiddleware(cfg, resolver, logger)
	s.setupRoutes(handlers, collector)

	return s
}

func (s *Server) setupMiddleware(cfg ServerConfig, resolver UserResolver, logger zerolog.Logger) {
	// Recovery middleware
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Request ID middleware
	s.app.Use(func(c *fiber.Ctx) error {
		_, reqID := requestid.New(c.Context())
		c.Set("X-Request-ID", reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	// CORS middleware
	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		}))
	}

	// Rate limiter
	if cfg.RateLimit.RPS > 0 {
		s.app.Use(NewRateLimitMiddleware(cfg.RateLimit))
	}

	// Auth middleware
	s.app.Use(NewAuthMiddleware(cfg.AuthConfig, resolver, logger))

	// Audit middleware (log every request)
	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		// Skip noisy probe logging
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return c.Next()
		}

		logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Str("ip", c.IP()).
			Str("request_id", fmt.Sprintf("%v", c.Locals("request_id"))).
			Msg("canvas api request")

		return c.Next()
	})
}

func (s *Server) setupRoutes(h *Handlers, collector *metrics.Metrics) {
	// Probe endpoints (auth middleware skips them)
	s.app.Get("/healthz", h.Liveness)
	s.app.Get("/readyz", h.Readiness)

	// Full Prometheus metrics live on the main HTTP server
	s.app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		return c.SendString("# Prometheus metrics endpoint\n# Use the main HTTP server for full metrics\n")
	})

	// API v1 routes
	v1 := s.app.Group("/api/v1")

	// Canvas state and action surface
	v1.Get("/canvas", requirePermission(authclient.PermReadCanvas), h.GetCanvas)
	v1.Get("/actions", requirePermission(authclient.PermReadCanvas), h.ListActions)
	v1.Post("/actions/:name", requireActionPermission(), h.InvokeAction)

	// Plan overlay
	v1.Get("/plan", requirePermission(authclient.PermReadCanvas), h.GetPlan)
	v1.Put("/plan", requirePermission(authclient.PermCreatePlan), h.PutPlan)
	v1.Patch("/plan/status", requirePermission(authclient.PermExecutePlan), h.PatchPlanStatus)
	v1.Patch("/plan/steps/:index", requirePermission(authclient.PermExecutePlan), h.PatchPlanStep)

	// Health & config
	v1.Get("/health", h.HealthDetail)
	v1.Get("/config", h.GetConfig)
}

// requireActionPermission gates action invocation: deletion needs
// delete:canvas, everything else write:canvas.
func requireActionPermission() fiber.Handler {
	return func(c *fiber.Ctx) error {
		perm := authclient.PermWriteCanvas
		if c.Params("name") == "deleteItem" {
			perm = authclient.PermDeleteCanvas
		}
		perms, _ := c.Locals("permissions").([]string)
		if !authclient.HasPermission(perms, perm) {
			return problemResponse(c, fiber.StatusForbidden,
				"insufficient_permissions", "Forbidden",
				"Insufficient permissions for this operation")
		}
		return c.Next()
	}
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8090"
	}

	s.logger.Info().Str("addr", addr).Msg("canvas API server starting")

	if s.config.TLSCert != "" && s.config.TLSKey != "" {
		return s.app.ListenTLS(addr, s.config.TLSCert, s.config.TLSKey)
	}
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("canvas API server shutting down")
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

func customErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("unhandled error")

		detail := err.Error()
		// Don't leak internal details in production
		if code == fiber.StatusInternalServerError {
			if !strings.Contains(detail, "test") {
				detail = "An internal error occurred"
			}
		}

		return c.Status(code).JSON(ProblemDetail{
			Type:     "internal_error",
			Title:    "Internal Server Error",
			Status:   code,
			Detail:   detail,
			Instance: c.Path(),
		})
	}
}
