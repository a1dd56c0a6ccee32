package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/canvashq/canvas-agent/internal/actions"
	"github.com/canvashq/canvas-agent/internal/canvas"
	"github.com/canvashq/canvas-agent/internal/health"
	"github.com/canvashq/canvas-agent/internal/metrics"
	"github.com/canvashq/canvas-agent/internal/store"
)

// Version is stamped at build time.
var Version = "1.0.0"

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	store     *store.Store
	registry  *actions.Registry
	checker   *health.Checker
	collector *metrics.Metrics
	rtCfg     *RuntimeConfig
	logger    zerolog.Logger
	startTime time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(st *store.Store, reg *actions.Registry, checker *health.Checker, collector *metrics.Metrics, rtCfg *RuntimeConfig, logger zerolog.Logger) *Handlers {
	return &Handlers{
		store:     st,
		registry:  reg,
		checker:   checker,
		collector: collector,
		rtCfg:     rtCfg,
		logger:    logger.With().Str("component", "handlers").Logger(),
		startTime: time.Now(),
	}
}

// GetCanvas handles GET /api/v1/canvas.
func (h *Handlers) GetCanvas(c *fiber.Ctx) error {
	return c.JSON(h.store.Snapshot())
}

// ListActions handles GET /api/v1/actions.
func (h *Handlers) ListActions(c *fiber.Ctx) error {
	schemas := h.registry.Schemas()
	return c.JSON(ActionListResponse{Actions: schemas, Total: len(schemas)})
}

// InvokeAction handles POST /api/v1/actions/:name.
func (h *Handlers) InvokeAction(c *fiber.Ctx) error {
	name := c.Params("name")

	args := c.Body()
	if len(args) == 0 {
		args = []byte("{}")
	}

	start := time.Now()
	result, err := h.registry.Execute(c.Context(), name, args)
	if h.collector != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		h.collector.RecordAction(name, outcome)
		h.collector.ObserveActionDuration(name, time.Since(start))
	}

	if err != nil {
		if errors.Is(err, actions.ErrUnknownAction) {
			return problemResponse(c, fiber.StatusNotFound,
				"unknown_action", "Not Found",
				err.Error())
		}

		h.logger.Warn().
			Str("action", name).
			Err(err).
			Msg("action rejected")

		var typeErr *canvas.InvalidTypeError
		if errors.As(err, &typeErr) {
			return problemResponse(c, fiber.StatusBadRequest,
				"invalid_item_type", "Bad Request",
				err.Error())
		}
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_arguments", "Bad Request",
			err.Error())
	}

	h.logger.Info().
		Str("action", name).
		Str("result", result).
		Msg("action executed")

	return c.JSON(InvokeResponse{
		Result:     result,
		LastAction: h.store.Snapshot().LastAction,
	})
}

// GetPlan handles GET /api/v1/plan.
func (h *Handlers) GetPlan(c *fiber.Ctx) error {
	snap := h.store.Snapshot()
	steps := snap.PlanSteps
	if steps == nil {
		steps = []canvas.PlanStep{}
	}
	return c.JSON(PlanResponse{
		Steps:            steps,
		CurrentStepIndex: snap.CurrentStepIndex,
		Status:           snap.PlanStatus,
	})
}

// PutPlan handles PUT /api/v1/plan.
func (h *Handlers) PutPlan(c *fiber.Ctx) error {
	var req PlanRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	for i := range req.Steps {
		if strings.TrimSpace(req.Steps[i].Title) == "" {
			return problemResponse(c, fiber.StatusBadRequest,
				"missing_title", "Bad Request",
				"Step "+strconv.Itoa(i)+" has no title")
		}
		if req.Steps[i].Status == "" {
			req.Steps[i].Status = canvas.StepPending
		} else if !validStepStatus(req.Steps[i].Status) {
			return problemResponse(c, fiber.StatusBadRequest,
				"invalid_step_status", "Bad Request",
				"Unknown step status: "+string(req.Steps[i].Status))
		}
	}

	h.store.SetPlanSteps(req.Steps)
	return h.GetPlan(c)
}

// PatchPlanStatus handles PATCH /api/v1/plan/status.
func (h *Handlers) PatchPlanStatus(c *fiber.Ctx) error {
	var req PlanStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	status := canvas.PlanStatus(strings.TrimSpace(req.Status))
	switch status {
	case canvas.PlanNone, canvas.PlanInProgress, canvas.PlanCompleted, canvas.PlanFailed:
	default:
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_plan_status", "Bad Request",
			"Unknown plan status: "+req.Status)
	}

	h.store.SetPlanStatus(status)
	return h.GetPlan(c)
}

// PatchPlanStep handles PATCH /api/v1/plan/steps/:index.
func (h *Handlers) PatchPlanStep(c *fiber.Ctx) error {
	index, err := c.ParamsInt("index")
	if err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_index", "Bad Request",
			"Step index must be a number")
	}

	var req PlanStepPatch
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	status := canvas.StepStatus(strings.TrimSpace(req.Status))
	if !validStepStatus(status) {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_step_status", "Bad Request",
			"Unknown step status: "+req.Status)
	}

	if !h.store.UpdatePlanStep(index, status, req.Note) {
		return problemResponse(c, fiber.StatusNotFound,
			"step_not_found", "Not Found",
			"No plan step at index "+strconv.Itoa(index))
	}

	return h.GetPlan(c)
}

// HealthDetail handles GET /api/v1/health.
func (h *Handlers) HealthDetail(c *fiber.Ctx) error {
	results := h.checker.RunAll(c.Context())

	integrations := make(map[string]string, len(results))
	overall := "ok"
	for name, status := range results {
		integrations[name] = string(status)
		if status == health.StatusDown {
			overall = "degraded"
		}
	}

	uptime := time.Since(h.startTime).Round(time.Second).String()

	return c.JSON(HealthDetailResponse{
		Status:       overall,
		Integrations: integrations,
		Uptime:       uptime,
		Version:      Version,
	})
}

// GetConfig handles GET /api/v1/config.
func (h *Handlers) GetConfig(c *fiber.Ctx) error {
	cfg := h.rtCfg
	if cfg == nil {
		cfg = &RuntimeConfig{}
	}
	return c.JSON(ConfigResponse{
		Environment:   cfg.Environment,
		LogLevel:      cfg.LogLevel,
		HTTPPort:      cfg.HTTPPort,
		APIListenAddr: cfg.APIListenAddr,
		AuthMode:      cfg.AuthMode,
		RateLimitRPS:  cfg.RateLimitRPS,
		DedupeWindow:  cfg.DedupeWindow,
		SelectOptions: cfg.SelectOptions,
		EntityTags:    cfg.EntityTags,
	})
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	if !h.checker.IsReady(c.Context()) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready"})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

func validStepStatus(s canvas.StepStatus) bool {
	switch s {
	case canvas.StepPending, canvas.StepInProgress, canvas.StepCompleted, canvas.StepBlocked, canvas.StepFailed:
		return true
	}
	return false
}
