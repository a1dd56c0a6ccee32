// Package server provides the HTTP API for the canvas agent.
package server

import (
	"github.com/canvashq/canvas-agent/internal/canvas"
)

// ProblemDetail is an RFC 7807 error response.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

// InvokeRequest is the payload for POST /api/v1/actions/:name. Arguments
// are passed through to the action untouched.
type InvokeRequest map[string]interface{}

// InvokeResponse reports the outcome of an action invocation.
type InvokeResponse struct {
	Result     string `json:"result"`
	LastAction string `json:"last_action,omitempty"`
}

// PlanRequest is the payload for PUT /api/v1/plan.
type PlanRequest struct {
	Steps []canvas.PlanStep `json:"steps"`
}

// PlanStatusRequest is the payload for PATCH /api/v1/plan/status.
type PlanStatusRequest struct {
	Status string `json:"status"`
}

// PlanStepPatch is the payload for PATCH /api/v1/plan/steps/:index.
type PlanStepPatch struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

// PlanResponse returns the plan overlay slice of the document.
type PlanResponse struct {
	Steps            []canvas.PlanStep `json:"steps"`
	CurrentStepIndex int               `json:"currentStepIndex"`
	Status           canvas.PlanStatus `json:"status"`
}

// ActionListResponse wraps the published action schemas.
type ActionListResponse struct {
	Actions interface{} `json:"actions"`
	Total   int         `json:"total"`
}

// HealthDetailResponse is the payload for GET /api/v1/health.
type HealthDetailResponse struct {
	Status       string            `json:"status"`
	Integrations map[string]string `json:"integrations"`
	Uptime       string            `json:"uptime"`
	Version      string            `json:"version"`
}

// ConfigResponse is the payload for GET /api/v1/config. The catalog
// halves let the UI render select inputs and the tag palette without
// hardcoding them.
type ConfigResponse struct {
	Environment   string   `json:"environment"`
	LogLevel      string   `json:"log_level"`
	HTTPPort      int      `json:"http_port"`
	APIListenAddr string   `json:"api_listen_addr"`
	AuthMode      string   `json:"auth_mode"`
	RateLimitRPS  int      `json:"rate_limit_rps"`
	DedupeWindow  string   `json:"dedupe_window"`
	SelectOptions []string `json:"select_options"`
	EntityTags    []string `json:"entity_tags"`
}

// RuntimeConfig holds the settings surfaced on the config endpoint.
type RuntimeConfig struct {
	Environment   string
	LogLevel      string
	HTTPPort      int
	APIListenAddr string
	AuthMode      string
	RateLimitRPS  int
	DedupeWindow  string
	SelectOptions []string
	EntityTags    []string
}
