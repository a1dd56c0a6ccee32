// Package config loads application configuration from environment
// variables and the optional catalog file.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment
// variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Plain HTTP server (health, metrics, websocket sync)
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Canvas API (fiber)
	APIListenAddr  string `envconfig:"API_LISTEN_ADDR" default:":8090"`
	AuthMode       string `envconfig:"API_AUTH_MODE" default:"api-key"` // "api-key", "jwt", "none"
	APIKey         string `envconfig:"API_KEY"`
	RateLimitRPS   int    `envconfig:"API_RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst int    `envconfig:"API_RATE_LIMIT_BURST" default:"200"`
	CORSOrigins    string `envconfig:"API_CORS_ORIGINS"`
	TLSCert        string `envconfig:"API_TLS_CERT"`
	TLSKey         string `envconfig:"API_TLS_KEY"`

	// Auth backend (external login/register/permissions service)
	AuthBackendURL string        `envconfig:"AUTH_BACKEND_URL"`
	JWTSecret      string        `envconfig:"JWT_SECRET_KEY"`
	TokenTTL       time.Duration `envconfig:"TOKEN_TTL" default:"30m"`
	TokenFile      string        `envconfig:"TOKEN_FILE"` // persist session tokens here; empty keeps them in memory

	// Idempotency guard
	DedupeWindow   time.Duration `envconfig:"DEDUPE_WINDOW" default:"5s"`
	DedupeCapacity int           `envconfig:"DEDUPE_CAPACITY" default:"256"`

	// Canvas persistence and catalog
	SnapshotPath string `envconfig:"CANVAS_SNAPSHOT_PATH"`
	CatalogPath  string `envconfig:"CATALOG_PATH"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AuthBackendEnabled reports whether the external auth backend is
// configured.
func (c *Config) AuthBackendEnabled() bool {
	return c.AuthBackendURL != ""
}
