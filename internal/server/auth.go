package server

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/canvashq/canvas-agent/internal/authclient"
	"github.com/canvashq/canvas-agent/pkg/ttlcache"
)

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Mode      string // "api-key", "jwt", "none"
	APIKey    string // from env API_KEY
	JWTSecret string // HS256 secret shared with the auth backend
}

// UserResolver looks up the account behind a bearer token, typically by
// asking the auth backend. Optional; when nil, permissions come from
// the token's role claim.
type UserResolver func(ctx context.Context, token string) (*authclient.User, error)

// NewAuthMiddleware returns a Fiber middleware that validates the
// Authorization header and stashes the caller's permissions in Locals.
func NewAuthMiddleware(cfg AuthConfig, resolver UserResolver, logger zerolog.Logger) fiber.Handler {
	// Resolved permission sets are cached per token so the backend is
	// not hit on every request.
	var userCache *ttlcache.Cache[string, []string]
	if resolver != nil {
		userCache = ttlcache.New[string, []string](128, 5*time.Minute)
	}

	return func(c *fiber.Ctx) error {
		// Skip auth in "none" mode
		if cfg.Mode == "none" {
			c.Locals("role", authclient.RoleAdmin)
			c.Locals("permissions", authclient.RolePermissions[authclient.RoleAdmin])
			return c.Next()
		}

		// Skip auth for probe endpoints
		path := c.Path()
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return problemResponse(c, fiber.StatusUnauthorized,
				"missing_auth", "Unauthorized",
				"Authorization header is required")
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_auth_scheme", "Unauthorized",
				"Authorization header must use Bearer scheme")
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")

		switch cfg.Mode {
		case "jwt":
			return authenticateJWT(c, cfg, resolver, userCache, token, logger)
		default:
			if cfg.APIKey != "" && token == cfg.APIKey {
				c.Locals("role", authclient.RoleAdmin)
				c.Locals("permissions", authclient.RolePermissions[authclient.RoleAdmin])
				return c.Next()
			}

			logger.Warn().
				Str("path", path).
				Str("method", c.Method()).
				Msg("unauthorized request: invalid API key")

			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_api_key", "Unauthorized",
				"Invalid API key")
		}
	}
}

func authenticateJWT(c *fiber.Ctx, cfg AuthConfig, resolver UserResolver, userCache *ttlcache.Cache[string, []string], token string, logger zerolog.Logger) error {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		logger.Warn().
			Str("path", c.Path()).
			Err(err).
			Msg("unauthorized request: invalid token")
		return problemResponse(c, fiber.StatusUnauthorized,
			"invalid_token", "Unauthorized",
			"Token is invalid or expired")
	}

	subject, _ := claims["sub"].(string)
	c.Locals("subject", subject)

	if resolver != nil {
		if perms, ok := userCache.Get(token); ok {
			c.Locals("permissions", perms)
			return c.Next()
		}
		user, err := resolver(c.Context(), token)
		if err != nil {
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_token", "Unauthorized",
				"Token was rejected by the auth backend")
		}
		c.Locals("role", user.Role)
		c.Locals("permissions", user.Permissions)
		userCache.Put(token, user.Permissions)
		return c.Next()
	}

	role := authclient.RoleViewer
	if r, ok := claims["role"].(string); ok && r != "" {
		role = authclient.Role(r)
	}
	c.Locals("role", role)
	c.Locals("permissions", authclient.RolePermissions[role])
	return c.Next()
}

// requirePermission returns a middleware that enforces a permission.
func requirePermission(perm string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		perms, _ := c.Locals("permissions").([]string)
		if !authclient.HasPermission(perms, perm) {
			return problemResponse(c, fiber.StatusForbidden,
				"insufficient_permissions", "Forbidden",
				"Insufficient permissions for this operation")
		}
		return c.Next()
	}
}

// problemResponse returns an RFC 7807 Problem Detail error response.
func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}
