package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvashq/canvas-agent/internal/actions"
	"github.com/canvashq/canvas-agent/internal/authclient"
	"github.com/canvashq/canvas-agent/internal/dedupe"
	"github.com/canvashq/canvas-agent/internal/health"
	"github.com/canvashq/canvas-agent/internal/store"
)

const testJWTSecret = "unit-test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func jwtApp(t *testing.T, resolver UserResolver) *fiber.App {
	t.Helper()
	logger := zerolog.Nop()
	checker := health.NewChecker(logger)

	guard := dedupe.New(logger, dedupe.WithWindow(time.Millisecond))
	st := store.New(store.Config{}, guard, logger)
	reg := actions.NewRegistry()
	actions.RegisterCanvasActions(reg, st)

	srv := NewServer(ServerConfig{
		ListenAddr: ":0",
		AuthConfig: AuthConfig{Mode: "jwt", JWTSecret: testJWTSecret},
	}, st, reg, checker, nil, resolver, &RuntimeConfig{}, logger)
	return srv.App()
}

func TestAuth_NoAuth_Mode(t *testing.T) {
	app, _ := testApp(t, "none", "")

	req, _ := http.NewRequest("GET", "/api/v1/config", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuth_APIKey_Valid(t *testing.T) {
	app, _ := testApp(t, "api-key", "test-secret-key")

	req, _ := http.NewRequest("GET", "/api/v1/canvas", nil)
	req.Header.Set("Authorization", "Bearer test-secret-key")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuth_APIKey_Missing(t *testing.T) {
	app, _ := testApp(t, "api-key", "test-secret-key")

	req, _ := http.NewRequest("GET", "/api/v1/canvas", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var problem ProblemDetail
	json.NewDecoder(resp.Body).Decode(&problem)
	assert.Equal(t, "missing_auth", problem.Type)
}

func TestAuth_APIKey_Invalid(t *testing.T) {
	app, _ := testApp(t, "api-key", "test-secret-key")

	req, _ := http.NewRequest("GET", "/api/v1/canvas", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var problem ProblemDetail
	json.NewDecoder(resp.Body).Decode(&problem)
	assert.Equal(t, "invalid_api_key", problem.Type)
}

func TestAuth_InvalidScheme(t *testing.T) {
	app, _ := testApp(t, "api-key", "test-secret-key")

	req, _ := http.NewRequest("GET", "/api/v1/canvas", nil)
	req.Header.Set("Authorization", "Basic dGVzdDp0ZXN0")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_ProbeEndpoints_NoAuth(t *testing.T) {
	app, _ := testApp(t, "api-key", "test-secret-key")

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		req, _ := http.NewRequest("GET", path, nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err, "path: %s", path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "path: %s", path)
	}
}

func TestAuth_JWT_ValidEditor(t *testing.T) {
	app := jwtApp(t, nil)

	token := signToken(t, jwt.MapClaims{
		"sub":  "alice",
		"role": "editor",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req, _ := http.NewRequest("POST", "/api/v1/actions/createItem",
		strings.NewReader(`{"type":"note","name":"n"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuth_JWT_ViewerCannotWrite(t *testing.T) {
	app := jwtApp(t, nil)

	token := signToken(t, jwt.MapClaims{
		"sub":  "bob",
		"role": "viewer",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	// reads pass
	req, _ := http.NewRequest("GET", "/api/v1/canvas", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// writes are forbidden
	req, _ = http.NewRequest("POST", "/api/v1/actions/createItem",
		strings.NewReader(`{"type":"note"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAuth_JWT_EditorCannotDelete(t *testing.T) {
	app := jwtApp(t, nil)

	token := signToken(t, jwt.MapClaims{
		"sub":  "alice",
		"role": "editor",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req, _ := http.NewRequest("POST", "/api/v1/actions/deleteItem",
		strings.NewReader(`{"itemId":"0001"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAuth_JWT_Expired(t *testing.T) {
	app := jwtApp(t, nil)

	token := signToken(t, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	req, _ := http.NewRequest("GET", "/api/v1/canvas", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_JWT_WrongSecret(t *testing.T) {
	app := jwtApp(t, nil)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice"})
	signed, err := tok.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	req, _ := http.NewRequest("GET", "/api/v1/canvas", nil)
	req.Header.Set("Authorization", "Bearer "+signed)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_JWT_ResolverOverridesClaims(t *testing.T) {
	resolver := func(_ context.Context, _ string) (*authclient.User, error) {
		return &authclient.User{
			Username:    "alice",
			Role:        authclient.RoleAdmin,
			Permissions: authclient.RolePermissions[authclient.RoleAdmin],
		}, nil
	}
	app := jwtApp(t, resolver)

	// token says viewer, the backend says admin
	token := signToken(t, jwt.MapClaims{
		"sub":  "alice",
		"role": "viewer",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req, _ := http.NewRequest("POST", "/api/v1/actions/deleteItem",
		strings.NewReader(`{"itemId":"0001"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHasPermission(t *testing.T) {
	perms := authclient.RolePermissions[authclient.RoleEditor]
	assert.True(t, authclient.HasPermission(perms, authclient.PermWriteCanvas))
	assert.False(t, authclient.HasPermission(perms, authclient.PermDeleteCanvas))

	// blanket admin permission covers everything
	assert.True(t, authclient.HasPermission([]string{authclient.PermAdmin}, authclient.PermDeleteCanvas))
}
