package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/canvashq/canvas-agent/internal/apierr"
	"github.com/canvashq/canvas-agent/internal/retry"
	"github.com/canvashq/canvas-agent/pkg/tokenstore"
)

const sessionKey = "auth-session"

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Session is an issued access token with its lifetime.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// User is the account record returned by the auth backend.
type User struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Role        Role     `json:"role"`
	Permissions []string `json:"permissions"`
	IsActive    bool     `json:"is_active"`
	CreatedAt   string   `json:"created_at"`
	LastLogin   string   `json:"last_login,omitempty"`
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role,omitempty"`
}

// PermissionCheck is the backend's view of what the caller may do.
type PermissionCheck struct {
	Role           Role     `json:"role"`
	Permissions    []string `json:"permissions"`
	AvailableTools []string `json:"available_tools"`
}

// Client wraps the auth backend REST API. Tokens obtained via Login are
// persisted in a token store and attached to subsequent requests.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	tokens     tokenstore.Store
	retryCfg   retry.Config
	logger     zerolog.Logger
}

// NewClient creates a new auth backend client.
func NewClient(baseURL string, tokens tokenstore.Store, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		retryCfg:   retry.DefaultConfig(),
		logger:     logger.With().Str("component", "authclient").Logger(),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(hc HTTPClient) {
	c.httpClient = hc
}

// BaseURL returns the base URL of the auth backend.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login exchanges credentials for an access token and persists it.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var session Session
	err := retry.Do(ctx, c.retryCfg, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return apierr.New("auth", 0, "executing request", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return statusError(resp)
		}
		return json.NewDecoder(resp.Body).Decode(&session)
	})
	if err != nil {
		return nil, err
	}

	ttl := time.Duration(session.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if err := c.tokens.Set(ctx, sessionKey, session.AccessToken, ttl); err != nil {
		c.logger.Warn().Err(err).Msg("failed to persist session token")
	}

	c.logger.Info().Str("username", username).Msg("logged in")
	return &session, nil
}

// Logout discards the stored session token.
func (c *Client) Logout(ctx context.Context) error {
	return c.tokens.Delete(ctx, sessionKey)
}

// Token returns the stored session token, if any.
func (c *Client) Token(ctx context.Context) (string, error) {
	tok, err := c.tokens.Get(ctx, sessionKey)
	if err != nil {
		if errors.Is(err, tokenstore.ErrTokenNotFound) || errors.Is(err, tokenstore.ErrTokenExpired) {
			return "", apierr.New("auth", 0, "no active session", apierr.ErrAuthFailure)
		}
		return "", err
	}
	return tok.Value, nil
}

// Register creates a new account on the auth backend.
func (c *Client) Register(ctx context.Context, reg RegisterRequest) (*User, error) {
	payload, err := json.Marshal(reg)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/auth/register", strings.NewReader(string(payload)), false)
	if err != nil {
		return nil, err
	}

	var user User
	if err := decodeResponse(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me returns the account behind the stored session token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	resp, err := c.do(ctx, http.MethodGet, "/auth/me", nil, true)
	if err != nil {
		return nil, err
	}

	var user User
	if err := decodeResponse(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// MeWithToken returns the account behind an explicit bearer token. The
// API server uses this to resolve inbound request tokens.
func (c *Client) MeWithToken(ctx context.Context, token string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/me", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierr.New("auth", 0, "executing request", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}

	var user User
	if err := decodeResponse(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CheckPermissions returns the caller's role, permissions, and the
// action names the backend allows it to invoke.
func (c *Client) CheckPermissions(ctx context.Context) (*PermissionCheck, error) {
	resp, err := c.do(ctx, http.MethodGet, "/permissions/check", nil, true)
	if err != nil {
		return nil, err
	}

	var check PermissionCheck
	if err := decodeResponse(resp, &check); err != nil {
		return nil, err
	}
	return &check, nil
}

// ToolPermissions returns the backend's action → permission mapping.
func (c *Client) ToolPermissions(ctx context.Context) (map[string]string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/permissions/tools", nil, true)
	if err != nil {
		return nil, err
	}

	var tools map[string]string
	if err := decodeResponse(resp, &tools); err != nil {
		return nil, err
	}
	return tools, nil
}

// Ping verifies the backend is reachable. Used as a health check.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierr.New("auth", 0, "backend unreachable", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return apierr.New("auth", resp.StatusCode, "backend unhealthy", apierr.ErrUnavailable)
	}
	return nil
}

// do executes an API request, attaching the stored session token when
// authed is set. A 401 clears the stored token.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, authed bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if authed {
		tok, err := c.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierr.New("auth", 0, "executing request", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if authed {
			_ = c.tokens.Delete(ctx, sessionKey)
		}
		return nil, apierr.New("auth", resp.StatusCode, "session rejected", apierr.ErrAuthFailure)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}

	return resp, nil
}

func statusError(resp *http.Response) error {
	respBody, _ := io.ReadAll(resp.Body)
	msg := strings.TrimSpace(string(respBody))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apierr.New("auth", resp.StatusCode, msg, apierr.ErrAuthFailure)
	case http.StatusTooManyRequests:
		return apierr.New("auth", resp.StatusCode, msg, apierr.ErrRateLimit)
	case http.StatusNotFound:
		return apierr.New("auth", resp.StatusCode, msg, apierr.ErrNotFound)
	default:
		return apierr.New("auth", resp.StatusCode, msg, nil)
	}
}

// decodeResponse reads and decodes a JSON response.
func decodeResponse(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
