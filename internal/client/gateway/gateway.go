// Package gateway is the uniform request/response pipeline used by every
// client call: it attaches the stored bearer token and interprets
// authentication failures.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/arturoeanton/coursepilot/internal/port"
)

// Well-known client paths.
const (
	// IdentityCheckPath is the identity-check endpoint. A 401 there means
	// "anonymous" and never triggers a redirect.
	IdentityCheckPath = "/auth/me"
	// LoginPath is the in-app login view.
	LoginPath = "/login"
)

// Config holds the gateway dependencies.
type Config struct {
	BaseURL    string // API root, e.g. http://localhost:3001/api
	HTTPClient *http.Client
	Tokens     port.TokenStore
	Location   port.Location
	Logger     *slog.Logger
}

// Gateway sends requests to the course API.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	tokens     port.TokenStore
	location   port.Location
	logger     *slog.Logger
}

// New creates a gateway.
func New(cfg Config) *Gateway {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: client,
		tokens:     cfg.Tokens,
		location:   cfg.Location,
		logger:     logger,
	}
}

// BaseURL returns the API root the gateway talks to.
func (g *Gateway) BaseURL() string {
	return g.baseURL
}

// DoJSON sends body (if non-nil) as JSON and decodes a JSON response into out (if non-nil).
func (g *Gateway) DoJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	data, _, err := g.Do(ctx, method, path, reader)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// Do sends a request and returns the raw response body and headers on 2xx.
func (g *Gateway) Do(ctx context.Context, method, path string, body io.Reader) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, nil, fmt.Errorf("create request %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if g.tokens != nil {
		token, err := g.tokens.Load(ctx)
		if err != nil {
			g.logger.Warn("token store read failed", "error", err)
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, nil, &RemoteError{Method: method, Path: path, Message: err.Error(), kind: port.ErrNetwork, cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &RemoteError{Method: method, Path: path, Status: resp.StatusCode, Message: err.Error(), kind: port.ErrNetwork, cause: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, resp.Header, nil
	}

	rerr := &RemoteError{
		Method:  method,
		Path:    path,
		Status:  resp.StatusCode,
		Message: errorMessage(data, resp.Status),
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		rerr.kind = g.handleUnauthorized(ctx, path)
	case resp.StatusCode == http.StatusNotFound:
		rerr.kind = port.ErrNotFound
	default:
		rerr.kind = port.ErrRemoteRejection
	}
	return nil, nil, rerr
}

// handleUnauthorized clears the stored token and redirects to the login view,
// except for the identity check itself or when already on the login view.
func (g *Gateway) handleUnauthorized(ctx context.Context, path string) error {
	if g.tokens != nil {
		if err := g.tokens.Clear(ctx); err != nil {
			g.logger.Warn("token store clear failed", "error", err)
		}
	}

	if path == IdentityCheckPath {
		g.logger.Debug("identity check returned 401, session is anonymous")
		return port.ErrAuthCheckNegative
	}

	if g.location == nil {
		return port.ErrAuthExpired
	}
	current := g.location.Current()
	if strings.Contains(current.Path, LoginPath) {
		g.logger.Debug("401 while on login view, redirect suppressed", "path", path)
		return port.ErrAuthExpired
	}

	g.logger.Info("session expired, redirecting to login", "path", path, "from", current.Path)
	g.location.Navigate(LoginPath)
	return port.ErrAuthExpired
}

func errorMessage(body []byte, fallback string) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return fallback
}

// RemoteError describes a failed gateway call.
// errors.Is matches it against the port error taxonomy.
type RemoteError struct {
	Method  string
	Path    string
	Status  int // 0 when the request never completed
	Message string

	kind  error
	cause error
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

// Unwrap exposes both the taxonomy kind and the underlying transport error.
func (e *RemoteError) Unwrap() []error {
	errs := []error{e.kind}
	if e.kind == port.ErrNotFound {
		errs = append(errs, port.ErrRemoteRejection)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var rerr *RemoteError
	if errors.As(err, &rerr) {
		return rerr.Status
	}
	return 0
}
