// Package session owns the client session state machine:
//
//	Unresolved → Resolving → {Authenticated(user), Anonymous}
//
// Authenticated and Anonymous are settled until an explicit login, logout, or
// re-resolve. The inbound OAuth token is consumed from the page location by
// Bootstrap before any resolution runs.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/port"
)

// In-app paths the manager routes between.
const (
	CallbackPath  = "/auth/callback"
	LoginPath     = "/login"
	DashboardPath = "/dashboard"

	tokenParam = "token"
	errorParam = "error"
)

// IdentityAPI is the remote side of the session.
type IdentityAPI interface {
	CurrentUser(ctx context.Context) (*domain.User, error)
	Logout(ctx context.Context) error
	AuthURL(provider domain.Provider) (string, error)
}

// Config holds the manager dependencies.
type Config struct {
	API      IdentityAPI
	Tokens   port.TokenStore
	Location port.Location
	External port.ExternalNavigator
	Logger   *slog.Logger
}

// Manager is the explicitly constructed session context. Bootstrap is its
// entry point and Logout its exit point.
type Manager struct {
	api      IdentityAPI
	tokens   port.TokenStore
	location port.Location
	external port.ExternalNavigator
	logger   *slog.Logger

	flight singleflight.Group

	mu       sync.Mutex
	state    domain.Session
	epoch    uint64        // bumped by logout; resolutions from an older epoch are dropped
	changed  chan struct{} // closed on every transition
	consumed bool
}

// New creates a manager in the Unresolved state.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		api:      cfg.API,
		tokens:   cfg.Tokens,
		location: cfg.Location,
		external: cfg.External,
		logger:   logger,
		state:    domain.Session{Status: domain.AuthUnresolved},
		changed:  make(chan struct{}),
	}
}

// Session returns a snapshot of the current state.
func (m *Manager) Session() domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Wait blocks until the session reaches a terminal state or ctx is done.
func (m *Manager) Wait(ctx context.Context) (domain.Session, error) {
	for {
		m.mu.Lock()
		state, changed := m.state, m.changed
		m.mu.Unlock()

		if state.Status.Terminal() {
			return state, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
}

// Bootstrap consumes any inbound token from the location, then resolves the session.
// On the OAuth callback view it also routes to the dashboard or the login view.
func (m *Manager) Bootstrap(ctx context.Context) (domain.Session, error) {
	onCallback, hadToken, oauthErr, err := m.consumeInbound(ctx)
	if err != nil {
		return m.Session(), err
	}

	if oauthErr != "" {
		m.location.Navigate(LoginPath + "?" + url.Values{errorParam: {oauthErr}}.Encode())
	}

	sess, resolveErr := m.Resolve(ctx)

	if onCallback && oauthErr == "" {
		switch {
		case !hadToken:
			m.location.Navigate(LoginPath)
		case sess.Status == domain.AuthAuthenticated:
			m.location.Navigate(DashboardPath)
		default:
			m.location.Navigate(LoginPath + "?" + url.Values{errorParam: {"failed_to_get_user"}}.Encode())
		}
	}
	return sess, resolveErr
}

// consumeInbound persists an inbound token and strips it (and any OAuth error)
// from the visible location. It only ever runs once per manager.
func (m *Manager) consumeInbound(ctx context.Context) (onCallback, hadToken bool, oauthErr string, err error) {
	m.mu.Lock()
	if m.consumed {
		m.mu.Unlock()
		return false, false, "", nil
	}
	m.consumed = true
	m.mu.Unlock()

	current := m.location.Current()
	onCallback = current.Path == CallbackPath
	query := current.Query()
	token := query.Get(tokenParam)
	oauthErr = query.Get(errorParam)
	if token == "" && (oauthErr == "" || !onCallback) {
		return onCallback, false, "", nil
	}

	if token != "" {
		if err := m.tokens.Save(ctx, token); err != nil {
			return onCallback, false, "", fmt.Errorf("persist inbound token: %w", err)
		}
		m.logger.Info("inbound token consumed", "path", current.Path)
	}

	query.Del(tokenParam)
	if onCallback {
		query.Del(errorParam)
	} else {
		oauthErr = ""
	}
	stripped := url.URL{Path: current.Path, RawQuery: query.Encode(), Fragment: current.Fragment}
	m.location.Replace(stripped.RequestURI())

	return onCallback, token != "", oauthErr, nil
}

// Resolve runs the identity check. Concurrent callers share one in-flight
// resolution and all observe its terminal state. Any failure settles the
// session as Anonymous; failures other than a negative identity check are
// also returned.
func (m *Manager) Resolve(ctx context.Context) (domain.Session, error) {
	ch := m.flight.DoChan("resolve", func() (any, error) {
		return m.resolve(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		sess, _ := res.Val.(domain.Session)
		return sess, res.Err
	case <-ctx.Done():
		return m.Session(), ctx.Err()
	}
}

func (m *Manager) resolve(ctx context.Context) (domain.Session, error) {
	m.mu.Lock()
	epoch := m.epoch
	m.setLocked(domain.Session{Status: domain.AuthResolving})
	m.mu.Unlock()

	user, err := m.api.CurrentUser(ctx)

	next := domain.Anonymous()
	if err == nil {
		next = domain.Authenticated(user)
	}
	if errors.Is(err, port.ErrAuthCheckNegative) {
		err = nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		// A logout landed while the check was in flight; it wins.
		m.logger.Debug("dropping resolution superseded by logout")
		return m.state, err
	}
	m.setLocked(next)
	if err != nil {
		m.logger.Warn("identity check failed, session is anonymous", "error", err)
	} else {
		m.logger.Info("session resolved", "status", next.Status.String())
	}
	return next, err
}

// Login performs a full navigation to the provider's authorization URL.
func (m *Manager) Login(provider domain.Provider) error {
	target, err := m.api.AuthURL(provider)
	if err != nil {
		return err
	}
	m.logger.Info("navigating to identity provider", "provider", string(provider))
	m.external.NavigateExternal(target)
	return nil
}

// Logout revokes the session remotely, then clears the local token and user
// whether or not the revoke succeeded.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.api.Logout(ctx); err != nil {
		m.logger.Warn("remote logout failed, clearing local session anyway", "error", err)
	}
	if err := m.tokens.Clear(ctx); err != nil {
		m.logger.Warn("token store clear failed", "error", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.setLocked(domain.Anonymous())
	m.logger.Info("logged out")
}

func (m *Manager) setLocked(s domain.Session) {
	m.state = s
	close(m.changed)
	m.changed = make(chan struct{})
}
