// Package client assembles the learner-side components around one API root:
// the request gateway, the session manager, the route gate, the progress
// store and the creation wizard.
package client

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/arturoeanton/coursepilot/internal/client/api"
	"github.com/arturoeanton/coursepilot/internal/client/authgate"
	"github.com/arturoeanton/coursepilot/internal/client/gateway"
	"github.com/arturoeanton/coursepilot/internal/client/progress"
	"github.com/arturoeanton/coursepilot/internal/client/session"
	"github.com/arturoeanton/coursepilot/internal/client/wizard"
	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/port"
	"github.com/arturoeanton/coursepilot/internal/validate"
)

// Config wires an App.
type Config struct {
	APIURL     string
	HTTPClient *http.Client
	Tokens     port.TokenStore
	Location   port.Location
	External   port.ExternalNavigator
	Logger     *slog.Logger
}

// App is the client composition root.
type App struct {
	Location port.Location
	Gateway  *gateway.Gateway
	Auth     *api.AuthAPI
	Courses  *api.CoursesAPI
	Session  *session.Manager
	Gate     *authgate.Gate
	Progress *progress.Store

	validator *validate.Validator
	logger    *slog.Logger
}

// New builds the client components. Nothing is resolved until Start.
func New(cfg Config) *App {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	gw := gateway.New(gateway.Config{
		BaseURL:    cfg.APIURL,
		HTTPClient: cfg.HTTPClient,
		Tokens:     cfg.Tokens,
		Location:   cfg.Location,
		Logger:     logger.With("component", "gateway"),
	})
	authAPI := api.NewAuthAPI(gw)
	coursesAPI := api.NewCoursesAPI(gw)

	mgr := session.New(session.Config{
		API:      authAPI,
		Tokens:   cfg.Tokens,
		Location: cfg.Location,
		External: cfg.External,
		Logger:   logger.With("component", "session"),
	})

	return &App{
		Location:  cfg.Location,
		Gateway:   gw,
		Auth:      authAPI,
		Courses:   coursesAPI,
		Session:   mgr,
		Gate:      authgate.New(mgr, cfg.Location),
		Progress:  progress.New(coursesAPI, logger.With("component", "progress")),
		validator: validate.New(),
		logger:    logger,
	}
}

// Start consumes any inbound callback token and resolves the session.
func (a *App) Start(ctx context.Context) (domain.Session, error) {
	return a.Session.Bootstrap(ctx)
}

// Logout ends the session and drops cached courses.
func (a *App) Logout(ctx context.Context) {
	a.Session.Logout(ctx)
	a.Progress.Reset()
}

// NewWizard returns a fresh creation wizard whose result lands in the progress store.
func (a *App) NewWizard() *wizard.Wizard {
	return wizard.New(wizard.Config{
		Generator: a.Courses,
		Sink:      a.Progress,
		Location:  a.Location,
		Validator: a.validator,
		Logger:    a.logger.With("component", "wizard"),
	})
}

// Guard waits for the session and runs render for an authenticated user,
// redirecting anonymous visitors to the login view.
func (a *App) Guard(ctx context.Context, render func(domain.User) error) (authgate.Decision, error) {
	return a.Gate.Guard(ctx, render)
}
