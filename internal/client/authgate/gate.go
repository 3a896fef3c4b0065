// Package authgate guards protected views on the session state.
package authgate

import (
	"context"

	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/port"
)

// Decision is what a protected view should do for a given session state.
type Decision int

const (
	// Placeholder renders neutral content: no protected content, no redirect.
	Placeholder Decision = iota
	// Allow renders the protected content.
	Allow
	// RedirectToLogin sends the client to the login view.
	RedirectToLogin
)

func (d Decision) String() string {
	switch d {
	case Placeholder:
		return "placeholder"
	case Allow:
		return "allow"
	case RedirectToLogin:
		return "redirect"
	default:
		return "unknown"
	}
}

// In-app paths used by the gate.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// Decide maps a session state to a decision.
func Decide(s domain.Session) Decision {
	switch s.Status {
	case domain.AuthAuthenticated:
		return Allow
	case domain.AuthAnonymous:
		return RedirectToLogin
	default:
		return Placeholder
	}
}

// SessionSource is the part of the session manager the gate needs.
type SessionSource interface {
	Session() domain.Session
	Wait(ctx context.Context) (domain.Session, error)
}

// Gate applies decisions to a location.
type Gate struct {
	sessions SessionSource
	location port.Location
}

// New creates a gate.
func New(sessions SessionSource, location port.Location) *Gate {
	return &Gate{sessions: sessions, location: location}
}

// Current returns the decision for the session as it is right now.
func (g *Gate) Current() Decision {
	return Decide(g.sessions.Session())
}

// Guard waits for resolution to settle, then either runs render or redirects
// to the login view. The originally requested destination is not preserved.
func (g *Gate) Guard(ctx context.Context, render func(domain.User) error) (Decision, error) {
	sess, err := g.sessions.Wait(ctx)
	if err != nil {
		return Placeholder, err
	}

	decision := Decide(sess)
	switch decision {
	case Allow:
		return decision, render(*sess.User)
	case RedirectToLogin:
		g.location.Replace(LoginPath)
	}
	return decision, nil
}

// GuardLogin bounces an authenticated session off the login view.
// It reports whether a redirect happened.
func (g *Gate) GuardLogin() bool {
	if Decide(g.sessions.Session()) != Allow {
		return false
	}
	g.location.Replace(DashboardPath)
	return true
}

var loginMessages = map[string]string{
	"auth_failed":           "Authentication failed. Please try again.",
	"no_user":               "Could not retrieve user information.",
	"google_not_configured": "Google login is not configured. Please contact the administrator.",
	"github_not_configured": "GitHub login is not configured. Please contact the administrator.",
	"failed_to_get_user":    "Signed in, but your profile could not be loaded. Please try again.",
}

// LoginMessage returns the user-facing message for a login error code, or ""
// when there is no error.
func LoginMessage(code string) string {
	if code == "" {
		return ""
	}
	if msg, ok := loginMessages[code]; ok {
		return msg
	}
	return "An error occurred during login. Please try again."
}
