// Package api exposes typed calls for the course API HTTP contract.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/arturoeanton/coursepilot/internal/client/gateway"
	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/port"
)

// AuthAPI wraps the identity endpoints.
type AuthAPI struct {
	gw *gateway.Gateway
}

// NewAuthAPI creates the identity endpoint wrapper.
func NewAuthAPI(gw *gateway.Gateway) *AuthAPI {
	return &AuthAPI{gw: gw}
}

// CurrentUser calls the identity check. A 401 surfaces as port.ErrAuthCheckNegative.
func (a *AuthAPI) CurrentUser(ctx context.Context) (*domain.User, error) {
	var resp struct {
		User *domain.User `json:"user"`
	}
	if err := a.gw.DoJSON(ctx, http.MethodGet, gateway.IdentityCheckPath, nil, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("identity check returned no user: %w", port.ErrAuthCheckNegative)
	}
	return resp.User, nil
}

// Logout revokes the session server-side.
func (a *AuthAPI) Logout(ctx context.Context) error {
	return a.gw.DoJSON(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// AuthURL returns the provider authorization redirect target. It is a raw
// navigation target and is never requested through the gateway.
func (a *AuthAPI) AuthURL(provider domain.Provider) (string, error) {
	if !provider.Valid() {
		return "", fmt.Errorf("%w: %q", port.ErrUnknownProvider, provider)
	}
	return a.gw.BaseURL() + "/auth/" + string(provider), nil
}
