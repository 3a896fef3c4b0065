package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/middleware"
	"github.com/arturoeanton/coursepilot/internal/port"
)

// AuthService handles the authentication flow.
type AuthService struct {
	providers port.AuthProviderRegistry
	users     port.UserRepository
	jwtCfg    middleware.JWTConfig
	denylist  *middleware.Denylist
}

// NewAuthService creates a new authentication service. Tokens issued by it
// are checked against denylist by the JWT middleware.
func NewAuthService(providers port.AuthProviderRegistry, users port.UserRepository, jwtCfg middleware.JWTConfig, denylist *middleware.Denylist) *AuthService {
	jwtCfg.Revoked = denylist
	return &AuthService{
		providers: providers,
		users:     users,
		jwtCfg:    jwtCfg,
		denylist:  denylist,
	}
}

// JWTConfig returns the configuration the protected routes must validate with.
func (s *AuthService) JWTConfig() middleware.JWTConfig {
	return s.jwtCfg
}

// GetAuthURL returns the OAuth2 authorization URL for the given provider.
func (s *AuthService) GetAuthURL(providerName, state string) (string, error) {
	provider, ok := s.providers.Configured(providerName)
	if !ok {
		return "", fmt.Errorf("%s: %w", providerName, port.ErrProviderDisabled)
	}
	return provider.AuthURL(state), nil
}

// HandleCallback exchanges the code, upserts the user and returns a signed token.
func (s *AuthService) HandleCallback(ctx context.Context, providerName, code string) (string, *domain.User, error) {
	provider, ok := s.providers.Configured(providerName)
	if !ok {
		return "", nil, fmt.Errorf("%s: %w", providerName, port.ErrProviderDisabled)
	}

	tokens, err := provider.ExchangeCode(ctx, code)
	if err != nil {
		return "", nil, fmt.Errorf("exchange code: %w", err)
	}

	profile, err := provider.GetUserProfile(ctx, tokens.AccessToken)
	if err != nil {
		return "", nil, fmt.Errorf("get profile: %w", err)
	}

	user, err := s.users.UpsertUser(ctx, profile)
	if err != nil {
		return "", nil, fmt.Errorf("upsert user: %w", err)
	}

	jwt, err := middleware.GenerateJWT(user, s.jwtCfg)
	if err != nil {
		return "", nil, fmt.Errorf("generate jwt: %w", err)
	}

	slog.Info("user authenticated", "user_id", user.ID, "provider", providerName)
	return jwt, user, nil
}

// CurrentUser loads the user behind an authenticated request.
func (s *AuthService) CurrentUser(ctx context.Context, uc *domain.UserContext) (*domain.User, error) {
	if uc == nil {
		return nil, port.ErrUnauthorized
	}
	user, err := s.users.GetUserByID(ctx, uc.UserID)
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	return user, nil
}

// Logout revokes the token carried by the request until it would have expired.
func (s *AuthService) Logout(uc *domain.UserContext) {
	if uc == nil || s.denylist == nil {
		return
	}
	expires := uc.Expires
	if expires.IsZero() {
		expires = time.Now().Add(s.jwtCfg.ExpiresIn)
	}
	s.denylist.Revoke(uc.TokenID, expires)
	slog.Info("token revoked", "user_id", uc.UserID)
}
