package handler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/middleware"
	"github.com/arturoeanton/coursepilot/internal/port"
	"github.com/arturoeanton/coursepilot/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
	audit       port.AuditWriter
	frontendURL string
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService *service.AuthService, audit port.AuditWriter, frontendURL string) *AuthHandler {
	return &AuthHandler{authService: authService, audit: audit, frontendURL: strings.TrimRight(frontendURL, "/")}
}

// Register sets up the auth routes under /api/auth. The identity routes
// are registered ahead of the provider routes so "me" is never read as a provider.
func (h *AuthHandler) Register(api fiber.Router, requireAuth fiber.Handler) {
	auth := api.Group("/auth")
	auth.Get("/me", requireAuth, h.Me)
	auth.Post("/logout", requireAuth, h.Logout)
	auth.Get("/:provider", h.Login)
	auth.Get("/:provider/callback", h.Callback)
}

// Login redirects to the provider's consent screen. An unconfigured provider
// bounces back to the login view with "<provider>_not_configured".
func (h *AuthHandler) Login(c fiber.Ctx) error {
	provider := domain.Provider(c.Params("provider"))
	if !provider.Valid() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown provider"})
	}

	// The provider travels in state so a shared callback URL also works.
	state := string(provider) + ":" + generateState()
	authURL, err := h.authService.GetAuthURL(string(provider), state)
	if errors.Is(err, port.ErrProviderDisabled) {
		slog.Warn("login attempted with unconfigured provider", "provider", provider)
		return c.Redirect().To(h.loginError(string(provider) + "_not_configured"))
	}
	if err != nil {
		return c.Redirect().To(h.loginError("auth_failed"))
	}
	return c.Redirect().To(authURL)
}

// Callback completes the OAuth flow and hands the token to the frontend
// callback view.
func (h *AuthHandler) Callback(c fiber.Ctx) error {
	provider := c.Params("provider")
	if state := c.Query("state"); state != "" {
		if p, _, ok := strings.Cut(state, ":"); ok && p != provider {
			slog.Warn("oauth state names a different provider", "path_provider", provider, "state_provider", p)
			return c.Redirect().To(h.loginError("auth_failed"))
		}
	}

	code := c.Query("code")
	if code == "" || c.Query("error") != "" {
		slog.Warn("oauth callback without code", "provider", provider, "error", c.Query("error"))
		return c.Redirect().To(h.loginError("auth_failed"))
	}

	token, user, err := h.authService.HandleCallback(c.Context(), provider, code)
	if err != nil {
		slog.Error("oauth callback failed", "provider", provider, "error", err)
		return c.Redirect().To(h.loginError("auth_failed"))
	}
	if user == nil || user.ID == "" {
		return c.Redirect().To(h.loginError("no_user"))
	}

	middleware.Audit(h.audit, c, user.ID, domain.AuditActionLogin, "auth", provider, map[string]any{"email": user.Email})
	return c.Redirect().To(h.frontendURL + "/auth/callback?token=" + url.QueryEscape(token))
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c fiber.Ctx) error {
	user, err := h.authService.CurrentUser(c.Context(), middleware.GetUserContext(c))
	if errors.Is(err, port.ErrUserNotFound) || errors.Is(err, port.ErrUnauthorized) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "user not found"})
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

// Logout revokes the presented token.
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	h.authService.Logout(uc)
	if uc != nil {
		middleware.Audit(h.audit, c, uc.UserID, domain.AuditActionLogout, "auth", "", nil)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *AuthHandler) loginError(code string) string {
	return h.frontendURL + "/login?error=" + url.QueryEscape(code)
}

func generateState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
