package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/port"
)

var testUser = &domain.User{ID: "u-1", Email: "ada@example.com", Name: "Ada"}

func testConfig() JWTConfig {
	return JWTConfig{Secret: "s3cret", Issuer: "coursepilot", ExpiresIn: time.Hour, Revoked: NewDenylist()}
}

func TestGenerateAndParse(t *testing.T) {
	cfg := testConfig()
	tok, err := GenerateJWT(testUser, cfg)
	require.NoError(t, err)

	claims, err := ParseJWT(tok, cfg)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.NotEmpty(t, claims.ID)
}

func TestParse_Rejections(t *testing.T) {
	cfg := testConfig()

	expired := cfg
	expired.ExpiresIn = -time.Minute
	tok, err := GenerateJWT(testUser, expired)
	require.NoError(t, err)
	_, err = ParseJWT(tok, cfg)
	assert.ErrorIs(t, err, port.ErrTokenExpired)

	other := cfg
	other.Secret = "different"
	tok, err = GenerateJWT(testUser, other)
	require.NoError(t, err)
	_, err = ParseJWT(tok, cfg)
	assert.ErrorIs(t, err, port.ErrTokenInvalid)

	wrongIssuer := cfg
	wrongIssuer.Issuer = "someone-else"
	tok, err = GenerateJWT(testUser, wrongIssuer)
	require.NoError(t, err)
	_, err = ParseJWT(tok, cfg)
	assert.ErrorIs(t, err, port.ErrTokenInvalid)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Issuer: cfg.Issuer})
	tok, err = none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseJWT(tok, cfg)
	assert.ErrorIs(t, err, port.ErrTokenInvalid)
}

func TestParse_Revoked(t *testing.T) {
	cfg := testConfig()
	tok, err := GenerateJWT(testUser, cfg)
	require.NoError(t, err)
	claims, err := ParseJWT(tok, cfg)
	require.NoError(t, err)

	cfg.Revoked.(*Denylist).Revoke(claims.ID, claims.ExpiresAt.Time)
	_, err = ParseJWT(tok, cfg)
	assert.ErrorIs(t, err, port.ErrTokenRevoked)
}

func TestJWTMiddleware(t *testing.T) {
	cfg := testConfig()
	app := fiber.New()
	app.Get("/me", JWTMiddleware(cfg), func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": GetUserContext(c).UserID})
	})

	tok, err := GenerateJWT(testUser, cfg)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/me?token="+tok, nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "query tokens are not accepted")
}

func TestDenylist_Expires(t *testing.T) {
	d := NewDenylist()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	d.Revoke("a", now.Add(time.Minute))
	d.Revoke("", now.Add(time.Minute))
	assert.True(t, d.IsRevoked("a"))
	assert.Equal(t, 1, d.Len())

	now = now.Add(2 * time.Minute)
	assert.False(t, d.IsRevoked("a"))
	assert.Equal(t, 0, d.Len())
}
