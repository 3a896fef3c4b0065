package auth

import (
	"context"
	"net/http"
	"net/url"

	"github.com/arturoeanton/coursepilot/internal/domain"
)

// GoogleEndpoints are the production Google OAuth2 URLs.
var GoogleEndpoints = Endpoints{
	AuthURL:    "https://accounts.google.com/o/oauth2/v2/auth",
	TokenURL:   "https://oauth2.googleapis.com/token",
	ProfileURL: "https://www.googleapis.com/oauth2/v2/userinfo",
}

// GoogleProvider implements port.AuthProvider for Google OAuth2.
type GoogleProvider struct {
	oauthClient
}

// NewGoogleProvider creates a Google provider. It reports Enabled() false
// when the client id or secret is empty.
func NewGoogleProvider(creds Credentials, endpoints Endpoints) *GoogleProvider {
	return &GoogleProvider{oauthClient{
		name:       string(domain.ProviderGoogle),
		creds:      creds,
		endpoints:  endpoints,
		httpClient: &http.Client{},
	}}
}

// ProviderName returns "google".
func (g *GoogleProvider) ProviderName() string { return string(domain.ProviderGoogle) }

// Enabled reports whether credentials are configured.
func (g *GoogleProvider) Enabled() bool { return g.creds.enabled() }

// AuthURL returns the consent screen URL.
func (g *GoogleProvider) AuthURL(state string) string {
	return g.consentURL(url.Values{
		"client_id":     {g.creds.ClientID},
		"redirect_uri":  {g.creds.RedirectURL},
		"response_type": {"code"},
		"scope":         {"openid email profile"},
		"state":         {state},
	})
}

// ExchangeCode exchanges an authorization code for tokens.
func (g *GoogleProvider) ExchangeCode(ctx context.Context, code string) (*domain.TokenPair, error) {
	var tokens domain.TokenPair
	err := g.postForm(ctx, url.Values{
		"code":          {code},
		"client_id":     {g.creds.ClientID},
		"client_secret": {g.creds.ClientSecret},
		"redirect_uri":  {g.creds.RedirectURL},
		"grant_type":    {"authorization_code"},
	}, &tokens)
	if err != nil {
		return nil, err
	}
	return &tokens, nil
}

// GetUserProfile fetches the Google user profile.
func (g *GoogleProvider) GetUserProfile(ctx context.Context, accessToken string) (*domain.User, error) {
	var profile struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := g.getJSON(ctx, g.endpoints.ProfileURL, accessToken, "", &profile); err != nil {
		return nil, err
	}
	return &domain.User{
		Email:      profile.Email,
		Name:       profile.Name,
		AvatarURL:  profile.Picture,
		Provider:   domain.ProviderGoogle,
		ProviderID: profile.ID,
	}, nil
}
