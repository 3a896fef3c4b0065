package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/arturoeanton/coursepilot/internal/domain"
)

// GitHubEndpoints are the production GitHub OAuth URLs.
var GitHubEndpoints = Endpoints{
	AuthURL:    "https://github.com/login/oauth/authorize",
	TokenURL:   "https://github.com/login/oauth/access_token",
	ProfileURL: "https://api.github.com/user",
	EmailsURL:  "https://api.github.com/user/emails",
}

const githubAccept = "application/vnd.github+json"

// GitHubProvider implements port.AuthProvider for GitHub OAuth.
type GitHubProvider struct {
	oauthClient
}

// NewGitHubProvider creates a GitHub provider.
func NewGitHubProvider(creds Credentials, endpoints Endpoints) *GitHubProvider {
	return &GitHubProvider{oauthClient{
		name:       string(domain.ProviderGitHub),
		creds:      creds,
		endpoints:  endpoints,
		httpClient: &http.Client{},
	}}
}

// ProviderName returns "github".
func (g *GitHubProvider) ProviderName() string { return string(domain.ProviderGitHub) }

// Enabled reports whether credentials are configured.
func (g *GitHubProvider) Enabled() bool { return g.creds.enabled() }

// AuthURL returns the consent screen URL.
func (g *GitHubProvider) AuthURL(state string) string {
	return g.consentURL(url.Values{
		"client_id":    {g.creds.ClientID},
		"redirect_uri": {g.creds.RedirectURL},
		"scope":        {"read:user user:email"},
		"state":        {state},
	})
}

// ExchangeCode exchanges an authorization code for tokens.
// GitHub reports failures with a 200 and an error field.
func (g *GitHubProvider) ExchangeCode(ctx context.Context, code string) (*domain.TokenPair, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		Error       string `json:"error"`
		ErrorDesc   string `json:"error_description"`
	}
	err := g.postForm(ctx, url.Values{
		"client_id":     {g.creds.ClientID},
		"client_secret": {g.creds.ClientSecret},
		"code":          {code},
		"redirect_uri":  {g.creds.RedirectURL},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("github: %s: %s", resp.Error, resp.ErrorDesc)
	}
	return &domain.TokenPair{AccessToken: resp.AccessToken, TokenType: resp.TokenType}, nil
}

// GetUserProfile fetches the GitHub profile, falling back to the emails
// endpoint when the public email is hidden.
func (g *GitHubProvider) GetUserProfile(ctx context.Context, accessToken string) (*domain.User, error) {
	var profile struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := g.getJSON(ctx, g.endpoints.ProfileURL, accessToken, githubAccept, &profile); err != nil {
		return nil, err
	}

	email := profile.Email
	if email == "" {
		email, _ = g.primaryEmail(ctx, accessToken)
	}
	name := profile.Name
	if name == "" {
		name = profile.Login
	}

	return &domain.User{
		Email:      email,
		Name:       name,
		AvatarURL:  profile.AvatarURL,
		Provider:   domain.ProviderGitHub,
		ProviderID: strconv.FormatInt(profile.ID, 10),
	}, nil
}

func (g *GitHubProvider) primaryEmail(ctx context.Context, accessToken string) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := g.getJSON(ctx, g.endpoints.EmailsURL, accessToken, githubAccept, &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, nil
	}
	return "", errors.New("github: no email on account")
}
