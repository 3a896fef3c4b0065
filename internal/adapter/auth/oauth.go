// Package auth holds the OAuth2 identity provider adapters.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Endpoints are the provider URLs. Tests point them at a local server.
type Endpoints struct {
	AuthURL    string
	TokenURL   string
	ProfileURL string
	EmailsURL  string // GitHub only
}

// Credentials configure one OAuth client registration.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func (c Credentials) enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type oauthClient struct {
	name       string
	creds      Credentials
	endpoints  Endpoints
	httpClient *http.Client
}

func (o *oauthClient) consentURL(params url.Values) string {
	return o.endpoints.AuthURL + "?" + params.Encode()
}

func (o *oauthClient) postForm(ctx context.Context, data url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoints.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("%s: create token request: %w", o.name, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return o.do(req, "token exchange", out)
}

func (o *oauthClient) getJSON(ctx context.Context, rawURL, accessToken, accept string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%s: create profile request: %w", o.name, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return o.do(req, "profile fetch", out)
}

func (o *oauthClient) do(req *http.Request, what string, out any) error {
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", o.name, what, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: %s failed (%d): %s", o.name, what, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode %s response: %w", o.name, what, err)
	}
	return nil
}
