package port

import (
	"context"
	"net/url"
)

// TokenStore is durable client-side storage for the bearer token.
// Load returns "" with a nil error when no token is stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Location is the client's current in-app page location and history.
type Location interface {
	// Current returns a copy of the current location.
	Current() url.URL

	// Navigate pushes target (path plus optional query) as the new location.
	Navigate(target string)

	// Replace swaps the current history entry for target without a navigation.
	Replace(target string)
}

// ExternalNavigator performs a full navigation away from the application.
// It is fire-and-forget: nothing is observable in-process afterwards.
type ExternalNavigator interface {
	NavigateExternal(rawURL string)
}
