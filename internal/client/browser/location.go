// Package browser models the page location and full-page navigation of a
// browser so the client state machines run without one.
package browser

import (
	"net/url"
	"sync"
)

// Location is an in-memory page location with a history stack.
type Location struct {
	mu      sync.Mutex
	history []url.URL
}

// NewLocation starts at start, which may carry a query string (e.g. an OAuth return).
func NewLocation(start string) *Location {
	return &Location{history: []url.URL{parse(start)}}
}

// Current returns the current location.
func (l *Location) Current() url.URL {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.history[len(l.history)-1]
}

// Navigate pushes target onto the history.
func (l *Location) Navigate(target string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history = append(l.history, parse(target))
}

// Replace swaps the current entry for target.
func (l *Location) Replace(target string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history[len(l.history)-1] = parse(target)
}

// History returns every entry, oldest first.
func (l *Location) History() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.history))
	for i, u := range l.history {
		out[i] = u.RequestURI()
	}
	return out
}

func parse(target string) url.URL {
	u, err := url.Parse(target)
	if err != nil || u == nil {
		return url.URL{Path: "/"}
	}
	// Only the in-app part of a URL is kept.
	rel := url.URL{Path: u.Path, RawQuery: u.RawQuery, Fragment: u.Fragment}
	if rel.Path == "" {
		rel.Path = "/"
	}
	return rel
}
