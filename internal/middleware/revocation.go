package middleware

import (
	"sync"
	"time"
)

// Denylist remembers revoked token ids until their natural expiry.
type Denylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewDenylist creates an empty denylist.
func NewDenylist() *Denylist {
	return &Denylist{entries: map[string]time.Time{}, now: time.Now}
}

// Revoke marks tokenID revoked until expires.
func (d *Denylist) Revoke(tokenID string, expires time.Time) {
	if tokenID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweepLocked()
	d.entries[tokenID] = expires
}

// IsRevoked implements RevocationChecker.
func (d *Denylist) IsRevoked(tokenID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.entries[tokenID]
	return ok && d.now().Before(exp)
}

// Len returns the number of live entries.
func (d *Denylist) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweepLocked()
	return len(d.entries)
}

func (d *Denylist) sweepLocked() {
	now := d.now()
	for id, exp := range d.entries {
		if !now.Before(exp) {
			delete(d.entries, id)
		}
	}
}
