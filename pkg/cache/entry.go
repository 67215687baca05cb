package cache

import (
	"time"

	"github.com/hlquant/hl-proxy/pkg/policy"
)

// Entry is a cached upstream response body. Entries are immutable once
// written; a Put for the same key replaces the whole entry.
type Entry struct {
	// Body is the opaque upstream response body.
	Body []byte `json:"body"`

	// Category and InfoType mirror the key, for scoped invalidation.
	Category policy.Category `json:"category"`
	InfoType string          `json:"info_type"`

	// User is the account address for user-scoped entries.
	User string `json:"user,omitempty"`

	// StoredAt is when the entry was written.
	StoredAt time.Time `json:"stored_at"`

	// TTL is the freshness window from the policy table.
	TTL time.Duration `json:"ttl"`
}

// FreshAt reports whether the entry is still fresh at the given instant.
// An entry is fresh iff now < storedAt + ttl.
func (e *Entry) FreshAt(now time.Time) bool {
	return now.Before(e.StoredAt.Add(e.TTL))
}

// ExpiresAt returns the instant the entry becomes stale.
func (e *Entry) ExpiresAt() time.Time {
	return e.StoredAt.Add(e.TTL)
}
