package cache

import (
	"context"
	"errors"
	"time"

	"github.com/hlquant/hl-proxy/pkg/policy"
)

// ErrCacheMiss indicates the requested key is absent or no longer fresh.
var ErrCacheMiss = errors.New("cache miss")

// Store is the single owner of cached entries and their hit/miss counters.
// Implementations must support overlapping readers and writers; the unit of
// atomicity is one entry (a concurrent Put and Get on the same key resolve
// to either the old or the new value, never a mixture).
type Store interface {
	// Get returns the entry for key if present and fresh, ErrCacheMiss
	// otherwise. Expired entries count as misses and may be evicted on
	// this read. Every Get updates the hit/miss counters.
	Get(ctx context.Context, key Key) (*Entry, error)

	// Put stores body under key with the given TTL, unconditionally
	// replacing any existing entry (last-write-wins).
	Put(ctx context.Context, key Key, body []byte, ttl time.Duration) error

	// InvalidateUser removes every entry scoped to the given account and
	// returns the number removed.
	InvalidateUser(ctx context.Context, user string) (int, error)

	// InvalidateCategory removes every entry of a category.
	InvalidateCategory(ctx context.Context, c policy.Category) (int, error)

	// InvalidateType removes every entry of one info type.
	InvalidateType(ctx context.Context, infoType string) (int, error)

	// Clear removes all entries. Counters are not reset.
	Clear(ctx context.Context) (int, error)

	// Size returns the current number of entries, including entries that
	// have expired but not yet been evicted.
	Size(ctx context.Context) (int, error)

	// Stats returns the store's hit/miss counters.
	Stats() *Stats
}
