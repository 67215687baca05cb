package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hlquant/hl-proxy/pkg/policy"
)

// Memory is the default in-process store: a map guarded by a single mutex,
// with a reverse index from account address to keys for post-trade
// invalidation. Expiry is lazy; an expired entry is evicted by the Get that
// observes it.
type Memory struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	userKeys map[string]map[string]struct{}
	stats    *Stats

	// now is swappable so TTL behavior can be tested without sleeping.
	now func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries:  make(map[string]*Entry),
		userKeys: make(map[string]map[string]struct{}),
		stats:    NewStats(),
		now:      time.Now,
	}
}

// SetClock replaces the store's time source (for testing).
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key Key) (*Entry, error) {
	ks := key.String()

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[ks]
	if !ok {
		m.stats.Miss(key.InfoType)
		CacheMisses.WithLabelValues(key.InfoType).Inc()
		return nil, ErrCacheMiss
	}

	if !entry.FreshAt(m.now()) {
		m.deleteLocked(ks, entry)
		CacheInvalidations.WithLabelValues("expired").Inc()
		m.stats.Miss(key.InfoType)
		CacheMisses.WithLabelValues(key.InfoType).Inc()
		return nil, ErrCacheMiss
	}

	m.stats.Hit(key.InfoType)
	CacheHits.WithLabelValues(key.InfoType).Inc()
	return entry, nil
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, key Key, body []byte, ttl time.Duration) error {
	ks := key.String()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[ks] = &Entry{
		Body:     body,
		Category: key.Category,
		InfoType: key.InfoType,
		User:     key.User,
		StoredAt: m.now(),
		TTL:      ttl,
	}
	if key.User != "" {
		keys, ok := m.userKeys[key.User]
		if !ok {
			keys = make(map[string]struct{})
			m.userKeys[key.User] = keys
		}
		keys[ks] = struct{}{}
	}

	CacheEntries.WithLabelValues("memory").Set(float64(len(m.entries)))
	return nil
}

// InvalidateUser implements Store.
func (m *Memory) InvalidateUser(_ context.Context, user string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := m.userKeys[user]
	delete(m.userKeys, user)

	count := 0
	for ks := range keys {
		if _, ok := m.entries[ks]; ok {
			delete(m.entries, ks)
			count++
		}
	}

	m.finishInvalidateLocked("user", count)
	return count, nil
}

// InvalidateCategory implements Store.
func (m *Memory) InvalidateCategory(_ context.Context, c policy.Category) (int, error) {
	return m.invalidateMatching("category", func(e *Entry) bool {
		return e.Category == c
	})
}

// InvalidateType implements Store.
func (m *Memory) InvalidateType(_ context.Context, infoType string) (int, error) {
	return m.invalidateMatching("type", func(e *Entry) bool {
		return e.InfoType == infoType
	})
}

// Clear implements Store.
func (m *Memory) Clear(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := len(m.entries)
	m.entries = make(map[string]*Entry)
	m.userKeys = make(map[string]map[string]struct{})

	m.finishInvalidateLocked("all", count)
	return count, nil
}

// Size implements Store.
func (m *Memory) Size(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

// Stats implements Store.
func (m *Memory) Stats() *Stats {
	return m.stats
}

func (m *Memory) invalidateMatching(reason string, match func(*Entry) bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for ks, entry := range m.entries {
		if match(entry) {
			m.deleteLocked(ks, entry)
			count++
		}
	}

	m.finishInvalidateLocked(reason, count)
	return count, nil
}

// deleteLocked removes one entry and its reverse-index slot.
func (m *Memory) deleteLocked(ks string, entry *Entry) {
	delete(m.entries, ks)
	if entry.User != "" {
		if keys, ok := m.userKeys[entry.User]; ok {
			delete(keys, ks)
			if len(keys) == 0 {
				delete(m.userKeys, entry.User)
			}
		}
	}
	CacheEntries.WithLabelValues("memory").Set(float64(len(m.entries)))
}

func (m *Memory) finishInvalidateLocked(reason string, count int) {
	if count > 0 {
		CacheInvalidations.WithLabelValues(reason).Add(float64(count))
	}
	CacheEntries.WithLabelValues("memory").Set(float64(len(m.entries)))
}
