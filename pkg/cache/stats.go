package cache

import (
	"sync"
	"time"

	"github.com/hlquant/hl-proxy/pkg/policy"
)

// Stats holds per-info-type hit and miss counters. Counters increase
// monotonically for the process lifetime; clearing the cache does not touch
// them.
type Stats struct {
	mu        sync.Mutex
	startedAt time.Time
	hits      map[string]int64
	misses    map[string]int64
}

// NewStats creates empty counters anchored at the current time.
func NewStats() *Stats {
	return &Stats{
		startedAt: time.Now(),
		hits:      make(map[string]int64),
		misses:    make(map[string]int64),
	}
}

// Hit records a cache hit for an info type.
func (s *Stats) Hit(infoType string) {
	s.mu.Lock()
	s.hits[infoType]++
	s.mu.Unlock()
}

// Miss records a cache miss for an info type.
func (s *Stats) Miss(infoType string) {
	s.mu.Lock()
	s.misses[infoType]++
	s.mu.Unlock()
}

// Counters is a hit/miss pair.
type Counters struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Snapshot is a point-in-time copy of the counters, aggregated per info type
// and per category.
type Snapshot struct {
	StartedAt   time.Time
	TotalHits   int64
	TotalMisses int64
	ByType      map[string]Counters
	ByCategory  map[policy.Category]Counters
}

// HitRate returns the fraction of gets served from cache, 0 when no gets
// have been recorded.
func (s Snapshot) HitRate() float64 {
	total := s.TotalHits + s.TotalMisses
	if total == 0 {
		return 0
	}
	return float64(s.TotalHits) / float64(total)
}

// Uptime returns the time elapsed since the counters were created.
func (s Snapshot) Uptime() time.Duration {
	return time.Since(s.StartedAt)
}

// Snapshot copies the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		StartedAt:  s.startedAt,
		ByType:     make(map[string]Counters, len(s.hits)+len(s.misses)),
		ByCategory: make(map[policy.Category]Counters),
	}

	for t, n := range s.hits {
		c := snap.ByType[t]
		c.Hits = n
		snap.ByType[t] = c
		snap.TotalHits += n
	}
	for t, n := range s.misses {
		c := snap.ByType[t]
		c.Misses = n
		snap.ByType[t] = c
		snap.TotalMisses += n
	}

	for t, c := range snap.ByType {
		cat, ok := policy.CategoryOf(t)
		if !ok {
			continue
		}
		agg := snap.ByCategory[cat]
		agg.Hits += c.Hits
		agg.Misses += c.Misses
		snap.ByCategory[cat] = agg
	}

	return snap
}
