package cache

import (
	"sync"
	"testing"

	"github.com/hlquant/hl-proxy/pkg/policy"
)

func TestStats_Snapshot(t *testing.T) {
	stats := NewStats()

	stats.Miss("allMids")
	stats.Hit("allMids")
	stats.Hit("allMids")
	stats.Miss("openOrders")
	stats.Hit("meta")

	snap := stats.Snapshot()

	if snap.TotalHits != 3 {
		t.Errorf("TotalHits = %d, want 3", snap.TotalHits)
	}
	if snap.TotalMisses != 2 {
		t.Errorf("TotalMisses = %d, want 2", snap.TotalMisses)
	}

	if c := snap.ByType["allMids"]; c.Hits != 2 || c.Misses != 1 {
		t.Errorf("allMids = %+v, want {2 1}", c)
	}
	if c := snap.ByCategory[policy.CategoryPrice]; c.Hits != 2 || c.Misses != 1 {
		t.Errorf("price category = %+v, want {2 1}", c)
	}
	if c := snap.ByCategory[policy.CategoryUserState]; c.Hits != 0 || c.Misses != 1 {
		t.Errorf("user-state category = %+v, want {0 1}", c)
	}
	if c := snap.ByCategory[policy.CategoryMetadata]; c.Hits != 1 || c.Misses != 0 {
		t.Errorf("metadata category = %+v, want {1 0}", c)
	}
}

func TestStats_HitRate(t *testing.T) {
	stats := NewStats()

	if rate := stats.Snapshot().HitRate(); rate != 0 {
		t.Errorf("empty hit rate = %f, want 0", rate)
	}

	stats.Hit("allMids")
	stats.Hit("allMids")
	stats.Miss("allMids")
	stats.Miss("allMids")

	if rate := stats.Snapshot().HitRate(); rate != 0.5 {
		t.Errorf("hit rate = %f, want 0.5", rate)
	}
}

// Snapshots must be copies: mutating counters after a snapshot cannot
// change it.
func TestStats_SnapshotIsCopy(t *testing.T) {
	stats := NewStats()
	stats.Hit("allMids")

	snap := stats.Snapshot()
	stats.Hit("allMids")
	stats.Miss("allMids")

	if c := snap.ByType["allMids"]; c.Hits != 1 || c.Misses != 0 {
		t.Errorf("snapshot mutated: %+v", c)
	}
}

func TestStats_Concurrent(t *testing.T) {
	stats := NewStats()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				stats.Hit("allMids")
				stats.Miss("meta")
			}
		}()
	}
	wg.Wait()

	snap := stats.Snapshot()
	if snap.TotalHits != 800 || snap.TotalMisses != 800 {
		t.Errorf("totals = %d/%d, want 800/800", snap.TotalHits, snap.TotalMisses)
	}
}
