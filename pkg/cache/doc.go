// Package cache stores upstream response bodies with per-entry expiry and a
// category tag, and owns the hit/miss counters reported by the admin surface.
//
// Two backends implement the Store interface:
//
//   - Memory: the default in-process map. Entries live for the process
//     lifetime at most; expiry is evaluated lazily on read and expired
//     entries are evicted opportunistically. A single mutex guards the map,
//     which is sufficient because the unit of atomicity is one entry.
//
//   - Redis: an optional shared backend for running several proxy instances
//     behind one IP. Entries are JSON-encoded with a native Redis TTL, so
//     expiry needs no sweeping at all.
//
// Hit/miss counters are process-local in both backends, monotonically
// increasing, and deliberately not reset by cache clears: they describe the
// traffic the proxy has seen, not the cache contents.
//
// Invalidation is correctness-critical: after a confirmed trade, every
// user-state entry of the acting account must go. The store therefore keeps
// a reverse index from account address to cache keys.
package cache
