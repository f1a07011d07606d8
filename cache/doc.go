// Package cache provides a generic in-memory cache with per-entry TTL and a
// background eviction engine tuned for write-heavy workloads.
//
// Design
//
//   - Per-type caches: an Engine keeps one Typed[V] per value type V, created
//     lazily by For. Each owns its store, quick list and eviction job; types
//     never share locks.
//
//   - Storage: the store is split into power-of-two shards, each a map
//     protected by an RWMutex. Reads do not check expiry, so an expired entry
//     stays visible until an eviction pass removes it (GetFresh filters).
//
//   - Quick list: every write is also recorded in a bounded, double-buffered
//     list of (id, expiry) pairs. Sweeping it removes what expired among
//     recent writes and tells whether it accounts for the whole store; if so,
//     the full store scan is skipped for that cycle.
//
//   - Eviction: a short timer sweeps the quick list, a longer jittered timer
//     runs a full eviction (quick list first, store scan as fallback). Large
//     stores are scanned in parallel across shards. At most one full
//     eviction or clear runs per type; overlapping requests are dropped.
//
//   - Pressure: Config.Pressure (see package pressure) triggers a cautious
//     path that scans the store only after several incomplete quick-list
//     passes in a row, and holds off further passes for a cooldown.
//
//   - Collections: evictions from all types add up in one counter. Past
//     Config.CollectThreshold the engine requests a full collection
//     (debug.FreeOSMemory by default), at most once per CollectCooldown.
//
// Basic usage
//
//	e := cache.New(cache.Config{})
//	defer e.Close()
//
//	users := cache.For[User](e)
//	users.Set(42, User{Name: "ann"}, time.Minute)
//	if u, ok := users.GetFresh(42); ok {
//	    _ = u
//	}
//
// With GetOrCompute
//
//	u, err := cache.GetOrCompute(ctx, users, "ann@example.com",
//	    func(ctx context.Context, email string) (User, error) {
//	        return db.UserByEmail(ctx, email)
//	    }, 5*time.Minute)
//
// Thread-safety
//
// All exported methods are safe for concurrent use. Writers hold one shard
// lock for one map assignment and never wait for eviction.
package cache
