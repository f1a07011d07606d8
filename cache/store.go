package cache

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/ttlcache/internal/util"
)

// store is the source of truth for one value type: ID -> Entry, split into
// power-of-two shards, each guarded by its own RWMutex.
//
// Lookups never check expiry; stale entries stay readable until an eviction
// pass removes them.
type store[V any] struct {
	shards []*storeShard[V]
	clock  Clock
}

type storeShard[V any] struct {
	// ---- guarded by mu ----
	mu sync.RWMutex
	m  map[ID]Entry[V]

	// size mirrors len(m); written under mu, read lock-free by count().
	_    util.CacheLinePad
	size util.PaddedAtomicInt64
}

func newStore[V any](shards int, clock Clock) *store[V] {
	n := util.ShardCount(shards)
	s := &store[V]{shards: make([]*storeShard[V], n), clock: clock}
	for i := range s.shards {
		s.shards[i] = &storeShard[V]{m: make(map[ID]Entry[V])}
	}
	return s
}

func (s *store[V]) shard(id ID) *storeShard[V] {
	return s.shards[util.ShardIndex(id, len(s.shards))]
}

// insert stores v under id, overwriting any previous entry, and returns the
// expiry tick now+ttl.
func (s *store[V]) insert(id ID, v V, ttl time.Duration) int64 {
	now := s.clock.Now()
	exp := now + int64(ttl)
	if ttl > 0 && exp < now {
		exp = math.MaxInt64 // overflow: effectively never expires
	}
	sh := s.shard(id)
	sh.mu.Lock()
	if _, ok := sh.m[id]; !ok {
		sh.size.Add(1)
	}
	sh.m[id] = Entry[V]{Value: v, ExpiresAt: exp}
	sh.mu.Unlock()
	return exp
}

// lookup returns the entry regardless of its expiry state.
func (s *store[V]) lookup(id ID) (Entry[V], bool) {
	sh := s.shard(id)
	sh.mu.RLock()
	e, ok := sh.m[id]
	sh.mu.RUnlock()
	return e, ok
}

// expiry is lookup without copying the value out.
func (s *store[V]) expiry(id ID) (int64, bool) {
	sh := s.shard(id)
	sh.mu.RLock()
	e, ok := sh.m[id]
	sh.mu.RUnlock()
	return e.ExpiresAt, ok
}

func (s *store[V]) remove(id ID) bool {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.m[id]; !ok {
		return false
	}
	delete(sh.m, id)
	sh.size.Add(-1)
	return true
}

// removeExpired deletes id only if it is still expired at now, so a renewal
// racing with an eviction pass is never lost.
func (s *store[V]) removeExpired(id ID, now int64) bool {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.m[id]
	if !ok || !e.Expired(now) {
		return false
	}
	delete(sh.m, id)
	sh.size.Add(-1)
	return true
}

// clear empties every shard. Fresh maps release the old buckets.
func (s *store[V]) clear() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.m = make(map[ID]Entry[V])
		sh.size.Store(0)
		sh.mu.Unlock()
	}
}

func (s *store[V]) count() int {
	var n int64
	for _, sh := range s.shards {
		n += sh.size.Load()
	}
	return int(n)
}

// sweepShard removes expired entries of shard i and hands survivors to keep.
// The shard's write lock is held for one shard's worth of entries only.
func (s *store[V]) sweepShard(i int, now int64, keep func(ID, int64)) int {
	sh := s.shards[i]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	removed := 0
	for id, e := range sh.m {
		if e.Expired(now) {
			delete(sh.m, id)
			removed++
			continue
		}
		keep(id, e.ExpiresAt)
	}
	sh.size.Add(int64(-removed))
	return removed
}

// sweep walks the shards one after another.
func (s *store[V]) sweep(now int64, keep func(ID, int64)) int {
	removed := 0
	for i := range s.shards {
		removed += s.sweepShard(i, now, keep)
	}
	return removed
}

// sweepParallel fans shards out over GOMAXPROCS goroutines. keep must be
// safe for concurrent callers.
func (s *store[V]) sweepParallel(now int64, keep func(ID, int64)) int {
	var removed atomic.Int64
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range s.shards {
		g.Go(func() error {
			removed.Add(int64(s.sweepShard(i, now, keep)))
			return nil
		})
	}
	_ = g.Wait() // shard sweeps never fail
	return int(removed.Load())
}
