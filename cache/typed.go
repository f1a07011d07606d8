package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/IvanBrykalov/ttlcache/internal/singleflight"
)

// Typed is the cache for one value type V inside an Engine: its store,
// quick list and eviction job. Obtain it with For; there is exactly one per
// (engine, V) and it lives as long as the engine.
//
// All methods are safe for concurrent use. Writers and readers never wait
// for eviction: at worst they contend on one store shard.
type Typed[V any] struct {
	name string
	e    *Engine
	log  *slog.Logger

	store *store[V]
	quick *quickList
	job   *evictionJob

	// gate admits one full eviction or clear at a time.
	gate *semaphore.Weighted
	// pressureHits counts pressure signals that found the quick list
	// incomplete since the last pressure-triggered scan.
	pressureHits atomic.Int32
	// coveredRuns counts timer passes the quick list covered since the
	// last store scan.
	coveredRuns atomic.Int32

	sf singleflight.Group[ID, V]

	// onScan runs inside every store scan while the gate is held (tests).
	onScan func()
}

func newTyped[V any](e *Engine, name string) *Typed[V] {
	t := &Typed[V]{
		name:  name,
		e:     e,
		log:   e.log.With(slog.String("type", name)),
		store: newStore[V](0, e.cfg.Clock),
		quick: newQuickList(e.cfg.QuickListCapacity),
		gate:  semaphore.NewWeighted(1),
	}
	t.job = newEvictionJob(&e.cfg,
		func() { e.pool.Go("quicklist-sweep", t.sweepQuickList) },
		func() { t.queueFullEviction(true) },
		func() {
			e.cfg.Metrics.Pressure(t.name)
			t.queueFullEviction(false)
		},
	)
	return t
}

// TypeName identifies V in logs and metrics.
func (t *Typed[V]) TypeName() string { return t.name }

// Set stores v under id for ttl, replacing any previous entry. A
// non-positive ttl makes the entry expire on the next tick.
func (t *Typed[V]) Set(id ID, v V, ttl time.Duration) {
	exp := t.store.insert(id, v, ttl)
	t.quick.add(id, exp)
}

// Get returns the value stored under id. Expired entries that no eviction
// pass has removed yet are still returned; use GetFresh to filter them.
func (t *Typed[V]) Get(id ID) (V, bool) {
	e, ok := t.store.lookup(id)
	return e.Value, ok
}

// GetFresh returns the value only if it has not expired yet.
func (t *Typed[V]) GetFresh(id ID) (V, bool) {
	e, ok := t.store.lookup(id)
	if !ok || e.Expired(t.e.now()) {
		var zero V
		return zero, false
	}
	return e.Value, true
}

// Lookup returns the raw entry, expired or not.
func (t *Typed[V]) Lookup(id ID) (Entry[V], bool) { return t.store.lookup(id) }

// Remove deletes id and reports whether it was present.
func (t *Typed[V]) Remove(id ID) bool { return t.store.remove(id) }

// Len returns the number of resident entries, expired ones included.
func (t *Typed[V]) Len() int { return t.store.count() }

// EvictNow queues an immediate full eviction that always ends with a store
// scan, whatever the quick list covered. It is a no-op if a full eviction
// is already running for this type.
func (t *Typed[V]) EvictNow() {
	t.e.pool.Go("forced-eviction", func() { t.evictImmediate(true) })
}

// Clear queues a full clear: the quick list is reset and the store emptied.
// The clear waits for the gate outside the worker bound.
func (t *Typed[V]) Clear() {
	t.e.pool.Blocking("full-clear", func() { _ = t.ClearNow(context.Background()) })
}

// ClearNow clears synchronously. It waits for an in-flight full eviction to
// finish first and returns ctx.Err() if ctx ends before that.
func (t *Typed[V]) ClearNow(ctx context.Context) error {
	t.quick.reset()
	if err := t.gate.Acquire(ctx, 1); err != nil {
		return err
	}
	defer t.gate.Release(1)

	n := t.store.count()
	t.store.clear()
	// a scan that ran while we waited may have re-admitted cleared ids
	t.quick.reset()

	t.e.cfg.Metrics.Evict(t.name, EvictClear, n)
	t.e.cfg.Metrics.Size(t.name, 0)
	t.log.Debug("store cleared", slog.Int("entries", n))
	return nil
}

// Suspend stops automatic eviction for this type. In-flight passes finish.
func (t *Typed[V]) Suspend() { t.job.stop() }

// Resume restarts automatic eviction; the next sweeps happen one interval
// from now. No-op when eviction is disabled engine-wide.
func (t *Typed[V]) Resume() { t.job.resume() }

// Running reports whether automatic eviction is active for this type.
func (t *Typed[V]) Running() bool { return t.job.running() }

// Admin is the type-erased administrative view of a Typed cache.
type Admin interface {
	TypeName() string
	Len() int
	Running() bool
	EvictNow()
	Clear()
	Suspend()
	Resume()
}

var _ Admin = (*Typed[int])(nil)
