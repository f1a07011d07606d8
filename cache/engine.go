package cache

import (
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/IvanBrykalov/ttlcache/internal/pool"
	"github.com/IvanBrykalov/ttlcache/internal/reflector"
)

// Engine owns one Typed cache per value type, the background pool that runs
// all eviction work and the engine-wide eviction counter.
//
// The zero value is not usable; construct with New or use Default.
type Engine struct {
	cfg  Config
	log  *slog.Logger
	pool *pool.Pool
	mgr  *manager

	mu     sync.RWMutex
	types  map[reflect.Type]any // *Typed[V]
	admins map[string]Admin
	jobs   []*evictionJob
	closed bool
}

// New creates an engine. Zero-valued fields of cfg take their defaults.
func New(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:    cfg,
		log:    cfg.Logger.With(slog.String("component", "ttlcache")),
		types:  make(map[reflect.Type]any),
		admins: make(map[string]Admin),
	}
	e.pool = pool.New(pool.Options{Workers: cfg.Workers, Logger: e.log, Debug: cfg.Debug})
	e.mgr = newManager(&e.cfg, e.pool, e.log)
	return e
}

var defaultEngine = sync.OnceValue(func() *Engine { return New(Config{}) })

// Default returns the process-wide engine with default tuning, created on
// first use.
func Default() *Engine { return defaultEngine() }

// For returns the cache for value type V, creating it on first use.
func For[V any](e *Engine) *Typed[V] {
	rt := reflector.TypeOf[V]()

	e.mu.RLock()
	t, ok := e.types[rt]
	e.mu.RUnlock()
	if ok {
		return t.(*Typed[V])
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.types[rt]; ok {
		return t.(*Typed[V])
	}
	typed := newTyped[V](e, reflector.Name(rt))
	if e.closed {
		typed.job.close()
	}
	e.types[rt] = typed
	e.admins[typed.name] = typed
	e.jobs = append(e.jobs, typed.job)
	e.log.Debug("type registered", slog.String("type", typed.name))
	return typed
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// ReportEvictions adds n externally evicted entries to the counter that
// drives full-collection requests.
func (e *Engine) ReportEvictions(n uint64) {
	e.mgr.report(n)
	e.pool.Go("consider-collect", func() { e.mgr.considerCollect("external") })
}

// Evictions returns the counter value accumulated since the last collection.
func (e *Engine) Evictions() uint64 { return e.mgr.evictions.Load() }

// Collections returns how many full collections the engine requested.
func (e *Engine) Collections() int64 { return e.mgr.collects.Load() }

// Types lists the registered caches ordered by type name.
func (e *Engine) Types() []Admin {
	e.mu.RLock()
	out := make([]Admin, 0, len(e.admins))
	for _, a := range e.admins {
		out = append(out, a)
	}
	e.mu.RUnlock()
	slices.SortFunc(out, func(a, b Admin) int { return strings.Compare(a.TypeName(), b.TypeName()) })
	return out
}

// Lookup finds a registered cache by its type name.
func (e *Engine) Lookup(name string) (Admin, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.admins[name]
	return a, ok
}

// Close stops every eviction timer and pressure subscription. Caches stay
// usable; manual EvictNow and Clear still work.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	jobs := slices.Clone(e.jobs)
	e.mu.Unlock()

	for _, j := range jobs {
		j.close()
	}
}

// Wait blocks until all queued background work, delayed continuations
// included, has finished.
func (e *Engine) Wait() { e.pool.Wait() }

func (e *Engine) now() int64 { return e.cfg.Clock.Now() }
