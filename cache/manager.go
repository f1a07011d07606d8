package cache

import (
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/IvanBrykalov/ttlcache/internal/pool"
	"github.com/IvanBrykalov/ttlcache/internal/util"
)

// manager holds the engine-wide eviction state: the aggregate eviction
// counter shared by every type and the collection-pressure advisor gate.
type manager struct {
	cfg     *Config
	pool    *pool.Pool
	log     *slog.Logger
	metrics Metrics

	evictions util.PaddedAtomicUint64
	gcGate    *semaphore.Weighted
	collects  atomic.Int64
}

func newManager(cfg *Config, p *pool.Pool, log *slog.Logger) *manager {
	return &manager{
		cfg:     cfg,
		pool:    p,
		log:     log,
		metrics: cfg.Metrics,
		gcGate:  semaphore.NewWeighted(1),
	}
}

// report adds n evictions to the aggregate counter.
func (m *manager) report(n uint64) {
	if n > 0 {
		m.evictions.Add(n)
	}
}

// considerCollect requests a full collection once enough evictions piled
// up. Only one request is in flight per engine; after it the gate stays
// held for CollectCooldown so collections never run back to back.
func (m *manager) considerCollect(source string) {
	if m.cfg.DisableCollect {
		return
	}
	if m.evictions.Load() <= m.cfg.CollectThreshold {
		return
	}
	if !m.gcGate.TryAcquire(1) {
		return
	}
	m.pool.After(m.cfg.CollectDelay, "collect", func() {
		done := false
		defer func() {
			if !done {
				m.gcGate.Release(1)
			}
		}()

		was := m.evictions.Load()
		start := time.Now()
		m.cfg.Collect()
		m.evictions.Store(0)
		m.collects.Add(1)
		m.metrics.Collect()
		m.log.Debug("full collection requested",
			slog.String("source", source),
			slog.Uint64("evictions", was),
			slog.Duration("elapsed", time.Since(start)))

		done = true
		m.pool.Timer(m.cfg.CollectCooldown, "collect-cooldown", func() { m.gcGate.Release(1) })
	})
}
