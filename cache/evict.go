package cache

import (
	"log/slog"
	"time"
)

// queueFullEviction schedules a full eviction on the pool. Timer requests
// take the immediate path; pressure signals take the staggered one.
func (t *Typed[V]) queueFullEviction(immediate bool) {
	if immediate {
		t.e.pool.Go("full-eviction", func() { t.evictImmediate(false) })
		return
	}
	t.e.pool.Go("staggered-eviction", t.evictStaggered)
}

// sweepQuickList is the periodic cheap pass. It never escalates to a store
// scan; the full timer covers that. A sweep already in progress wins.
func (t *Typed[V]) sweepQuickList() {
	t.evictQuickList(t.e.now(), false)
}

// evictImmediate runs quick list first and falls back to a store scan when
// the quick list does not cover the store. Coverage counts records, not
// distinct ids, so even a covered store is scanned every FullScanEvery
// passes; force scans unconditionally.
func (t *Typed[V]) evictImmediate(force bool) {
	if !t.gate.TryAcquire(1) {
		return
	}
	defer t.gate.Release(1)

	t.job.reschedule()

	now := t.e.now()
	if t.evictQuickList(now, true) && !force && !t.scanDue() {
		return
	}
	removed := t.scanStore(now)
	t.e.mgr.report(uint64(removed))
	t.e.pool.Go("consider-collect", func() { t.e.mgr.considerCollect(t.name) })
}

// scanDue counts a covered pass and reports whether enough of them ran in a
// row that the store should be scanned anyway.
func (t *Typed[V]) scanDue() bool {
	return int(t.coveredRuns.Add(1)) >= t.e.cfg.FullScanEvery
}

// evictStaggered is the pressure path. Pressure signals can arrive on every
// collection under heavy allocation, so the store is scanned only after
// PressureThreshold incomplete passes in a row, and the gate is held for
// PressureCooldown after every pass. Cooldowns release the gate from the
// timer itself: a worker may be blocked on that very gate.
func (t *Typed[V]) evictStaggered() {
	if !t.gate.TryAcquire(1) {
		return
	}
	cfg := &t.e.cfg
	pool := t.e.pool

	handedOff := false
	defer func() {
		if !handedOff {
			t.gate.Release(1)
		}
	}()

	release := func() { t.gate.Release(1) }

	if t.evictQuickList(t.e.now(), true) {
		handedOff = true
		pool.Timer(cfg.PressureCooldown, "pressure-cooldown", release)
		return
	}

	if int(t.pressureHits.Add(1)) < cfg.PressureThreshold {
		handedOff = true
		pool.Timer(cfg.PressureCooldown, "pressure-cooldown", release)
		return
	}

	handedOff = true
	pool.After(cfg.StoreScanDelay, "pressure-scan", func() {
		scanned := false
		defer func() {
			if !scanned {
				t.gate.Release(1)
			}
		}()

		removed := t.scanStore(t.e.now())
		t.e.mgr.report(uint64(removed))

		scanned = true
		pool.Timer(cfg.PressureCooldown, "pressure-cooldown", func() {
			t.pressureHits.Store(0)
			t.gate.Release(1)
		})
	})
}

// evictQuickList sweeps the quick list and reports whether it covered the
// whole store. With wait set it queues behind a sweep in progress instead of
// skipping.
func (t *Typed[V]) evictQuickList(now int64, wait bool) bool {
	complete, removed := t.quick.evict(now, t.store, wait)
	if removed > 0 {
		t.e.mgr.report(uint64(removed))
		t.e.cfg.Metrics.Evict(t.name, EvictQuickList, removed)
	}
	return complete
}

// scanStore removes every expired entry and rebuilds the quick list from the
// survivors. Caller holds the gate.
func (t *Typed[V]) scanStore(now int64) int {
	if t.onScan != nil {
		t.onScan()
	}
	start := time.Now()

	// survivors are re-admitted from scratch; stale records would only
	// take slots away from them
	t.quick.reset()
	t.coveredRuns.Store(0)

	strategy := ScanSingle
	var removed int
	if t.store.count() > t.e.cfg.ParallelScanThreshold {
		strategy = ScanParallel
		removed = t.store.sweepParallel(now, t.quick.add)
	} else {
		removed = t.store.sweep(now, t.quick.add)
	}

	elapsed := time.Since(start)
	size := t.store.count()
	m := t.e.cfg.Metrics
	m.Scan(t.name, strategy, elapsed)
	if removed > 0 {
		m.Evict(t.name, EvictStoreScan, removed)
	}
	m.Size(t.name, size)

	t.log.Debug("store scanned",
		slog.String("strategy", strategy.String()),
		slog.Int("removed", removed),
		slog.Int("remaining", size),
		slog.Duration("elapsed", elapsed))
	return removed
}
