package cache

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct{ t atomic.Int64 }

func (f *fakeClock) Now() int64          { return f.t.Load() }
func (f *fakeClock) add(d time.Duration) { f.t.Add(int64(d)) }
func (f *fakeClock) set(d time.Duration) { f.t.Store(int64(d)) }

// recMetrics records every signal for assertions.
type recMetrics struct {
	mu       sync.Mutex
	evicted  map[EvictReason]int
	scans    map[ScanStrategy]int
	hits     int
	misses   int
	pressure int
	collects int
	size     map[string]int
}

func newRecMetrics() *recMetrics {
	return &recMetrics{
		evicted: map[EvictReason]int{},
		scans:   map[ScanStrategy]int{},
		size:    map[string]int{},
	}
}

func (m *recMetrics) Hit(string)  { m.mu.Lock(); m.hits++; m.mu.Unlock() }
func (m *recMetrics) Miss(string) { m.mu.Lock(); m.misses++; m.mu.Unlock() }
func (m *recMetrics) Evict(_ string, r EvictReason, n int) {
	m.mu.Lock()
	m.evicted[r] += n
	m.mu.Unlock()
}
func (m *recMetrics) Scan(_ string, s ScanStrategy, _ time.Duration) {
	m.mu.Lock()
	m.scans[s]++
	m.mu.Unlock()
}
func (m *recMetrics) Size(typ string, n int) { m.mu.Lock(); m.size[typ] = n; m.mu.Unlock() }
func (m *recMetrics) Pressure(string)        { m.mu.Lock(); m.pressure++; m.mu.Unlock() }
func (m *recMetrics) Collect()               { m.mu.Lock(); m.collects++; m.mu.Unlock() }

func (m *recMetrics) evictedBy(r EvictReason) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evicted[r]
}

func (m *recMetrics) scansBy(s ScanStrategy) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scans[s]
}

// newTestEngine builds an engine with inert timers and a fake clock. mod may
// adjust the config before construction.
func newTestEngine(t *testing.T, mod func(*Config)) (*Engine, *fakeClock) {
	t.Helper()
	clk := &fakeClock{}
	cfg := Config{
		DisableEviction: true,
		DisableCollect:  true,
		Clock:           clk,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		Debug:           true,
	}
	if mod != nil {
		mod(&cfg)
	}
	e := New(cfg)
	t.Cleanup(func() {
		e.Close()
		e.Wait()
	})
	return e, clk
}
