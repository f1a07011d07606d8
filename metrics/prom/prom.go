// Package prom exports cache engine signals as Prometheus metrics.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/ttlcache/cache"
)

// Adapter implements cache.Metrics and exports Prometheus counters/gauges,
// labelled by cached value type.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits     *prometheus.CounterVec
	misses   *prometheus.CounterVec
	evicts   *prometheus.CounterVec
	scans    *prometheus.HistogramVec
	size     *prometheus.GaugeVec
	pressure *prometheus.CounterVec
	collects prometheus.Counter
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		}, labels)
	}
	a := &Adapter{
		hits:     counter("hits_total", "GetOrCompute hits", "type"),
		misses:   counter("misses_total", "GetOrCompute misses", "type"),
		evicts:   counter("evictions_total", "Entries removed by reason", "type", "reason"),
		pressure: counter("pressure_signals_total", "Memory pressure signals received", "type"),
		scans: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "store_scan_seconds",
			Help:        "Duration of full store scans",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"type", "strategy"}),
		size: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_entries",
			Help:        "Resident entries after the last scan or clear",
			ConstLabels: constLabels,
		}, []string{"type"}),
		collects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "collections_total",
			Help:        "Full collections requested by the engine",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.pressure, a.scans, a.size, a.collects)
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit(typ string) { a.hits.WithLabelValues(typ).Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss(typ string) { a.misses.WithLabelValues(typ).Inc() }

// Evict adds n to the eviction counter for reason.
func (a *Adapter) Evict(typ string, r cache.EvictReason, n int) {
	if n <= 0 {
		return
	}
	a.evicts.WithLabelValues(typ, r.String()).Add(float64(n))
}

// Scan observes the duration of one store scan.
func (a *Adapter) Scan(typ string, s cache.ScanStrategy, elapsed time.Duration) {
	a.scans.WithLabelValues(typ, s.String()).Observe(elapsed.Seconds())
}

// Size updates the resident entries gauge.
func (a *Adapter) Size(typ string, entries int) {
	a.size.WithLabelValues(typ).Set(float64(entries))
}

func (a *Adapter) Pressure(typ string) { a.pressure.WithLabelValues(typ).Inc() }

func (a *Adapter) Collect() { a.collects.Inc() }

// Compile-time check: ensure Adapter implements cache.Metrics.
var _ cache.Metrics = (*Adapter)(nil)
