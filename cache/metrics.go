package cache

import "time"

// EvictReason explains why entries left a store.
type EvictReason int

const (
	// EvictQuickList: reclaimed by the cheap quick-list sweep.
	EvictQuickList EvictReason = iota
	// EvictStoreScan: reclaimed by a full store scan.
	EvictStoreScan
	// EvictClear: dropped by a full clear.
	EvictClear
)

// String returns a stable label value.
func (r EvictReason) String() string {
	switch r {
	case EvictQuickList:
		return "quicklist"
	case EvictStoreScan:
		return "store"
	case EvictClear:
		return "clear"
	default:
		return "unknown"
	}
}

// ScanStrategy tells how a full store scan walked the shards.
type ScanStrategy int

const (
	ScanSingle ScanStrategy = iota
	ScanParallel
)

func (s ScanStrategy) String() string {
	if s == ScanParallel {
		return "parallel"
	}
	return "single"
}

// Metrics exposes engine observability hooks. typ is the cached value type
// name (see Typed.TypeName). Implementations must be safe for concurrent use.
type Metrics interface {
	Hit(typ string)
	Miss(typ string)
	Evict(typ string, reason EvictReason, n int)
	Scan(typ string, strategy ScanStrategy, elapsed time.Duration)
	Size(typ string, entries int)
	Pressure(typ string)
	Collect()
}

// NoopMetrics is the default Metrics; it does nothing.
type NoopMetrics struct{}

func (NoopMetrics) Hit(string)                               {}
func (NoopMetrics) Miss(string)                              {}
func (NoopMetrics) Evict(string, EvictReason, int)           {}
func (NoopMetrics) Scan(string, ScanStrategy, time.Duration) {}
func (NoopMetrics) Size(string, int)                         {}
func (NoopMetrics) Pressure(string)                          {}
func (NoopMetrics) Collect()                                 {}

var _ Metrics = NoopMetrics{}
