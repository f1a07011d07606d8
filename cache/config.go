package cache

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"gopkg.in/yaml.v3"
)

// Default tuning values. They favour write throughput: quick-list sweeps are
// cheap and frequent, full store scans are rare and jittered.
const (
	DefaultQuickListCapacity     = 131_072
	DefaultQuickListInterval     = 5 * time.Second
	DefaultFullEvictionInterval  = 60 * time.Second
	DefaultFullEvictionJitter    = 15 * time.Second
	DefaultFullScanEvery         = 8
	DefaultParallelScanThreshold = 1_572_864
	DefaultPressureThreshold     = 4
	DefaultPressureCooldown      = time.Second
	DefaultStoreScanDelay        = 250 * time.Millisecond
	DefaultCollectThreshold      = 1_572_864
	DefaultCollectDelay          = 500 * time.Millisecond
	DefaultCollectCooldown       = 10 * time.Second
)

// Clock returns monotonic time in nanoseconds. Only differences between
// readings are meaningful. Tests plug in a fake to control expiry.
type Clock interface{ Now() int64 }

type monoClock struct{ start time.Time }

// Now relies on time.Since using the monotonic clock reading.
func (c monoClock) Now() int64 { return int64(time.Since(c.start)) }

// PressureSignal reports memory pressure. The engine subscribes one callback
// per cached type; fn must return quickly. See package pressure for sources.
type PressureSignal interface {
	Subscribe(fn func()) (cancel func())
}

// Config is the tuning surface of an Engine. Zero values are safe; New fills
// in defaults:
//   - numeric fields <= 0 => the Default* constant
//   - nil Logger          => slog.Default()
//   - nil Metrics         => NoopMetrics
//   - nil Clock           => monotonic wall clock
//   - nil Collect         => debug.FreeOSMemory
//   - nil Pressure        => timer-only eviction
type Config struct {
	// QuickListCapacity bounds the per-type recently-written buffer.
	QuickListCapacity int `yaml:"quick_list_capacity"`
	// QuickListInterval is the period of the cheap quick-list sweep.
	QuickListInterval time.Duration `yaml:"quick_list_interval"`

	// FullEvictionInterval is the mean period of the full sweep; each period
	// is drawn uniformly from Interval +/- Jitter so types do not align.
	// A negative jitter disables it.
	FullEvictionInterval time.Duration `yaml:"full_eviction_interval"`
	FullEvictionJitter   time.Duration `yaml:"full_eviction_jitter"`
	// FullScanEvery forces a store scan on every Nth timer-driven full
	// eviction even when the quick list reported full coverage. Coverage
	// counts records, so duplicates can hide an unlisted expired entry.
	FullScanEvery int `yaml:"full_scan_every"`

	// ParallelScanThreshold is the store size above which a full scan fans
	// out across shards.
	ParallelScanThreshold int `yaml:"parallel_scan_threshold"`

	// PressureThreshold is how many consecutive pressure signals with
	// incomplete quick-list coverage trigger a store scan.
	PressureThreshold int `yaml:"pressure_threshold"`
	// PressureCooldown is how long the full-eviction gate stays held after
	// a pressure-triggered pass.
	PressureCooldown time.Duration `yaml:"pressure_cooldown"`
	// StoreScanDelay postpones a pressure-triggered store scan.
	StoreScanDelay time.Duration `yaml:"store_scan_delay"`

	// CollectThreshold is the aggregate eviction count above which a full
	// collection is requested.
	CollectThreshold uint64 `yaml:"collect_threshold"`
	// CollectDelay separates the decision from the collection request.
	CollectDelay time.Duration `yaml:"collect_delay"`
	// CollectCooldown rate-limits collection requests process-wide.
	CollectCooldown time.Duration `yaml:"collect_cooldown"`

	// DisableEviction turns off timers and pressure handling. Manual
	// EvictNow/Clear keep working.
	DisableEviction bool `yaml:"disable_eviction"`
	// DisableCollect turns off the collection-pressure advisor.
	DisableCollect bool `yaml:"disable_collect"`

	// Workers bounds the background pool (<= 0 => GOMAXPROCS).
	Workers int `yaml:"workers"`
	// Debug re-raises panics from background tasks instead of logging them.
	Debug bool `yaml:"debug"`

	Logger   *slog.Logger   `yaml:"-"`
	Metrics  Metrics        `yaml:"-"`
	Clock    Clock          `yaml:"-"`
	Pressure PressureSignal `yaml:"-"`
	// Collect performs the collection request; it runs on a pool worker.
	Collect func() `yaml:"-"`
}

// DefaultConfig returns a Config with every tunable set to its default.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.QuickListCapacity <= 0 {
		c.QuickListCapacity = DefaultQuickListCapacity
	}
	if c.QuickListInterval <= 0 {
		c.QuickListInterval = DefaultQuickListInterval
	}
	if c.FullEvictionInterval <= 0 {
		c.FullEvictionInterval = DefaultFullEvictionInterval
	}
	if c.FullEvictionJitter == 0 {
		c.FullEvictionJitter = DefaultFullEvictionJitter
	}
	// jitter must leave a positive period
	if c.FullEvictionJitter >= c.FullEvictionInterval {
		c.FullEvictionJitter = c.FullEvictionInterval / 2
	}
	if c.FullScanEvery <= 0 {
		c.FullScanEvery = DefaultFullScanEvery
	}
	if c.ParallelScanThreshold <= 0 {
		c.ParallelScanThreshold = DefaultParallelScanThreshold
	}
	if c.PressureThreshold <= 0 {
		c.PressureThreshold = DefaultPressureThreshold
	}
	if c.PressureCooldown <= 0 {
		c.PressureCooldown = DefaultPressureCooldown
	}
	if c.StoreScanDelay <= 0 {
		c.StoreScanDelay = DefaultStoreScanDelay
	}
	if c.CollectThreshold == 0 {
		c.CollectThreshold = DefaultCollectThreshold
	}
	if c.CollectDelay <= 0 {
		c.CollectDelay = DefaultCollectDelay
	}
	if c.CollectCooldown <= 0 {
		c.CollectCooldown = DefaultCollectCooldown
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Metrics == nil {
		c.Metrics = NoopMetrics{}
	}
	if c.Clock == nil {
		c.Clock = monoClock{start: time.Now()}
	}
	if c.Collect == nil {
		c.Collect = debug.FreeOSMemory
	}
	return c
}

// ParseConfig decodes YAML over DefaultConfig. Durations use Go syntax
// ("250ms", "1m").
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("cache: parse config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads a YAML tuning file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cache: read config %s: %w", path, err)
	}
	return ParseConfig(data)
}
