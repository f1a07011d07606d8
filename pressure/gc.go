package pressure

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// GCNotifier emits a signal after garbage-collection cycles.
//
// It keeps exactly one unreachable sentinel object with a finalizer alive;
// when the collector reclaims it, the finalizer notifies subscribers and arms
// a fresh sentinel for the next cycle. The chain runs only while there is at
// least one subscriber.
//
// Go's collector is not generational, so every cycle counts. MinInterval
// drops signals arriving faster than that; consumers are expected to apply
// their own backoff as well.
type GCNotifier struct {
	// MinInterval is the minimum spacing between emitted signals.
	MinInterval time.Duration

	h       hub
	armMu   sync.Mutex
	armed   bool
	last    atomic.Int64 // unix nanos of the last emitted signal
	cycles  atomic.Int64
	emitted atomic.Int64
}

// NewGCNotifier returns a notifier that emits at most once per minInterval.
func NewGCNotifier(minInterval time.Duration) *GCNotifier {
	return &GCNotifier{MinInterval: minInterval}
}

// sentinel must contain a pointer: pointer-free objects smaller than 16
// bytes go through the tiny allocator, where finalizers are unreliable.
type sentinel struct {
	n *GCNotifier
}

// Subscribe registers fn to run after GC cycles. fn runs on the runtime's
// finalizer goroutine and must not block.
func (g *GCNotifier) Subscribe(fn func()) (cancel func()) {
	id, _ := g.h.add(fn)
	g.arm()
	var once sync.Once
	return func() {
		once.Do(func() { g.h.remove(id) })
	}
}

// Cycles reports the GC cycles observed while subscribed.
func (g *GCNotifier) Cycles() int64 { return g.cycles.Load() }

// Emitted reports how many signals reached subscribers.
func (g *GCNotifier) Emitted() int64 { return g.emitted.Load() }

func (g *GCNotifier) arm() {
	g.armMu.Lock()
	defer g.armMu.Unlock()
	if g.armed {
		return
	}
	g.armed = true
	newSentinel(g)
}

func newSentinel(g *GCNotifier) {
	runtime.SetFinalizer(&sentinel{n: g}, finalize)
}

func finalize(s *sentinel) {
	g := s.n
	g.cycles.Add(1)

	g.armMu.Lock()
	if g.h.len() == 0 {
		g.armed = false
		g.armMu.Unlock()
		return
	}
	g.armMu.Unlock()

	now := time.Now().UnixNano()
	last := g.last.Load()
	if g.MinInterval <= 0 || now-last >= int64(g.MinInterval) {
		if g.last.CompareAndSwap(last, now) {
			g.emitted.Add(1)
			g.h.emit()
		}
	}
	newSentinel(g)
}
