// Package pressure provides memory-pressure signal sources for the cache
// engine. A signal only says "memory pressure was observed"; what to do about
// it is the subscriber's business.
//
// Both sources satisfy cache.PressureSignal:
//
//	Subscribe(fn func()) (cancel func())
//
// GCNotifier fires after garbage-collection cycles, which is the closest Go
// analogue of a post-collection runtime callback. Manual fires only when the
// host calls Trigger, for hosts that watch RSS or cgroup limits themselves.
package pressure

import "sync"

// hub is a subscriber set. fn values run synchronously in emit and must be
// cheap (the cache only schedules work from them).
type hub struct {
	mu   sync.Mutex
	subs map[uint64]func()
	next uint64
}

func (h *hub) add(fn func()) (id uint64, first bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[uint64]func())
	}
	h.next++
	h.subs[h.next] = fn
	return h.next, len(h.subs) == 1
}

func (h *hub) remove(id uint64) (empty bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
	return len(h.subs) == 0
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *hub) emit() {
	h.mu.Lock()
	fns := make([]func(), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Manual is a pressure signal driven by the host through Trigger.
type Manual struct {
	h hub
}

// NewManual returns an idle manual signal.
func NewManual() *Manual { return &Manual{} }

// Subscribe registers fn; the returned func unsubscribes it.
func (m *Manual) Subscribe(fn func()) (cancel func()) {
	id, _ := m.h.add(fn)
	var once sync.Once
	return func() { once.Do(func() { m.h.remove(id) }) }
}

// Trigger notifies every subscriber synchronously.
func (m *Manual) Trigger() { m.h.emit() }

// Subscribers reports the number of active subscriptions.
func (m *Manual) Subscribers() int { return m.h.len() }
