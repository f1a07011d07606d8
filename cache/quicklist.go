package cache

import (
	"sync"
	"sync/atomic"
)

// expiryStore is the slice of the store the quick list needs.
type expiryStore interface {
	count() int
	expiry(id ID) (int64, bool)
	removeExpired(id ID, now int64) bool
}

// slot is one (id, expiry) record guarded by a sequence counter: odd while
// a write is in progress. Readers that see the counter move discard the
// record instead of pairing one writer's id with another's expiry.
type slot struct {
	seq atomic.Uint64
	id  atomic.Uint64
	exp atomic.Int64
}

func (s *slot) store(id ID, exp int64) {
	s.seq.Add(1)
	s.id.Store(id)
	s.exp.Store(exp)
	s.seq.Add(1)
}

// load returns the record, or ok=false if a write overlapped the read.
func (s *slot) load() (id ID, exp int64, ok bool) {
	v := s.seq.Load()
	if v&1 == 1 {
		return 0, 0, false
	}
	id, exp = s.id.Load(), s.exp.Load()
	return id, exp, s.seq.Load() == v
}

// quickList is a bounded record of recent writes. A sweep over it can often
// reclaim everything that expired without walking the whole store.
//
// Two fixed buffers alternate: a sweep copies survivors into the inactive
// buffer and flips the selector, so a swap costs two atomic stores and
// writers never wait on it. Writes landing in the old buffer during the flip
// are lost to the list; the store still has them and the next full scan
// re-admits them.
type quickList struct {
	mu     sync.Mutex // serializes sweeps and resets
	bufs   [2][]slot
	active atomic.Uint32
	n      atomic.Int64
}

func newQuickList(capacity int) *quickList {
	return &quickList{bufs: [2][]slot{make([]slot, capacity), make([]slot, capacity)}}
}

func (q *quickList) capacity() int { return len(q.bufs[0]) }

// len is the number of admitted records.
func (q *quickList) len() int { return int(q.n.Load()) }

// add records id. The slot is reserved with a CAS on the length before it
// is written, so concurrent writers never share one. A full list drops the
// admission.
func (q *quickList) add(id ID, exp int64) {
	for {
		buf := q.bufs[q.active.Load()]
		n := q.n.Load()
		if n >= int64(len(buf)) {
			return
		}
		if q.n.CompareAndSwap(n, n+1) {
			buf[n].store(id, exp)
			return
		}
	}
}

// reset drops every record.
func (q *quickList) reset() {
	q.mu.Lock()
	q.n.Store(0)
	q.mu.Unlock()
}

// evict removes expired entries known to the list from s. It reports
// whether the records it accounted for (survivors plus removals) cover the
// whole store, in which case a full scan is unnecessary this cycle, and how
// many entries it actually removed.
//
// With wait unset, a sweep already in progress makes this call report
// incomplete coverage without doing anything; with wait set it queues
// behind that sweep.
//
// Records whose write is still in flight are skipped and count toward
// neither survivors nor removals.
func (q *quickList) evict(now int64, s expiryStore, wait bool) (complete bool, removed int) {
	total := s.count()
	if total == 0 {
		return true, 0
	}
	if q.n.Load() == 0 {
		return false, 0
	}
	if wait {
		q.mu.Lock()
	} else if !q.mu.TryLock() {
		return false, 0
	}
	defer q.mu.Unlock()

	a := q.active.Load()
	entries, survivors := q.bufs[a], q.bufs[a^1]
	n := min(int(q.n.Load()), len(entries))

	kept, gone := 0, 0
	for i := 0; i < n; i++ {
		id, exp, ok := entries[i].load()
		if !ok {
			continue
		}
		if now > exp {
			cur, ok := s.expiry(id)
			switch {
			case !ok:
				// duplicate of an entry that is already gone
				gone++
				continue
			case now > cur:
				if s.removeExpired(id, now) {
					removed++
					gone++
					continue
				}
				// renewed between the two reads
				if cur, ok = s.expiry(id); !ok {
					gone++
					continue
				}
			}
			// refresh in place too: without removals the buffers do not swap
			entries[i].store(id, cur)
			exp = cur
		}
		survivors[kept].store(id, exp)
		kept++
	}

	switch {
	case kept == 0:
		q.n.Store(0)
	case gone == 0:
		// nothing left the list; keep the active buffer in place
	default:
		q.active.Store(a ^ 1)
		q.n.Store(int64(kept))
	}
	return kept+gone >= total, removed
}
