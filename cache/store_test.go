package cache

import (
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_InsertLookupRemove(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	s := newStore[string](4, clk)

	exp := s.insert(1, "a", time.Second)
	assert.Equal(t, int64(time.Second), exp)

	e, ok := s.lookup(1)
	require.True(t, ok)
	assert.Equal(t, "a", e.Value)
	assert.Equal(t, 1, s.count())

	// overwrite keeps the count
	s.insert(1, "b", time.Minute)
	e, _ = s.lookup(1)
	assert.Equal(t, "b", e.Value)
	assert.Equal(t, 1, s.count())

	assert.True(t, s.remove(1))
	assert.False(t, s.remove(1))
	assert.Equal(t, 0, s.count())
}

func TestStore_TTLOverflowNeverExpires(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	clk.set(time.Hour)
	s := newStore[int](1, clk)

	exp := s.insert(1, 1, time.Duration(math.MaxInt64))
	assert.Equal(t, int64(math.MaxInt64), exp)
}

// An entry is live exactly at its expiry tick and gone one tick later.
func TestEntry_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	e := Entry[int]{ExpiresAt: 100}
	assert.False(t, e.Expired(99))
	assert.False(t, e.Expired(100))
	assert.True(t, e.Expired(101))
}

func TestStore_RemoveExpiredSparesRenewed(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	s := newStore[int](2, clk)
	s.insert(1, 1, time.Millisecond)

	clk.add(2 * time.Millisecond)
	// renewed after the eviction pass read the old expiry
	s.insert(1, 2, time.Minute)

	assert.False(t, s.removeExpired(1, clk.Now()))
	e, ok := s.lookup(1)
	require.True(t, ok)
	assert.Equal(t, 2, e.Value)
}

// Single and parallel sweeps must agree and never remove live entries.
func TestStore_SweepStrategiesAgree(t *testing.T) {
	t.Parallel()

	for _, parallel := range []bool{false, true} {
		clk := &fakeClock{}
		s := newStore[int](16, clk)
		for i := range 10_000 {
			ttl := time.Minute
			if i%3 == 0 {
				ttl = time.Millisecond
			}
			s.insert(ID(i), i, ttl)
		}
		clk.add(time.Second)

		var kept atomic.Int64
		keep := func(_ ID, exp int64) {
			assert.Greater(t, exp, clk.Now())
			kept.Add(1)
		}

		var removed int
		if parallel {
			removed = s.sweepParallel(clk.Now(), keep)
		} else {
			removed = s.sweep(clk.Now(), keep)
		}

		assert.Equal(t, 3334, removed, "parallel=%v", parallel)
		assert.Equal(t, int64(6666), kept.Load())
		assert.Equal(t, 6666, s.count())
	}
}

func TestStore_Clear(t *testing.T) {
	t.Parallel()

	s := newStore[int](4, &fakeClock{})
	for i := range 100 {
		s.insert(ID(i), i, time.Minute)
	}
	s.clear()
	assert.Equal(t, 0, s.count())
	_, ok := s.lookup(5)
	assert.False(t, ok)
}
