package cache

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/ttlcache/pressure"
)

func TestEvictionJob_NextFullWithinJitter(t *testing.T) {
	t.Parallel()

	j := &evictionJob{fullEvery: time.Minute, jitter: 15 * time.Second}
	for range 1_000 {
		d := j.nextFull()
		assert.GreaterOrEqual(t, d, 45*time.Second)
		assert.LessOrEqual(t, d, 75*time.Second)
	}

	j.jitter = -1
	assert.Equal(t, time.Minute, j.nextFull())
}

func TestEvictionJob_FiresAndStops(t *testing.T) {
	t.Parallel()

	var quick, full atomic.Int32
	cfg := Config{
		QuickListInterval:    time.Millisecond,
		FullEvictionInterval: 2 * time.Millisecond,
		FullEvictionJitter:   -1,
	}.withDefaults()
	j := newEvictionJob(&cfg, func() { quick.Add(1) }, func() { full.Add(1) }, func() {})
	t.Cleanup(j.close)

	require.Eventually(t, func() bool { return quick.Load() >= 3 && full.Load() >= 2 },
		time.Second, time.Millisecond)

	j.stop()
	// a callback already past the stopped check may still land
	time.Sleep(5 * time.Millisecond)
	q := quick.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, q, quick.Load())

	j.resume()
	require.Eventually(t, func() bool { return quick.Load() > q }, time.Second, time.Millisecond)
}

func TestEvictionJob_Disabled(t *testing.T) {
	t.Parallel()

	sig := pressure.NewManual()
	var fired atomic.Int32
	cfg := Config{DisableEviction: true, Pressure: sig}.withDefaults()
	j := newEvictionJob(&cfg, func() { fired.Add(1) }, func() { fired.Add(1) }, func() { fired.Add(1) })

	assert.False(t, j.running())
	assert.Zero(t, sig.Subscribers())
	j.resume()
	assert.False(t, j.running())
	j.reschedule()
	j.close()
	assert.Zero(t, fired.Load())
}

func TestEvictionJob_PressureGatedBySuspend(t *testing.T) {
	t.Parallel()

	sig := pressure.NewManual()
	var fired atomic.Int32
	cfg := Config{Pressure: sig}.withDefaults()
	j := newEvictionJob(&cfg, func() {}, func() {}, func() { fired.Add(1) })
	t.Cleanup(j.close)

	sig.Trigger()
	assert.Equal(t, int32(1), fired.Load())

	j.stop()
	sig.Trigger()
	assert.Equal(t, int32(1), fired.Load())

	j.resume()
	sig.Trigger()
	assert.Equal(t, int32(2), fired.Load())

	j.close()
	assert.Zero(t, sig.Subscribers())
}
