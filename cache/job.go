package cache

import (
	"math/rand/v2"
	"sync"
	"time"
)

// evictionJob owns the timers of one cached type: a fixed-period quick-list
// sweep, a jittered full sweep, and a pressure subscription.
// Callbacks only enqueue work; they never run eviction inline.
type evictionJob struct {
	quickEvery time.Duration
	fullEvery  time.Duration
	jitter     time.Duration

	onQuick    func()
	onFull     func()
	onPressure func()

	mu       sync.Mutex
	quickT   *time.Timer
	fullT    *time.Timer
	stopped  bool
	disabled bool
	unsub    func()
}

func newEvictionJob(cfg *Config, onQuick, onFull, onPressure func()) *evictionJob {
	j := &evictionJob{
		quickEvery: cfg.QuickListInterval,
		fullEvery:  cfg.FullEvictionInterval,
		jitter:     cfg.FullEvictionJitter,
		onQuick:    onQuick,
		onFull:     onFull,
		onPressure: onPressure,
		disabled:   cfg.DisableEviction,
	}
	if j.disabled {
		j.stopped = true
		return j
	}
	// timers may fire before the fields are assigned; fire* waits on mu
	j.mu.Lock()
	j.quickT = time.AfterFunc(j.quickEvery, j.fireQuick)
	j.fullT = time.AfterFunc(j.nextFull(), j.fireFull)
	j.mu.Unlock()
	if cfg.Pressure != nil {
		j.unsub = cfg.Pressure.Subscribe(j.firePressure)
	}
	return j
}

// nextFull draws the next full-sweep period from fullEvery +/- jitter.
func (j *evictionJob) nextFull() time.Duration {
	if j.jitter <= 0 {
		return j.fullEvery
	}
	return j.fullEvery - j.jitter + time.Duration(rand.Int64N(int64(2*j.jitter)+1))
}

func (j *evictionJob) fireQuick() {
	j.mu.Lock()
	if j.stopped {
		j.mu.Unlock()
		return
	}
	j.quickT.Reset(j.quickEvery)
	j.mu.Unlock()
	j.onQuick()
}

func (j *evictionJob) fireFull() {
	j.mu.Lock()
	if j.stopped {
		j.mu.Unlock()
		return
	}
	j.fullT.Reset(j.nextFull())
	j.mu.Unlock()
	j.onFull()
}

func (j *evictionJob) firePressure() {
	j.mu.Lock()
	stopped := j.stopped
	j.mu.Unlock()
	if !stopped {
		j.onPressure()
	}
}

// reschedule pushes the next full sweep one period out from now, after a
// full eviction ran for another reason.
func (j *evictionJob) reschedule() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopped {
		return
	}
	j.fullT.Reset(j.nextFull())
}

// stop halts future firings. An in-flight pass is not interrupted.
func (j *evictionJob) stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopped {
		return
	}
	j.stopped = true
	j.quickT.Stop()
	j.fullT.Stop()
}

// resume re-arms both timers from now. No-op when eviction is disabled.
func (j *evictionJob) resume() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.disabled || !j.stopped {
		return
	}
	j.stopped = false
	j.quickT.Reset(j.quickEvery)
	j.fullT.Reset(j.nextFull())
}

func (j *evictionJob) running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return !j.stopped
}

// close stops the timers for good and drops the pressure subscription.
func (j *evictionJob) close() {
	j.stop()
	j.mu.Lock()
	j.disabled = true
	unsub := j.unsub
	j.unsub = nil
	j.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}
