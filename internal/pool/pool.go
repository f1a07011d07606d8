// Package pool runs fire-and-forget background tasks on a bounded set of
// goroutines. All eviction work of an engine is funnelled through one Pool so
// that a burst of timers or pressure signals cannot fan out unboundedly.
package pool

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Options configures a Pool.
type Options struct {
	// Workers bounds concurrently running tasks; <= 0 means GOMAXPROCS.
	Workers int
	// Logger receives recovered panics; nil means slog.Default().
	Logger *slog.Logger
	// Debug re-raises a recovered panic after logging it, crashing the
	// process. Production setups leave it off so a failing task only delays
	// eviction until the next cycle.
	Debug bool
}

// Pool is a bounded task runner. Tasks never block the submitter.
type Pool struct {
	sem      *semaphore.Weighted
	log      *slog.Logger
	debug    bool
	wg       sync.WaitGroup
	inflight atomic.Int32
	panics   atomic.Int64
}

// New creates a Pool.
func New(opts Options) *Pool {
	n := opts.Workers
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pool{
		sem:   semaphore.NewWeighted(int64(n)),
		log:   opts.Logger,
		debug: opts.Debug,
	}
}

// Go schedules fn. name only labels log records.
func (p *Pool) Go(name string, fn func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		// Acquire on a background ctx never fails.
		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)

		p.inflight.Add(1)
		defer p.inflight.Add(-1)
		p.run(name, fn)
	}()
}

// After schedules fn to run on the pool once d has elapsed. No worker is
// held while waiting.
func (p *Pool) After(d time.Duration, name string, fn func()) {
	if d <= 0 {
		p.Go(name, fn)
		return
	}
	p.wg.Add(1)
	time.AfterFunc(d, func() {
		p.Go(name, fn)
		p.wg.Done()
	})
}

// Timer runs fn on the timer goroutine once d has elapsed, without taking a
// worker. fn must be short and must not block (releasing a gate, resetting a
// counter); work that needs a worker belongs in After.
func (p *Pool) Timer(d time.Duration, name string, fn func()) {
	p.wg.Add(1)
	time.AfterFunc(max(d, 0), func() {
		defer p.wg.Done()
		p.run(name, fn)
	})
}

// Blocking runs fn on its own goroutine outside the worker bound. Use it for
// tasks that wait on a lock or gate, so a waiter never keeps a worker from
// the task that would unblock it.
func (p *Pool) Blocking(name string, fn func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(name, fn)
	}()
}

// Wait blocks until every submitted task, including pending After
// continuations and the tasks they schedule, has finished.
func (p *Pool) Wait() { p.wg.Wait() }

// Inflight reports the number of tasks currently executing.
func (p *Pool) Inflight() int { return int(p.inflight.Load()) }

// Panics reports how many tasks panicked since the pool was created.
func (p *Pool) Panics() int64 { return p.panics.Load() }

func (p *Pool) run(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			p.log.Error("background task panicked",
				slog.String("task", name),
				slog.Any("recovered", r),
				slog.String("stack", string(debug.Stack())))
			if p.debug {
				panic(r)
			}
		}
	}()
	fn()
}
