// Package singleflight coalesces concurrent producer calls for the same
// identifier so that a miss burst runs the producer once.
package singleflight

import (
	"context"
	"fmt"
	"sync"
)

// Group coalesces concurrent calls keyed by K.
//
//   - The first caller for a key becomes the leader and runs fn.
//   - Followers wait for the leader's result or for their own ctx.
//   - A follower giving up does not cancel the leader; fn should observe
//     the leader's ctx itself.
//   - A panicking fn is converted into an error for followers and re-raised
//     in the leader, so nobody waits on a flight that will never land.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*call[V]
}

type call[V any] struct {
	done chan struct{} // closed when val/err are published
	val  V
	err  error
	dups int
}

// Do runs fn once per in-flight key. shared reports whether the result was
// handed to more than one caller.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (v V, err error, shared bool) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*call[V])
	}
	if c, ok := g.m[key]; ok {
		c.dups++
		g.mu.Unlock()

		select {
		case <-c.done:
			return c.val, c.err, true
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err(), true
		}
	}

	c := &call[V]{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	g.run(key, c, fn)

	g.mu.Lock()
	shared = c.dups > 0
	g.mu.Unlock()
	return c.val, c.err, shared
}

func (g *Group[K, V]) run(key K, c *call[V], fn func() (V, error)) {
	normal := false
	defer func() {
		if !normal {
			if r := recover(); r != nil {
				c.err = fmt.Errorf("singleflight: producer panicked: %v", r)
				g.finish(key, c)
				panic(r)
			}
		}
		g.finish(key, c)
	}()
	c.val, c.err = fn()
	normal = true
}

// finish publishes the result and removes the in-flight marker.
func (g *Group[K, V]) finish(key K, c *call[V]) {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-c.done:
		return
	default:
	}
	close(c.done)
	if g.m[key] == c {
		delete(g.m, key)
	}
}
