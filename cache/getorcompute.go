package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNilProducer is returned by GetOrCompute when producer is nil.
var ErrNilProducer = errors.New("cache: nil producer")

// GetOrCompute returns the fresh value cached for key, or calls producer,
// stores its result for ttl and returns it. Concurrent misses for the same
// key share one producer call. Producer errors are returned and nothing is
// stored.
func GetOrCompute[K comparable, V any](
	ctx context.Context,
	t *Typed[V],
	key K,
	producer func(ctx context.Context, key K) (V, error),
	ttl time.Duration,
) (V, error) {
	id := KeyID(key)
	if v, ok := t.GetFresh(id); ok {
		t.e.cfg.Metrics.Hit(t.name)
		return v, nil
	}
	if producer == nil {
		var zero V
		return zero, ErrNilProducer
	}
	t.e.cfg.Metrics.Miss(t.name)

	v, err, _ := t.sf.Do(ctx, id, func() (V, error) {
		// another flight may have landed between the check and the join
		if v, ok := t.GetFresh(id); ok {
			return v, nil
		}
		v, err := producer(ctx, key)
		if err == nil {
			t.Set(id, v, ttl)
		}
		return v, err
	})
	return v, err
}
