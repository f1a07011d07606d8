package cache

import "github.com/IvanBrykalov/ttlcache/internal/util"

// ID identifies an entry inside one type's store. IDs of different value
// types live in different stores and never clash.
type ID = uint64

// Entry is a stored value with its absolute expiry tick (engine Clock).
type Entry[V any] struct {
	Value     V
	ExpiresAt int64
}

// Expired reports whether the entry is past its expiry at tick now.
// An entry is still live at exactly ExpiresAt.
func (e Entry[V]) Expired(now int64) bool { return now > e.ExpiresAt }

// KeyID derives an ID from an arbitrary comparable key. Integer keys map to
// themselves; other keys are hashed, so distinct keys may collide and then
// overwrite each other.
func KeyID[K comparable](k K) ID { return util.Hash64(k) }
