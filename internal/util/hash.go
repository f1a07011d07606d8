// Package util contains internal helpers (identifier hashing, sharding, padding).
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Hash64 derives a 64-bit identifier from a cache key.
//
// Integer keys map to themselves (injective, no collisions). Strings, byte
// arrays and fmt.Stringer values are hashed with xxhash. Any other comparable
// key falls back to hashing its Go-syntax representation, which is stable for
// value types but slow; prefer converting such keys to strings upstream.
//
// Distinct non-integer keys may collide. Callers accept that colliding keys
// overwrite each other.
func Hash64[K comparable](k K) uint64 {
	switch v := any(k).(type) {
	case string:
		return xxhash.Sum64String(v)
	case [16]byte:
		return xxhash.Sum64(v[:])
	case [32]byte:
		return xxhash.Sum64(v[:])
	case [64]byte:
		return xxhash.Sum64(v[:])

	case uint8:
		return uint64(v)
	case uint16:
		return uint64(v)
	case uint32:
		return uint64(v)
	case uint64:
		return v
	case uint:
		return uint64(v)
	case uintptr:
		return uint64(v)
	case int8:
		return uint64(v)
	case int16:
		return uint64(v)
	case int32:
		return uint64(v)
	case int64:
		return uint64(v)
	case int:
		return uint64(v)

	case fmt.Stringer:
		return xxhash.Sum64String(v.String())
	default:
		return xxhash.Sum64String(fmt.Sprintf("%#v", k))
	}
}

// Mix64 scrambles an identifier so that sequential ids spread evenly across
// shards (splitmix64 finalizer).
func Mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
