package util

import "runtime"

// NextPow2 returns the smallest power of two >= x.
// x == 0 yields 1; overflow is clamped to 1<<63.
func NextPow2(x uint64) uint64 {
	if x <= 1 {
		return 1
	}
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	x++
	if x == 0 {
		return 1 << 63
	}
	return x
}

// ShardCount normalizes a requested shard count to a power of two.
// n <= 0 picks nextPow2(4*GOMAXPROCS), clamped to [1..256]: the store is
// written from many goroutines and scanned shard by shard, so a few more
// shards than CPUs keeps both the write lock and the per-shard sweep short.
func ShardCount(n int) int {
	if n <= 0 {
		p := runtime.GOMAXPROCS(0)
		if p < 1 {
			p = 1
		}
		n = p * 4
	}
	s := int(NextPow2(uint64(n)))
	if s > 256 {
		s = 256
	}
	return s
}

// ShardIndex maps an identifier to a shard; shards must be a power of two.
func ShardIndex(id uint64, shards int) int {
	if shards <= 1 {
		return 0
	}
	return int(Mix64(id) & uint64(shards-1))
}
