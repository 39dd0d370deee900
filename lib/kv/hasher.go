package kv

import "github.com/cespare/xxhash/v2"

// Hasher maps a key to its 64-bit hash. Buckets are picked by
// hash modulo capacity.
type Hasher func(key string) uint64

func DefaultHasher(key string) uint64 {
	return xxhash.Sum64String(key)
}

// AdditiveHasher sums the key bytes, so anagrams such as "key1",
// "1yek" and "e1yk" always share a bucket.
func AdditiveHasher(key string) uint64 {
	var h uint64
	for i := 0; i < len(key); i++ {
		h += uint64(key[i])
	}
	return h
}
