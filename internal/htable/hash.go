package htable

import "github.com/cespare/xxhash/v2"

const (
	fnvOffset64 = 0xcbf29ce484222325
	fnvPrime64  = 0x100000001b3
)

// HashFNV1a is the default hash function: 64-bit FNV-1a over the raw key
// bytes, with the standard offset basis and prime.
func HashFNV1a(key []byte) uint64 {
	hash := uint64(fnvOffset64)
	for _, b := range key {
		hash ^= uint64(b)
		hash *= fnvPrime64
	}
	return hash
}

// HashXXHash64 is an optional, production-grade alternative hash function
// callers may pass to New in place of the default FNV-1a. It exercises the
// table's pluggable hash_fn slot with a real, widely used non-cryptographic
// hash rather than leaving that knob untested.
func HashXXHash64(key []byte) uint64 {
	return xxhash.Sum64(key)
}
