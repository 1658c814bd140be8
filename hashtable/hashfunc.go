package hashtable

import (
	"fmt"
	"hash/fnv"
)

// StringHash hashes s with FNV-1a, a fast, well-distributed non-cryptographic
// hash suitable for bucket assignment.
func StringHash(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// FormatHash hashes any key by its default string formatting. It is a
// convenient HashFunc for quick prototyping or non-string Ordered keys;
// callers with a hot path should supply a HashFunc tailored to their key
// type instead.
func FormatHash[K any](key K) uint64 {
	return StringHash(fmt.Sprint(key))
}
