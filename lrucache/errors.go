package lrucache

import "errors"

// ErrValueInvalidSize is returned by Put when size exceeds the cache's
// capacity — no amount of eviction could ever make room for it.
var ErrValueInvalidSize = errors.New("lrucache: value size exceeds cache capacity")

// ErrArgumentInvalid is returned by New for a zero or negative capacity.
var ErrArgumentInvalid = errors.New("lrucache: invalid argument")

// ErrEvictionFailed is returned by Put when an eviction needed to make
// room could not remove its entry from the backing table; the cache
// aborts the put rather than risk a recency node with no table entry.
var ErrEvictionFailed = errors.New("lrucache: eviction failed to remove entry from backing table")
