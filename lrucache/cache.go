package lrucache

import (
	"cmp"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/dreamware/clds/hashtable"
)

// EvictStatus reports the outcome of an eviction performed by Put.
type EvictStatus int

const (
	// EvictOK means the evicted entry was removed from the backing table
	// cleanly.
	EvictOK EvictStatus = iota
	// EvictError means removal failed; Put aborts without leaving a
	// recency node whose key has no table entry.
	EvictError
)

// EvictFunc is invoked synchronously from Put for each eviction, success
// or failure. It must not call back into the cache.
type EvictFunc[K any, V any] func(ctx any, key K, value V, status EvictStatus)

// entry is the value actually stored in the backing table: the user's
// value plus its accounting size and a link to its recency-list node.
type entry[K cmp.Ordered, V any] struct {
	value V
	size  int64
	rnode *recencyNode[K, V]
}

// recencyNode is one link of the intrusive doubly linked recency list.
// The cache owns a sentinel node whose next/prev close the ring; the most
// recently used real node sits just before the sentinel (tail side), the
// least recently used just after it (head side).
type recencyNode[K cmp.Ordered, V any] struct {
	prev, next *recencyNode[K, V]
	key        K
	// linked reports whether this node is currently part of the ring.
	// Guarded by Cache.mu, same as the ring links themselves. Get reads
	// its entry from the lock-free table before acquiring mu, so by the
	// time it can move the node to the tail, a concurrent Delete/Put may
	// already have unlinked it; linked lets moveToTail recognize that and
	// skip, instead of re-unlinking a node whose prev/next are stale.
	linked bool
}

// Cache is a bounded-capacity LRU cache over keys K and values V. Entry
// storage and lookup are delegated to a lock-free hashtable.Table; the
// recency list and running size total are the cache's only mutable
// aggregate and are guarded by one mutex.
type Cache[K cmp.Ordered, V any] struct {
	table    *hashtable.Table[K, *entry[K, V]]
	capacity int64

	mu          sync.Mutex
	sentinel    recencyNode[K, V]
	currentSize int64
	count       int
}

// New constructs a Cache with the given capacity (in whatever size units
// Put's size argument uses) and hash function. Returns ErrArgumentInvalid
// if capacity <= 0.
func New[K cmp.Ordered, V any](hashFunc hashtable.HashFunc[K], capacity int64) (*Cache[K, V], error) {
	if capacity <= 0 {
		return nil, ErrArgumentInvalid
	}
	table, err := hashtable.New[K, *entry[K, V]](hashFunc)
	if err != nil {
		return nil, err
	}
	c := &Cache[K, V]{table: table, capacity: capacity}
	c.sentinel.next = &c.sentinel
	c.sentinel.prev = &c.sentinel
	return c, nil
}

func (c *Cache[K, V]) unlink(n *recencyNode[K, V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.linked = false
}

func (c *Cache[K, V]) appendTail(n *recencyNode[K, V]) {
	last := c.sentinel.prev
	last.next = n
	n.prev = last
	n.next = &c.sentinel
	c.sentinel.prev = n
	n.linked = true
}

func (c *Cache[K, V]) moveToTail(n *recencyNode[K, V]) {
	if !n.linked || c.sentinel.prev == n {
		return
	}
	c.unlink(n)
	c.appendTail(n)
}

// Put inserts or replaces key with value, accounted at size units. If the
// key already held an entry, it is removed and replaced. If there is
// insufficient room, least-recently-used entries are evicted (each
// reported via evictFn) until there is, or Put fails with
// ErrEvictionFailed if an eviction cannot remove its victim from the
// backing table. Returns ErrValueInvalidSize if size exceeds capacity.
func (c *Cache[K, V]) Put(key K, value V, size int64, evictFn EvictFunc[K, V], ctx any) error {
	if size > c.capacity {
		return ErrValueInvalidSize
	}
	if size < 0 {
		return ErrArgumentInvalid
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ref, err := c.table.Find(key); err == nil {
		old := ref.Value()
		if derr := c.table.DeleteKeyValue(ref); derr != nil {
			return derr
		}
		c.unlink(old.rnode)
		c.currentSize -= old.size
		c.count--
	}

	for c.currentSize+size > c.capacity && c.sentinel.next != &c.sentinel {
		lru := c.sentinel.next
		victimRef, ferr := c.table.Find(lru.key)
		if ferr != nil {
			if evictFn != nil {
				var zero V
				evictFn(ctx, lru.key, zero, EvictError)
			}
			return ErrEvictionFailed
		}
		victim := victimRef.Value()
		if derr := c.table.DeleteKeyValue(victimRef); derr != nil {
			if evictFn != nil {
				evictFn(ctx, lru.key, victim.value, EvictError)
			}
			return ErrEvictionFailed
		}
		c.unlink(lru)
		c.currentSize -= victim.size
		c.count--
		if evictFn != nil {
			evictFn(ctx, lru.key, victim.value, EvictOK)
		}
	}

	rnode := &recencyNode[K, V]{key: key}
	e := &entry[K, V]{value: value, size: size, rnode: rnode}
	if err := c.table.Insert(key, e); err != nil {
		return err
	}
	c.appendTail(rnode)
	c.currentSize += size
	c.count++
	return nil
}

// Get returns the value stored for key, moving it to the most-recently-
// used position, and true if present.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	ref, err := c.table.Find(key)
	if err != nil {
		var zero V
		return zero, false
	}
	e := ref.Value()

	c.mu.Lock()
	c.moveToTail(e.rnode)
	c.mu.Unlock()

	value := e.value
	ref.Release()
	return value, true
}

// Delete removes key's entry, if any.
func (c *Cache[K, V]) Delete(key K) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ref, err := c.table.Find(key)
	if err != nil {
		return err
	}
	e := ref.Value()
	if derr := c.table.DeleteKeyValue(ref); derr != nil {
		return derr
	}
	c.unlink(e.rnode)
	c.currentSize -= e.size
	c.count--
	return nil
}

// Len returns the number of entries currently cached.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Size returns the sum of every cached entry's accounted size.
func (c *Cache[K, V]) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSize
}

// Keys returns every cached key in ascending order. Intended for
// debugging and tests, not hot-path use.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	keys := make([]K, 0, c.count)
	for n := c.sentinel.next; n != &c.sentinel; n = n.next {
		keys = append(keys, n.key)
	}
	c.mu.Unlock()
	slices.Sort(keys)
	return keys
}
