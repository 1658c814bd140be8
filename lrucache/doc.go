// Package lrucache implements a bounded-capacity LRU cache over a
// hashtable.Table. Entry lookup is lock-free, delegated to the table; the
// intrusive doubly linked recency list and the running size total are the
// cache's only mutable aggregate, and are protected by one sync.Mutex
// rather than given their own lock-free treatment, since every
// recency-list touch already happens under a Put or Get call expected to
// be a short, uncontended critical section.
package lrucache
