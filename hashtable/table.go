package hashtable

import (
	"cmp"
	"sync/atomic"

	"golang.org/x/exp/slices"

	"github.com/dreamware/clds/hazard"
	"github.com/dreamware/clds/lflist"
)

// HashFunc computes a table's hash of key, supplied by the caller at New —
// this module has no opinion on how K should be hashed.
type HashFunc[K any] func(key K) uint64

// level is one HashBucketArray: a fixed-size array of lazily created
// bucket lists, plus the countdown to the next resize. Levels form a
// newest-first singly linked chain off Table.newest.
type level[K cmp.Ordered, V any] struct {
	next                 atomic.Pointer[level[K, V]]
	buckets              []atomic.Pointer[lflist.List[K, V]]
	itemCountUntilResize atomic.Int64
}

func newLevel[K cmp.Ordered, V any](bucketCount uint64) *level[K, V] {
	lvl := &level[K, V]{buckets: make([]atomic.Pointer[lflist.List[K, V]], bucketCount)}
	lvl.itemCountUntilResize.Store(int64(bucketCount))
	return lvl
}

// Table is a lock-free hash table over keys K and values V, sharing one
// hazard-pointer domain and one write-gate across every bucket list of
// every resize level.
type Table[K cmp.Ordered, V any] struct {
	hashFunc   HashFunc[K]
	newest     atomic.Pointer[level[K, V]]
	domain     *hazard.Domain[lflist.Node[K, V]]
	gate       *lflist.Gate
	seqCounter *atomic.Int64
	onSkipped  lflist.SkippedSeqNoFunc
	skipCtx    any
	onFreed    lflist.OnNodeFreed[K, V]
}

// New constructs a Table with the given hash function and an initial
// bucket count of 16, as modified by opts. Returns ErrArgumentInvalid if
// hashFunc is nil or an option sets a zero initial bucket count.
func New[K cmp.Ordered, V any](hashFunc HashFunc[K], opts ...Option[K, V]) (*Table[K, V], error) {
	if hashFunc == nil {
		return nil, ErrArgumentInvalid
	}
	t := &Table[K, V]{
		hashFunc: hashFunc,
		domain:   hazard.New[lflist.Node[K, V]](),
		gate:     lflist.NewGate(),
	}
	initialBucketCount := uint64(16)
	for _, opt := range opts {
		opt(t, &initialBucketCount)
	}
	if initialBucketCount == 0 {
		return nil, ErrArgumentInvalid
	}
	t.newest.Store(newLevel[K, V](initialBucketCount))
	return t, nil
}

func (t *Table[K, V]) bucketIndex(lvl *level[K, V], key K) uint64 {
	return t.hashFunc(key) % uint64(len(lvl.buckets))
}

// bucketList returns the live bucket list at idx in lvl, creating it on
// first use. Concurrent creators race a CAS on the slot; the loser's
// allocation is simply dropped for the GC.
func (t *Table[K, V]) bucketList(lvl *level[K, V], idx uint64) *lflist.List[K, V] {
	if l := lvl.buckets[idx].Load(); l != nil {
		return l
	}
	opts := []lflist.Option[K, V]{
		lflist.WithDomain[K, V](t.domain),
		lflist.WithGate[K, V](t.gate),
	}
	if t.seqCounter != nil {
		opts = append(opts, lflist.WithSeqNoCounter[K, V](t.seqCounter))
	}
	if t.onSkipped != nil {
		opts = append(opts, lflist.WithSkippedSeqNoFunc[K, V](t.onSkipped, t.skipCtx))
	}
	if t.onFreed != nil {
		opts = append(opts, lflist.WithOnNodeFreed[K, V](t.onFreed))
	}
	fresh := lflist.New[K, V](opts...)
	if lvl.buckets[idx].CompareAndSwap(nil, fresh) {
		return fresh
	}
	return lvl.buckets[idx].Load()
}

// olderLevelHasKey reports whether any level older than newest (exclusive)
// holds a live node for key, releasing the Ref it finds before returning.
func (t *Table[K, V]) olderLevelHasKey(newest *level[K, V], key K) bool {
	for lvl := newest.next.Load(); lvl != nil; lvl = lvl.next.Load() {
		list := lvl.buckets[t.bucketIndex(lvl, key)].Load()
		if list == nil {
			continue
		}
		if ref, err := list.Find(key); err == nil {
			ref.Release()
			return true
		}
	}
	return false
}

func (t *Table[K, V]) growIfStillNewest(current *level[K, V]) {
	if t.newest.Load() != current {
		return
	}
	next := newLevel[K, V](uint64(len(current.buckets)) * 2)
	next.next.Store(current)
	t.newest.CompareAndSwap(current, next)
}

// Insert adds key/value. Fails with ErrKeyAlreadyExists if key is already
// live on any level, without decrementing the newest level's
// insert-until-resize counter: only a successful insert counts toward the
// next resize, so a string of duplicate-key failures can never trigger a
// spurious grow.
func (t *Table[K, V]) Insert(key K, value V) error {
	h := t.domain.RegisterThread()
	defer h.Unregister()

	t.gate.Enter()
	defer t.gate.Exit()

	newest := t.newest.Load()
	if t.olderLevelHasKey(newest, key) {
		return ErrKeyAlreadyExists
	}

	list := t.bucketList(newest, t.bucketIndex(newest, key))
	if err := list.Insert(key, value); err != nil {
		return translateListErr(err)
	}

	if newest.itemCountUntilResize.Add(-1) <= 0 {
		t.growIfStillNewest(newest)
	}
	return nil
}

// Delete removes the live node for key, searching levels newest to
// oldest and stopping at the first level that holds it.
func (t *Table[K, V]) Delete(key K) error {
	h := t.domain.RegisterThread()
	defer h.Unregister()

	t.gate.Enter()
	defer t.gate.Exit()

	for lvl := t.newest.Load(); lvl != nil; lvl = lvl.next.Load() {
		list := lvl.buckets[t.bucketIndex(lvl, key)].Load()
		if list == nil {
			continue
		}
		switch err := list.Delete(key); err {
		case nil:
			return nil
		case lflist.ErrNotFound:
			continue
		default:
			return translateListErr(err)
		}
	}
	return ErrNotFound
}

// DeleteKeyValue removes ref's node only if it is still the live node
// reachable for its key, requiring pointer identity so a reference
// obtained before a concurrent delete-and-reinsert cannot remove a
// fresher node for the same key. ref must have come from Find or
// Snapshot on this table and is consumed (released) by this call
// regardless of outcome.
func (t *Table[K, V]) DeleteKeyValue(ref *Ref[K, V]) error {
	// ref.list shares this table's write-gate (injected via
	// lflist.WithGate in bucketList), so DeleteNode already participates
	// in the same quiescence protocol LockWrites drains.
	err := ref.list.DeleteNode(ref.inner.Node())
	ref.Release()
	return translateListErr(err)
}

// Remove behaves like Delete but returns the removed node, with its
// refcount held, so the caller can inspect it; the caller must Release it
// when done.
func (t *Table[K, V]) Remove(key K) (*Ref[K, V], error) {
	ref, err := t.Find(key)
	if err != nil {
		return nil, err
	}
	if err := ref.list.DeleteNode(ref.inner.Node()); err != nil {
		ref.Release()
		return nil, translateListErr(err)
	}
	return ref, nil
}

// Find returns the live node for key, searching newest to oldest, with
// its refcount held. The caller must Release the returned Ref.
func (t *Table[K, V]) Find(key K) (*Ref[K, V], error) {
	for lvl := t.newest.Load(); lvl != nil; lvl = lvl.next.Load() {
		list := lvl.buckets[t.bucketIndex(lvl, key)].Load()
		if list == nil {
			continue
		}
		if inner, err := list.Find(key); err == nil {
			return &Ref[K, V]{list: list, inner: inner}, nil
		}
	}
	return nil, ErrNotFound
}

// SetValue inserts key/value if absent on every level, or replaces the
// live copy on the newest level and retires any older-level copy,
// returning the value that was replaced.
func (t *Table[K, V]) SetValue(key K, value V) (oldValue V, ok bool, err error) {
	h := t.domain.RegisterThread()
	defer h.Unregister()

	t.gate.Enter()
	defer t.gate.Exit()

	newest := t.newest.Load()

	var olderOld V
	haveOlder := false
	for lvl := newest.next.Load(); lvl != nil; lvl = lvl.next.Load() {
		list := lvl.buckets[t.bucketIndex(lvl, key)].Load()
		if list == nil {
			continue
		}
		if ref, ferr := list.Find(key); ferr == nil {
			olderOld = ref.Value()
			haveOlder = true
			ref.Release()
			_ = list.Delete(key) // best-effort retire of the shadowed older copy
			break
		}
	}

	list := t.bucketList(newest, t.bucketIndex(newest, key))
	newOld, newOk, serr := list.SetValue(key, value)
	if serr != nil {
		var zero V
		return zero, false, translateListErr(serr)
	}
	if newOk {
		return newOld, true, nil
	}
	if newest.itemCountUntilResize.Add(-1) <= 0 {
		t.growIfStillNewest(newest)
	}
	if haveOlder {
		return olderOld, true, nil
	}
	var zero V
	return zero, false, nil
}

// GetCount returns the number of live entries across every level. Requires
// LockWrites to be held; returns ErrNotLocked otherwise.
func (t *Table[K, V]) GetCount() (int, error) {
	if !t.gate.IsLocked() {
		return 0, ErrNotLocked
	}
	total := 0
	for lvl := t.newest.Load(); lvl != nil; lvl = lvl.next.Load() {
		for i := range lvl.buckets {
			list := lvl.buckets[i].Load()
			if list == nil {
				continue
			}
			n, err := list.GetCount()
			if err != nil {
				return 0, translateListErr(err)
			}
			total += n
		}
	}
	return total, nil
}

// Snapshot returns a Ref for every live entry across every level, each
// with its refcount held, sorted by key for deterministic iteration.
// Requires LockWrites to be held; returns ErrNotLocked otherwise. Every
// returned Ref must eventually be Released by the caller.
func (t *Table[K, V]) Snapshot() ([]*Ref[K, V], error) {
	if !t.gate.IsLocked() {
		return nil, ErrNotLocked
	}
	var out []*Ref[K, V]
	for lvl := t.newest.Load(); lvl != nil; lvl = lvl.next.Load() {
		for i := range lvl.buckets {
			list := lvl.buckets[i].Load()
			if list == nil {
				continue
			}
			refs, err := list.GetAll()
			if err != nil {
				return nil, translateListErr(err)
			}
			for _, r := range refs {
				out = append(out, &Ref[K, V]{list: list, inner: r})
			}
		}
	}
	slices.SortFunc(out, func(a, b *Ref[K, V]) int { return cmp.Compare(a.Key(), b.Key()) })
	return out, nil
}

// LockWrites gates out new mutations on every bucket list, across every
// level, and waits for in-flight ones to finish. Must be paired with
// UnlockWrites.
func (t *Table[K, V]) LockWrites() { t.gate.LockWrites() }

// UnlockWrites releases a LockWrites hold.
func (t *Table[K, V]) UnlockWrites() { t.gate.UnlockWrites() }

func translateListErr(err error) error {
	switch err {
	case nil:
		return nil
	case lflist.ErrKeyAlreadyExists:
		return ErrKeyAlreadyExists
	case lflist.ErrNotFound:
		return ErrNotFound
	case lflist.ErrNotLocked:
		return ErrNotLocked
	case lflist.ErrHazardPointersExhausted:
		return ErrHazardPointersExhausted
	default:
		return err
	}
}

// Ref is a caller-owned reference to a node returned by Find, Remove, or
// Snapshot.
type Ref[K cmp.Ordered, V any] struct {
	list  *lflist.List[K, V]
	inner *lflist.Ref[K, V]
}

// Key returns the referenced node's key.
func (r *Ref[K, V]) Key() K { return r.inner.Key() }

// Value returns the referenced node's value.
func (r *Ref[K, V]) Value() V { return r.inner.Value() }

// Release drops this reference. Must be called exactly once.
func (r *Ref[K, V]) Release() { r.inner.Release() }
