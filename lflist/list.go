package lflist

import (
	"cmp"
	"sync/atomic"

	"github.com/dreamware/clds/hazard"
)

// List is a lock-free, strictly key-ordered singly linked list.
//
// The zero value is not usable; construct with New. A List is safe for
// concurrent use by many goroutines.
type List[K cmp.Ordered, V any] struct {
	head         atomic.Pointer[Node[K, V]]
	domain       *hazard.Domain[Node[K, V]]
	gate         *Gate
	seqNoCounter *atomic.Int64
	onSkipped    SkippedSeqNoFunc
	skipCtx      any
	onFreed      OnNodeFreed[K, V]
}

// New constructs an empty ordered list over keys K and payloads V.
func New[K cmp.Ordered, V any](opts ...Option[K, V]) *List[K, V] {
	l := &List[K, V]{}
	for _, opt := range opts {
		opt(l)
	}
	if l.domain == nil {
		l.domain = hazard.New[Node[K, V]]()
	}
	if l.gate == nil {
		l.gate = NewGate()
	}
	return l
}

func (l *List[K, V]) reclaim(_ any, n *Node[K, V]) {
	if l.onFreed != nil {
		l.onFreed(n.key, n.value)
	}
}

// releaseNode drops the list's (or a caller's) logical reference to n,
// handing it to the hazard domain for cleanup once the refcount reaches
// zero. h is the thread handle used to perform the retire, if needed.
func (l *List[K, V]) releaseNode(h *hazard.ThreadHandle[Node[K, V]], n *Node[K, V]) {
	if n.refCount.Add(-1) == 0 {
		h.Retire(n, l.reclaim, nil)
	}
}

func (l *List[K, V]) nextSeqNo() int64 {
	if l.seqNoCounter == nil {
		return 0
	}
	return l.seqNoCounter.Add(1)
}

func (l *List[K, V]) stamp(n *Node[K, V]) int64 {
	seq := l.nextSeqNo()
	if l.seqNoCounter != nil {
		n.seqNo.Store(seq)
	}
	return seq
}

func (l *List[K, V]) reportSkipped(seq int64) {
	if l.seqNoCounter != nil && l.onSkipped != nil {
		l.onSkipped(l.skipCtx, seq)
	}
}

func releaseHPs[K cmp.Ordered, V any](hps ...*hazard.HazardPointer[Node[K, V]]) {
	for _, hp := range hps {
		if hp != nil {
			hp.Release()
		}
	}
}

// locate walks the list starting at head looking for key, helping unlink
// any logically-deleted (marked) node it passes over along the way.
//
// On return, pred is the address of the link cell immediately preceding
// the first node whose key is >= key (or the list's own head field if the
// list is empty or key is smaller than every live key); predHP protects
// the predecessor node it came from, if any; curr and currHP describe that
// first node, if one exists. found reports whether curr's key equals key.
//
// Callers must release predHP and currHP exactly once, however the call
// turns out.
func (l *List[K, V]) locate(h *hazard.ThreadHandle[Node[K, V]], key K) (
	pred *atomic.Pointer[Node[K, V]],
	predHP *hazard.HazardPointer[Node[K, V]],
	curr *Node[K, V],
	currHP *hazard.HazardPointer[Node[K, V]],
	found bool,
	err error,
) {
restart:
	pred = &l.head
	predHP = nil

	for {
		next := pred.Load()
		if next == nil {
			return pred, predHP, nil, nil, false, nil
		}

		hp, aerr := h.Acquire(next)
		if aerr != nil {
			releaseHPs[K, V](predHP)
			return nil, nil, nil, nil, false, ErrHazardPointersExhausted
		}
		if pred.Load() != next {
			// The predecessor's link moved since we read it; our
			// protection of `next` may be protecting a node that is no
			// longer reachable from `pred`. Start over.
			hp.Release()
			releaseHPs[K, V](predHP)
			goto restart
		}

		if next.marked.Load() {
			succ := next.next.Load()
			if pred.CompareAndSwap(next, succ) {
				l.releaseNode(h, next)
			}
			hp.Release()
			continue
		}

		if next.key == key {
			return pred, predHP, next, hp, true, nil
		}
		if key < next.key {
			return pred, predHP, next, hp, false, nil
		}

		releaseHPs[K, V](predHP)
		predHP = hp
		pred = &next.next
	}
}

// Insert adds a new node for key/value. Returns ErrKeyAlreadyExists (and,
// if the list has a sequence-number counter, reports the reserved-but-lost
// sequence number via the skipped-seq-no callback) if key is already live.
func (l *List[K, V]) Insert(key K, value V) error {
	h := l.domain.RegisterThread()
	defer h.Unregister()

	l.gate.Enter()
	defer l.gate.Exit()

	for {
		pred, predHP, curr, currHP, found, err := l.locate(h, key)
		if err != nil {
			releaseHPs[K, V](predHP, currHP)
			return err
		}
		if found {
			releaseHPs[K, V](predHP, currHP)
			l.reportSkipped(l.nextSeqNo())
			return ErrKeyAlreadyExists
		}

		n := newNode[K, V](key, value)
		n.next.Store(curr)
		ok := pred.CompareAndSwap(curr, n)
		releaseHPs[K, V](predHP, currHP)
		if ok {
			l.stamp(n)
			return nil
		}
	}
}

// Delete removes the live node with the given key, if any.
func (l *List[K, V]) Delete(key K) error {
	h := l.domain.RegisterThread()
	defer h.Unregister()

	l.gate.Enter()
	defer l.gate.Exit()

	for {
		pred, predHP, curr, currHP, found, err := l.locate(h, key)
		if err != nil {
			releaseHPs[K, V](predHP, currHP)
			return err
		}
		if !found {
			releaseHPs[K, V](predHP, currHP)
			return ErrNotFound
		}

		if !curr.marked.CompareAndSwap(false, true) {
			// Lost the race to mark this node to a concurrent delete or
			// set-value targeting the same key. No sequence number was
			// ever reserved for this attempt, so there is nothing to
			// report skipped.
			releaseHPs[K, V](predHP, currHP)
			continue
		}

		l.stamp(curr)
		next := curr.next.Load()
		unlinked := pred.CompareAndSwap(curr, next)
		releaseHPs[K, V](predHP, currHP)
		if unlinked {
			l.releaseNode(h, curr)
		}
		// If the physical unlink lost its race (pred's link moved under
		// us), curr stays marked; the next traversal to pass over it
		// will finish the job in locate's help-unlink step. The logical
		// deletion itself is already committed either way.
		return nil
	}
}

// DeleteNode removes curr only if it is still the live node reachable for
// its key — pointer identity, not just key equality — so a stale
// reference obtained before a concurrent delete-and-reinsert cannot
// remove a fresher node for the same key.
func (l *List[K, V]) DeleteNode(curr *Node[K, V]) error {
	h := l.domain.RegisterThread()
	defer h.Unregister()

	l.gate.Enter()
	defer l.gate.Exit()

	for {
		pred, predHP, located, currHP, found, err := l.locate(h, curr.key)
		if err != nil {
			releaseHPs[K, V](predHP, currHP)
			return err
		}
		if !found || located != curr {
			releaseHPs[K, V](predHP, currHP)
			return ErrNotFound
		}

		if !curr.marked.CompareAndSwap(false, true) {
			// No sequence number was reserved for this attempt.
			releaseHPs[K, V](predHP, currHP)
			continue
		}

		l.stamp(curr)
		next := curr.next.Load()
		unlinked := pred.CompareAndSwap(curr, next)
		releaseHPs[K, V](predHP, currHP)
		if unlinked {
			l.releaseNode(h, curr)
		}
		return nil
	}
}

// SetValue inserts key/value if key is absent, or atomically replaces the
// live node for key with a new one carrying value. When an existing node
// is replaced, oldValue/ok describe the value that was replaced.
func (l *List[K, V]) SetValue(key K, value V) (oldValue V, ok bool, err error) {
	h := l.domain.RegisterThread()
	defer h.Unregister()

	l.gate.Enter()
	defer l.gate.Exit()

	for {
		pred, predHP, curr, currHP, found, lerr := l.locate(h, key)
		if lerr != nil {
			releaseHPs[K, V](predHP, currHP)
			var zero V
			return zero, false, lerr
		}

		if !found {
			n := newNode[K, V](key, value)
			n.next.Store(curr)
			inserted := pred.CompareAndSwap(curr, n)
			releaseHPs[K, V](predHP, currHP)
			if inserted {
				l.stamp(n)
				var zero V
				return zero, false, nil
			}
			continue
		}

		n := newNode[K, V](key, value)
		seq := l.stamp(n)
		if !curr.marked.CompareAndSwap(false, true) {
			releaseHPs[K, V](predHP, currHP)
			l.reportSkipped(seq)
			continue
		}
		n.next.Store(curr.next.Load())
		replaced := pred.CompareAndSwap(curr, n)
		releaseHPs[K, V](predHP, currHP)
		if replaced {
			old := curr.value
			l.releaseNode(h, curr)
			return old, true, nil
		}
		// Lost the physical-unlink race: curr stays marked and will be
		// helped away by a future traversal; n was never linked in, so
		// its reserved sequence number is lost.
		l.reportSkipped(seq)
	}
}

// Find returns a Ref to the live node for key, if any. Callers must call
// Ref.Release exactly once when done with the returned value.
func (l *List[K, V]) Find(key K) (*Ref[K, V], error) {
	h := l.domain.RegisterThread()
	defer h.Unregister()

	pred, predHP, curr, currHP, found, err := l.locate(h, key)
	releaseHPs[K, V](predHP)
	if err != nil {
		releaseHPs[K, V](currHP)
		return nil, err
	}
	if !found {
		releaseHPs[K, V](currHP)
		return nil, ErrNotFound
	}

	// A refcount of zero means a concurrent delete has already unlinked and
	// retired curr; reviving it would retire it, and run its cleanup, twice.
	for {
		rc := curr.refCount.Load()
		if rc <= 0 {
			currHP.Release()
			return nil, ErrNotFound
		}
		if curr.refCount.CompareAndSwap(rc, rc+1) {
			break
		}
	}
	currHP.Release()
	return &Ref[K, V]{list: l, node: curr}, nil
}

// GetCount returns the number of live nodes. Requires LockWrites to be
// held; returns ErrNotLocked otherwise.
func (l *List[K, V]) GetCount() (int, error) {
	if !l.gate.IsLocked() {
		return 0, ErrNotLocked
	}
	count := 0
	for n := l.head.Load(); n != nil; n = n.next.Load() {
		if !n.marked.Load() {
			count++
		}
	}
	return count, nil
}

// GetAll returns a Ref for every live node, in key order. Requires
// LockWrites to be held; returns ErrNotLocked otherwise. Every returned Ref
// must eventually be Released by the caller.
func (l *List[K, V]) GetAll() ([]*Ref[K, V], error) {
	if !l.gate.IsLocked() {
		return nil, ErrNotLocked
	}
	var out []*Ref[K, V]
	for n := l.head.Load(); n != nil; n = n.next.Load() {
		if n.marked.Load() {
			continue
		}
		n.refCount.Add(1)
		out = append(out, &Ref[K, V]{list: l, node: n})
	}
	return out, nil
}

// LockWrites gates out new mutations and waits for in-flight ones to
// finish, enabling a consistent GetCount/GetAll snapshot. Must be paired
// with UnlockWrites.
func (l *List[K, V]) LockWrites() { l.gate.LockWrites() }

// UnlockWrites releases a LockWrites hold.
func (l *List[K, V]) UnlockWrites() { l.gate.UnlockWrites() }

// Destroy frees every remaining node immediately, without going through
// hazard-pointer reclamation. Callers must guarantee quiescence: no other
// goroutine may hold a Ref or be calling any other List method
// concurrently with or after Destroy.
func (l *List[K, V]) Destroy() {
	n := l.head.Load()
	for n != nil {
		next := n.next.Load()
		if l.onFreed != nil {
			l.onFreed(n.key, n.value)
		}
		n = next
	}
	l.head.Store(nil)
}

// Ref is a caller-owned reference to a node returned by Find or GetAll. It
// keeps the node's cleanup callback from firing until Release is called,
// even if the node is concurrently deleted.
type Ref[K cmp.Ordered, V any] struct {
	list *List[K, V]
	node *Node[K, V]
}

// Key returns the referenced node's key.
func (r *Ref[K, V]) Key() K { return r.node.Key() }

// Value returns the referenced node's payload.
func (r *Ref[K, V]) Value() V { return r.node.Value() }

// SeqNo returns the referenced node's stamped sequence number.
func (r *Ref[K, V]) SeqNo() int64 { return r.node.SeqNo() }

// Node returns the underlying node pointer, for callers (such as
// hashtable) that need pointer identity to perform a DeleteNode call
// guarding against an intervening delete-and-reinsert of the same key.
func (r *Ref[K, V]) Node() *Node[K, V] { return r.node }

// Release drops this reference. Must be called exactly once.
func (r *Ref[K, V]) Release() {
	h := r.list.domain.RegisterThread()
	defer h.Unregister()
	r.list.releaseNode(h, r.node)
}
