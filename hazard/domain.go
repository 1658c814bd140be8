package hazard

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/dreamware/clds/internal/ptrset"
)

// hazardSlotsPerThread bounds how many hazard pointers a single
// ThreadHandle may hold concurrently. Every ordered-list traversal needs
// at most two (a predecessor and a current node); set-value and a hash
// table's multi-level walks can briefly need a couple more, so this is
// sized with headroom rather than the bare minimum.
const hazardSlotsPerThread = 8

// logf is a variable, not a direct call to log.Printf, so tests can
// observe (or silence) the fatal-ish logging path a failed reclamation
// scan takes.
var logf = log.Printf

// CleanupFunc is invoked exactly once per node, on the reclaiming
// goroutine, after the node is proven unreachable from every hazard
// pointer and just before the last Go reference to it is dropped. It must
// not call back into the data structure that produced the node.
type CleanupFunc[T any] func(ctx any, node *T)

// Domain is a hazard-pointer registry shared by every concurrent
// operation that needs to protect dereferences of a particular node type
// T. Construct one Domain per node type with New and share it across every
// data structure instance that manipulates nodes of that type (for
// example, every bucket list level of one hash table).
//
// The zero value is not usable; always construct via New.
type Domain[T any] struct {
	head             atomic.Pointer[threadRecord[T]]
	reclaimThreshold atomic.Int64
}

// threadRecord is one goroutine's registration with a Domain. It is never
// freed once allocated (only deactivated), because a concurrent scan
// running in another goroutine may still be mid-traversal of the domain's
// thread stack and must never dereference a freed record.
type threadRecord[T any] struct {
	next    atomic.Pointer[threadRecord[T]]
	active  atomic.Bool
	slots   [hazardSlotsPerThread]hazardSlot[T]
	retired *retiredEntry[T] // owner-thread-only; never touched by a scan running on another goroutine
	retiredLen int
}

// hazardSlot is one published-pointer cell. Only the owning thread record
// ever writes to its own slots; every other goroutine only reads them
// during a reclamation scan, so the store/load pair alone (no CAS) gives
// the required release/acquire publication ordering.
type hazardSlot[T any] struct {
	ptr atomic.Pointer[T]
}

// retiredEntry is a node a thread has unlinked from its data structure and
// handed to the domain for deferred cleanup, owned exclusively by the
// retiring thread until its cleanup fires.
type retiredEntry[T any] struct {
	next *retiredEntry[T]
	node *T
	fn   CleanupFunc[T]
	ctx  any
}

// Option configures a Domain at construction time.
type Option[T any] func(*Domain[T])

// WithReclaimThreshold sets how many retired-but-unreclaimed nodes a
// single thread may accumulate before Retire triggers a scan. The default
// is 1 (scan on every retire). n must be >= 1; invalid values are ignored.
func WithReclaimThreshold[T any](n int) Option[T] {
	return func(d *Domain[T]) {
		if n >= 1 {
			d.reclaimThreshold.Store(int64(n))
		}
	}
}

// New creates a hazard-pointer domain for nodes of type T.
func New[T any](opts ...Option[T]) *Domain[T] {
	d := &Domain[T]{}
	d.reclaimThreshold.Store(1)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetReclaimThreshold changes the domain's scan-trigger threshold. There
// is no ordering guarantee with retires already in flight on other
// threads; the new value simply applies to the next comparison.
func (d *Domain[T]) SetReclaimThreshold(n int) error {
	if n < 1 {
		return ErrInvalidReclaimThreshold
	}
	d.reclaimThreshold.Store(int64(n))
	return nil
}

// RegisterThread registers the calling goroutine with the domain and
// returns a handle it must use for every subsequent Acquire/Retire and,
// eventually, Unregister. Safe to call concurrently from many goroutines.
func (d *Domain[T]) RegisterThread() *ThreadHandle[T] {
	rec := &threadRecord[T]{}
	rec.active.Store(true)
	for {
		head := d.head.Load()
		rec.next.Store(head)
		if d.head.CompareAndSwap(head, rec) {
			break
		}
	}
	return &ThreadHandle[T]{domain: d, record: rec}
}

// Guard is a convenience over RegisterThread that returns a ThreadGuard
// whose Close unregisters exactly once, for defer-style cleanup in place
// of a manual RegisterThread/Unregister pair.
func (d *Domain[T]) Guard() *ThreadGuard[T] {
	return &ThreadGuard[T]{handle: d.RegisterThread()}
}

// Destroy forces a final reclamation pass over every thread record (active
// or not) and invokes every remaining retired node's cleanup
// unconditionally, then discards the domain's thread list.
//
// Precondition: every ThreadHandle obtained from this domain must have
// called Unregister before Destroy runs, and no Acquire/Retire may be in
// flight concurrently with Destroy. Destroy only sees the retired entries
// still held on thread records: entries a handle abandoned in Unregister
// (because another thread still protected them at that instant) are no
// longer on any record, so Destroy never runs their cleanup.
func (d *Domain[T]) Destroy() {
	for rec := d.head.Load(); rec != nil; {
		next := rec.next.Load()
		cur := rec.retired
		for cur != nil {
			if cur.fn != nil {
				cur.fn(cur.ctx, cur.node)
			}
			cur = cur.next
		}
		rec.retired = nil
		rec.retiredLen = 0
		rec = next
	}
	d.head.Store(nil)
}

// ThreadHandle is a goroutine's registration with a Domain. It must not be
// shared across goroutines: Acquire/Retire/Unregister assume a single
// logical owner.
type ThreadHandle[T any] struct {
	domain *Domain[T]
	record *threadRecord[T]
}

// HazardPointer is a published protection of a single node. Callers must
// call Release exactly once, from the same ThreadHandle that Acquired it,
// once they are done dereferencing the protected node.
type HazardPointer[T any] struct {
	slot *hazardSlot[T]
}

// Acquire publishes node as "in use" by the calling thread, returning a
// HazardPointer the caller must Release when done. Returns
// ErrHazardPointersExhausted if the thread has no free slot; the caller
// must release any hazard pointers it already holds for the in-flight
// operation and retry or fail the operation.
func (h *ThreadHandle[T]) Acquire(node *T) (*HazardPointer[T], error) {
	for i := range h.record.slots {
		s := &h.record.slots[i]
		if s.ptr.Load() == nil {
			s.ptr.Store(node)
			return &HazardPointer[T]{slot: s}, nil
		}
	}
	return nil, ErrHazardPointersExhausted
}

// Release clears the hazard pointer, making the node eligible for
// reclamation once no other thread still protects it.
func (hp *HazardPointer[T]) Release() {
	hp.slot.ptr.Store(nil)
}

// Ptr returns the node currently protected by hp.
func (hp *HazardPointer[T]) Ptr() *T {
	return hp.slot.ptr.Load()
}

// Retire hands node to the domain for deferred cleanup: fn(ctx, node) will
// run, exactly once, once a reclamation scan proves no thread holds a
// hazard pointer to node. If the thread's retired-list length reaches the
// domain's reclaim threshold, Retire triggers a scan synchronously before
// returning.
func (h *ThreadHandle[T]) Retire(node *T, fn CleanupFunc[T], ctx any) {
	h.record.retired = &retiredEntry[T]{node: node, fn: fn, ctx: ctx, next: h.record.retired}
	h.record.retiredLen++
	if h.record.retiredLen >= int(h.domain.reclaimThreshold.Load()) {
		h.domain.scan(h.record)
	}
}

// Unregister deactivates the thread handle: it stops counting toward the
// protection set observed by other threads' scans, and attempts one final
// best-effort scan of its own retired list before abandoning whatever
// remains (anything still protected by another thread's hazard pointer at
// this instant never gets its cleanup called, not even by a later Destroy).
// Unregister must be called
// exactly once per handle and never concurrently with another operation on
// the same handle.
func (h *ThreadHandle[T]) Unregister() {
	if h.record.retired != nil {
		h.domain.scan(h.record)
	}
	h.record.active.Store(false)
	h.record.retired = nil
	h.record.retiredLen = 0
}

// scan computes the union of hazard pointers published by every active
// thread record and frees (via cleanup callback) every entry on self's
// retired list whose node is absent from that union. self must be owned
// by the calling goroutine.
func (d *Domain[T]) scan(self *threadRecord[T]) {
	// Allocating the protection set is the only fallible step of a scan.
	// An allocation failure here is treated as fatal-ish: log it and leave
	// the retired list untouched (bounded leak, forward progress
	// preserved) rather than letting it propagate into the caller's
	// mutation. Go's allocator does not return a recoverable error on
	// exhaustion, so the equivalent here is recovering a panic from the
	// one allocation in this function.
	defer func() {
		if r := recover(); r != nil {
			logf("hazard: reclamation scan failed to allocate protection set: %v", r)
		}
	}()

	protected := ptrset.New[T](self.retiredLen)
	for rec := d.head.Load(); rec != nil; rec = rec.next.Load() {
		if !rec.active.Load() {
			continue
		}
		for i := range rec.slots {
			if p := rec.slots[i].ptr.Load(); p != nil {
				protected.Insert(p)
			}
		}
	}

	var prev *retiredEntry[T]
	cur := self.retired
	for cur != nil {
		next := cur.next
		if !protected.Contains(cur.node) {
			if cur.fn != nil {
				cur.fn(cur.ctx, cur.node)
			}
			self.retiredLen--
			if prev == nil {
				self.retired = next
			} else {
				prev.next = next
			}
		} else {
			prev = cur
		}
		cur = next
	}
}

// ThreadGuard wraps a ThreadHandle so it can be released with defer,
// instead of relying on a manual Unregister call at every return site.
type ThreadGuard[T any] struct {
	handle *ThreadHandle[T]
	once   sync.Once
}

// Handle returns the underlying ThreadHandle for Acquire/Retire calls.
func (g *ThreadGuard[T]) Handle() *ThreadHandle[T] {
	return g.handle
}

// Close unregisters the guarded thread handle. Safe to call more than
// once; only the first call has an effect.
func (g *ThreadGuard[T]) Close() error {
	g.once.Do(func() {
		g.handle.Unregister()
	})
	return nil
}
