package lflist

import (
	"cmp"
	"sync/atomic"

	"github.com/dreamware/clds/hazard"
)

// SkippedSeqNoFunc is invoked when a sequence number was generated for a
// mutation whose effect will never be observed (lost to a concurrent
// conflicting mutation, or to a KEY_ALREADY_EXISTS outcome), so downstream
// consumers of the sequence can close the gap. May be called while the
// list's internal state is mid-mutation; implementations must be short
// and must not call back into the list.
type SkippedSeqNoFunc func(ctx any, seqNo int64)

// OnNodeFreed is invoked once a node is proven unreachable and about to be
// reclaimed, as a cleanup_fn/cleanup_ctx style pair. It must not call back
// into the list.
type OnNodeFreed[K any, V any] func(key K, value V)

// Option configures a List at construction time.
type Option[K cmp.Ordered, V any] func(*List[K, V])

// WithDomain shares an existing hazard-pointer domain across this list and
// any sibling lists over the same Node[K, V] type — the pattern hashtable
// uses so every bucket list of a table, across every resize level,
// publishes hazard pointers into one domain.
func WithDomain[K cmp.Ordered, V any](d *hazard.Domain[Node[K, V]]) Option[K, V] {
	return func(l *List[K, V]) {
		l.domain = d
	}
}

// WithGate shares an existing write gate across this list and any sibling
// lists that must be quiesced together — the pattern hashtable uses so one
// LockWrites call drains in-flight mutations across every bucket list of
// every resize level of a table.
func WithGate[K cmp.Ordered, V any](g *Gate) Option[K, V] {
	return func(l *List[K, V]) {
		l.gate = g
	}
}

// WithSeqNoCounter supplies an external, shared monotone counter: every
// successful insert/delete/set-value stamps the affected node with
// counter.Add(1), and a conflicting or superseded mutation reports its
// reserved number as skipped. Lists sharing one counter (e.g. every bucket
// of one hash table level) interleave into one gap-tracked sequence.
func WithSeqNoCounter[K cmp.Ordered, V any](counter *atomic.Int64) Option[K, V] {
	return func(l *List[K, V]) {
		l.seqNoCounter = counter
	}
}

// WithSkippedSeqNoFunc registers the callback invoked for lost sequence
// numbers; see WithSeqNoCounter. ctx is passed through unmodified.
func WithSkippedSeqNoFunc[K cmp.Ordered, V any](fn SkippedSeqNoFunc, ctx any) Option[K, V] {
	return func(l *List[K, V]) {
		l.onSkipped = fn
		l.skipCtx = ctx
	}
}

// WithOnNodeFreed registers a callback fired exactly once per node, once
// the node is proven unreachable by the hazard-pointer domain.
func WithOnNodeFreed[K cmp.Ordered, V any](fn OnNodeFreed[K, V]) Option[K, V] {
	return func(l *List[K, V]) {
		l.onFreed = fn
	}
}
