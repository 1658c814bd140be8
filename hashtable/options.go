package hashtable

import (
	"cmp"
	"sync/atomic"

	"github.com/dreamware/clds/lflist"
)

// Option configures a Table at construction time.
type Option[K cmp.Ordered, V any] func(t *Table[K, V], initialBucketCount *uint64)

// WithInitialBucketCount overrides the newest level's starting bucket
// count (default 16). n must be > 0 or New returns ErrArgumentInvalid.
func WithInitialBucketCount[K cmp.Ordered, V any](n uint64) Option[K, V] {
	return func(_ *Table[K, V], initialBucketCount *uint64) {
		*initialBucketCount = n
	}
}

// WithReclaimThreshold sets how many retired-but-unreclaimed nodes a
// single thread may accumulate, across any bucket list of this table,
// before a reclamation scan runs.
func WithReclaimThreshold[K cmp.Ordered, V any](n int) Option[K, V] {
	return func(t *Table[K, V], _ *uint64) {
		if n >= 1 {
			_ = t.domain.SetReclaimThreshold(n)
		}
	}
}

// WithSeqNoCounter supplies a monotone counter shared by every bucket list
// of every level, so the table's successful mutations interleave into one
// gap-tracked sequence. See lflist.WithSeqNoCounter.
func WithSeqNoCounter[K cmp.Ordered, V any](counter *atomic.Int64) Option[K, V] {
	return func(t *Table[K, V], _ *uint64) {
		t.seqCounter = counter
	}
}

// WithSkippedSeqNoFunc registers the callback invoked for lost sequence
// numbers; see WithSeqNoCounter.
func WithSkippedSeqNoFunc[K cmp.Ordered, V any](fn lflist.SkippedSeqNoFunc, ctx any) Option[K, V] {
	return func(t *Table[K, V], _ *uint64) {
		t.onSkipped = fn
		t.skipCtx = ctx
	}
}

// WithOnNodeFreed registers a callback fired exactly once per node, once
// the node is proven unreachable by the table's hazard-pointer domain.
func WithOnNodeFreed[K cmp.Ordered, V any](fn lflist.OnNodeFreed[K, V]) Option[K, V] {
	return func(t *Table[K, V], _ *uint64) {
		t.onFreed = fn
	}
}
