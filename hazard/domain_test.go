package hazard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	val int
}

func TestAcquireReleaseBasic(t *testing.T) {
	d := New[node]()
	h := d.RegisterThread()
	defer h.Unregister()

	n := &node{val: 1}
	hp, err := h.Acquire(n)
	require.NoError(t, err)
	assert.Same(t, n, hp.Ptr())

	hp.Release()
	assert.Nil(t, hp.Ptr())
}

func TestAcquireExhaustion(t *testing.T) {
	d := New[node]()
	h := d.RegisterThread()
	defer h.Unregister()

	var hps []*HazardPointer[node]
	for i := 0; i < hazardSlotsPerThread; i++ {
		hp, err := h.Acquire(&node{val: i})
		require.NoError(t, err)
		hps = append(hps, hp)
	}

	_, err := h.Acquire(&node{val: 999})
	assert.ErrorIs(t, err, ErrHazardPointersExhausted)

	hps[0].Release()
	_, err = h.Acquire(&node{val: 1000})
	assert.NoError(t, err)
}

func TestRetireDeferredUntilUnprotected(t *testing.T) {
	d := New[node](WithReclaimThreshold[node](1))
	writer := d.RegisterThread()
	reader := d.RegisterThread()
	defer writer.Unregister()
	defer reader.Unregister()

	target := &node{val: 42}
	hp, err := reader.Acquire(target)
	require.NoError(t, err)

	var cleaned bool
	writer.Retire(target, func(ctx any, n *node) { cleaned = true }, nil)
	assert.False(t, cleaned, "cleanup must not fire while a hazard pointer protects the node")

	hp.Release()

	// Triggering another scan (via a second retire) should now reclaim it.
	writer.Retire(&node{val: 1}, func(ctx any, n *node) {}, nil)
	assert.True(t, cleaned, "cleanup must fire once the hazard pointer is released and a scan runs")
}

func TestRetireReclaimsImmediatelyWhenUnprotected(t *testing.T) {
	d := New[node](WithReclaimThreshold[node](1))
	h := d.RegisterThread()
	defer h.Unregister()

	var cleaned bool
	h.Retire(&node{val: 7}, func(ctx any, n *node) { cleaned = true }, nil)
	assert.True(t, cleaned)
}

func TestSetReclaimThresholdRejectsInvalid(t *testing.T) {
	d := New[node]()
	assert.ErrorIs(t, d.SetReclaimThreshold(0), ErrInvalidReclaimThreshold)
	assert.NoError(t, d.SetReclaimThreshold(4))
}

// Unregister's final scan reclaims the unprotected retired nodes, so none
// are left for Destroy.
func TestUnregisterReclaimsRemainingRetiredBeforeDestroy(t *testing.T) {
	d := New[node](WithReclaimThreshold[node](1000)) // avoid scanning on retire
	h := d.RegisterThread()

	var cleaned int
	for i := 0; i < 5; i++ {
		h.Retire(&node{val: i}, func(ctx any, n *node) { cleaned++ }, nil)
	}
	h.Unregister()

	d.Destroy()
	assert.Equal(t, 5, cleaned)
}

func TestThreadGuardCloseIsIdempotent(t *testing.T) {
	d := New[node]()
	g := d.Guard()
	require.NoError(t, g.Close())
	require.NoError(t, g.Close())
}

func TestConcurrentRegisterAcquireRetire(t *testing.T) {
	d := New[node](WithReclaimThreshold[node](8))

	const goroutines = 16
	const perGoroutine = 200

	var wg sync.WaitGroup
	var cleanedCount int64
	var mu sync.Mutex

	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			h := d.RegisterThread()
			defer h.Unregister()

			for i := 0; i < perGoroutine; i++ {
				n := &node{val: i}
				hp, err := h.Acquire(n)
				if err != nil {
					continue
				}
				_ = hp.Ptr().val
				hp.Release()
				h.Retire(n, func(ctx any, n *node) {
					mu.Lock()
					cleanedCount++
					mu.Unlock()
				}, nil)
			}
		}()
	}
	wg.Wait()
	d.Destroy()

	assert.Equal(t, int64(goroutines*perGoroutine), cleanedCount)
}
