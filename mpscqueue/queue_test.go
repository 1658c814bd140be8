package mpscqueue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialEnqueueDequeueYieldsFIFOOrder(t *testing.T) {
	q := New[string]()
	q.Enqueue("a")
	q.Enqueue("b")

	v, err := q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}

func TestDequeueOnEmptyQueueReturnsErrEmpty(t *testing.T) {
	q := New[int]()
	_, err := q.Dequeue()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestPeekDoesNotRemove(t *testing.T) {
	q := New[int]()
	q.Enqueue(1)

	v, err := q.Peek()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	assert.True(t, q.IsEmpty())
}

func TestFillReversesBatchIntoFIFOOrder(t *testing.T) {
	q := New[int]()
	for i := 0; i < 5; i++ {
		q.Enqueue(i)
	}
	for i := 0; i < 5; i++ {
		v, err := q.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	assert.True(t, q.IsEmpty())
}

// TestConcurrentProducersPreserveOrderWithinEachProducer is a reduced-scale
// take on spec scenario 6: several producers each enqueue a strictly
// increasing subsequence; the single consumer must see exactly
// producers*itemsPerProducer items, and each producer's own subsequence
// must come out in order (though producers may interleave with each
// other).
func TestConcurrentProducersPreserveOrderWithinEachProducer(t *testing.T) {
	const producers = 4
	const itemsPerProducer = 20000

	q := New[[2]int]() // [producerID, sequence]

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		p := p
		go func() {
			defer wg.Done()
			for i := 0; i < itemsPerProducer; i++ {
				q.Enqueue([2]int{p, i})
			}
		}()
	}
	wg.Wait()

	lastSeen := make([]int, producers)
	for i := range lastSeen {
		lastSeen[i] = -1
	}

	count := 0
	for {
		item, err := q.Dequeue()
		if err != nil {
			break
		}
		count++
		producer, seq := item[0], item[1]
		assert.Equal(t, lastSeen[producer]+1, seq, "producer %d out of order", producer)
		lastSeen[producer] = seq
	}

	assert.Equal(t, producers*itemsPerProducer, count)
}
