package lfset

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertThenRemoveSingleThreaded(t *testing.T) {
	s := New[int]()
	v := 42
	n := s.Insert(&v)

	require.NoError(t, s.Remove(n))
	assert.ErrorIs(t, s.Remove(n), ErrNotFound, "removing twice must fail the second time")
}

func TestRemoveUnknownNodeFails(t *testing.T) {
	s := New[int]()
	v := 1
	n := &Node[int]{value: &v}
	assert.ErrorIs(t, s.Remove(n), ErrNotFound)
}

func TestPurgeVisitsEveryRemainingItemOnce(t *testing.T) {
	s := New[int]()
	values := []int{1, 2, 3}
	for i := range values {
		s.Insert(&values[i])
	}

	var seen []int
	var mu sync.Mutex
	s.Purge(func(ctx any, value *int) {
		mu.Lock()
		seen = append(seen, *value)
		mu.Unlock()
	}, nil)

	assert.ElementsMatch(t, values, seen)
}

func TestConcurrentInsertRemoveLeavesSetEmpty(t *testing.T) {
	const n = 2000
	s := New[int]()
	values := make([]int, n)
	nodes := make([]*Node[int], n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		values[i] = i
		go func() {
			defer wg.Done()
			nodes[i] = s.Insert(&values[i])
		}()
	}
	wg.Wait()

	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			require.NoError(t, s.Remove(nodes[i]))
		}()
	}
	wg.Wait()

	var remaining int
	s.Purge(func(ctx any, value *int) { remaining++ }, nil)
	assert.Equal(t, 0, remaining)
}
