package hashtable

import (
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intHash(k int) uint64 { return uint64(k) }

func levelCount[K interface{ ~int }, V any](t *Table[K, V]) int {
	n := 0
	for lvl := t.newest.Load(); lvl != nil; lvl = lvl.next.Load() {
		n++
	}
	return n
}

func TestInsertThenFindSingleThreaded(t *testing.T) {
	tbl, err := New[int, string](intHash)
	require.NoError(t, err)

	require.NoError(t, tbl.Insert(1, "one"))
	ref, err := tbl.Find(1)
	require.NoError(t, err)
	assert.Equal(t, "one", ref.Value())
	ref.Release()

	_, err = tbl.Find(2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertDuplicateKeyFails(t *testing.T) {
	tbl, err := New[int, string](intHash)
	require.NoError(t, err)

	require.NoError(t, tbl.Insert(1, "a"))
	assert.ErrorIs(t, tbl.Insert(1, "b"), ErrKeyAlreadyExists)
}

func TestNewRejectsNilHashFuncOrZeroBucketCount(t *testing.T) {
	_, err := New[int, string](nil)
	assert.ErrorIs(t, err, ErrArgumentInvalid)

	_, err = New[int, string](intHash, WithInitialBucketCount[int, string](0))
	assert.ErrorIs(t, err, ErrArgumentInvalid)
}

// TestOldLevelKeyVisibility reproduces spec scenario 2: insert 0x42 and
// 0x43 into a table with initial_bucket_size 1, delete 0x43, insert 0x42
// again, expecting KEY_ALREADY_EXISTS because 0x42 is still live on the
// level the table resized away from.
func TestOldLevelKeyVisibility(t *testing.T) {
	tbl, err := New[int, string](intHash, WithInitialBucketCount[int, string](1))
	require.NoError(t, err)

	require.NoError(t, tbl.Insert(0x42, "a"))
	require.NoError(t, tbl.Insert(0x43, "b"))
	require.Greater(t, levelCount(tbl), 1, "initial bucket size 1 should have forced a resize")

	require.NoError(t, tbl.Delete(0x43))

	err = tbl.Insert(0x42, "c")
	assert.ErrorIs(t, err, ErrKeyAlreadyExists)
}

// TestResizeDoesNotSpuriouslyGrowOnDuplicateInserts is the direct
// regression test for the item_count_until_resize fix: the counter must
// decrement only on successful inserts, never on KEY_ALREADY_EXISTS.
func TestResizeDoesNotSpuriouslyGrowOnDuplicateInserts(t *testing.T) {
	tbl, err := New[int, string](intHash, WithInitialBucketCount[int, string](1))
	require.NoError(t, err)

	require.NoError(t, tbl.Insert(1, "a"))
	levelsAfterFirstInsert := levelCount(tbl)
	require.Greater(t, levelsAfterFirstInsert, 1)

	for i := 0; i < 50; i++ {
		assert.ErrorIs(t, tbl.Insert(1, "dup"), ErrKeyAlreadyExists)
	}
	assert.Equal(t, levelsAfterFirstInsert, levelCount(tbl),
		"repeated duplicate inserts must not trigger further resizes")
}

func TestDeleteThenFindReturnsNotFound(t *testing.T) {
	tbl, err := New[int, string](intHash)
	require.NoError(t, err)

	require.NoError(t, tbl.Insert(1, "a"))
	require.NoError(t, tbl.Delete(1))

	_, err = tbl.Find(1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteKeyValueRequiresPointerIdentity(t *testing.T) {
	tbl, err := New[int, string](intHash)
	require.NoError(t, err)

	require.NoError(t, tbl.Insert(1, "a"))
	staleRef, err := tbl.Find(1)
	require.NoError(t, err)

	require.NoError(t, tbl.Delete(1))
	require.NoError(t, tbl.Insert(1, "b"))

	// staleRef still points at the node from the first insert, which is
	// no longer reachable for key 1 — DeleteKeyValue must refuse to
	// remove the fresh node that replaced it.
	err = tbl.DeleteKeyValue(staleRef)
	assert.ErrorIs(t, err, ErrNotFound)

	ref, err := tbl.Find(1)
	require.NoError(t, err)
	assert.Equal(t, "b", ref.Value())
	ref.Release()
}

func TestRemoveReturnsRefcountedNode(t *testing.T) {
	tbl, err := New[int, string](intHash)
	require.NoError(t, err)

	require.NoError(t, tbl.Insert(1, "a"))
	ref, err := tbl.Remove(1)
	require.NoError(t, err)
	assert.Equal(t, "a", ref.Value())
	ref.Release()

	_, err = tbl.Find(1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetValueInsertsWhenAbsentAndReplacesWhenPresent(t *testing.T) {
	tbl, err := New[int, string](intHash)
	require.NoError(t, err)

	old, ok, err := tbl.SetValue(1, "v1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, old)

	old, ok, err = tbl.SetValue(1, "v2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", old)

	ref, err := tbl.Find(1)
	require.NoError(t, err)
	assert.Equal(t, "v2", ref.Value())
	ref.Release()
}

func TestGetCountAndSnapshotRequireLockWrites(t *testing.T) {
	tbl, err := New[int, string](intHash)
	require.NoError(t, err)
	require.NoError(t, tbl.Insert(1, "a"))

	_, err = tbl.GetCount()
	assert.ErrorIs(t, err, ErrNotLocked)

	tbl.LockWrites()
	count, err := tbl.GetCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	refs, err := tbl.Snapshot()
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, 1, refs[0].Key())
	refs[0].Release()
	tbl.UnlockWrites()
}

func TestSnapshotIsSortedByKey(t *testing.T) {
	tbl, err := New[int, int](intHash, WithInitialBucketCount[int, int](4))
	require.NoError(t, err)
	for _, k := range []int{5, 1, 9, 3, 7} {
		require.NoError(t, tbl.Insert(k, k*10))
	}

	tbl.LockWrites()
	refs, err := tbl.Snapshot()
	tbl.UnlockWrites()
	require.NoError(t, err)

	var keys []int
	for _, r := range refs {
		keys = append(keys, r.Key())
		r.Release()
	}
	assert.Equal(t, []int{1, 3, 5, 7, 9}, keys)
}

func TestStringHashAndFormatHashAgree(t *testing.T) {
	assert.Equal(t, StringHash("42"), FormatHash(42))
	assert.Equal(t, StringHash(strconv.Itoa(7)), FormatHash(7))
}

// TestConcurrentInsertDeleteSnapshotIsConsistent is a reduced-scale take
// on spec scenario 4 (one inserter, one deleter racing over many keys,
// snapshot under write-lock matches the inserted-minus-deleted set).
func TestConcurrentInsertDeleteSnapshotIsConsistent(t *testing.T) {
	const n = 4000
	tbl, err := New[int, int](intHash, WithInitialBucketCount[int, int](8))
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			_ = tbl.Insert(i, i)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i += 2 {
			for {
				if err := tbl.Delete(i); err == nil {
					break
				}
				runtime.Gosched()
			}
		}
	}()
	wg.Wait()

	tbl.LockWrites()
	refs, err := tbl.Snapshot()
	tbl.UnlockWrites()
	require.NoError(t, err)

	seen := map[int]bool{}
	for _, r := range refs {
		key := r.Key()
		assert.False(t, seen[key], "duplicate key in snapshot")
		seen[key] = true
		assert.Equal(t, 1, key%2, fmt.Sprintf("even key %d should have been deleted", key))
		r.Release()
	}
}
