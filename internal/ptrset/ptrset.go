package ptrset

import (
	"unsafe"

	"golang.org/x/exp/maps"
)

// Set is an open-addressed hash set of pointers of type *T, sized up front
// and grown by doubling on overflow. It is not safe for concurrent use;
// callers own exclusive access to a Set for its whole lifetime.
//
// The probing discipline (linear probing, tombstone-free because entries
// are never individually removed within a scan) matches its single use
// case: a Set is built fresh for one reclamation scan and discarded
// afterwards, never mutated concurrently with lookups.
type Set[T any] struct {
	slots []*T
	count int
}

// New allocates a Set sized for at least capacityHint entries before it
// needs to grow. A capacityHint of 0 or less still yields a usable Set.
func New[T any](capacityHint int) *Set[T] {
	size := nextPow2(capacityHint*2 + 1)
	if size < 8 {
		size = 8
	}
	return &Set[T]{slots: make([]*T, size)}
}

// Insert adds ptr to the set. Inserting nil is a no-op: a nil node pointer
// never denotes a live, protectable node.
func (s *Set[T]) Insert(ptr *T) {
	if ptr == nil {
		return
	}
	if (s.count+1)*2 > len(s.slots) {
		s.grow()
	}
	idx := s.indexFor(ptr)
	for {
		cur := s.slots[idx]
		if cur == nil {
			s.slots[idx] = ptr
			s.count++
			return
		}
		if cur == ptr {
			return
		}
		idx = (idx + 1) % len(s.slots)
	}
}

// Contains reports whether ptr was previously Insert-ed into the set.
func (s *Set[T]) Contains(ptr *T) bool {
	if ptr == nil || len(s.slots) == 0 {
		return false
	}
	idx := s.indexFor(ptr)
	for {
		cur := s.slots[idx]
		if cur == nil {
			return false
		}
		if cur == ptr {
			return true
		}
		idx = (idx + 1) % len(s.slots)
	}
}

// Len reports the number of distinct pointers currently held.
func (s *Set[T]) Len() int {
	return s.count
}

// Reset clears the set for reuse, retaining the backing array so a caller
// that runs repeated scans (e.g. a long-lived thread record) does not
// re-allocate on every reclamation pass.
func (s *Set[T]) Reset() {
	for i := range s.slots {
		s.slots[i] = nil
	}
	s.count = 0
}

// Snapshot materializes the set's current contents as a slice, for tests
// that want to assert on set membership without reaching into the
// open-addressed slots directly.
func (s *Set[T]) Snapshot() []*T {
	m := make(map[*T]struct{}, s.count)
	for _, p := range s.slots {
		if p != nil {
			m[p] = struct{}{}
		}
	}
	return maps.Keys(m)
}

func (s *Set[T]) grow() {
	old := s.slots
	s.slots = make([]*T, len(old)*2)
	s.count = 0
	for _, p := range old {
		if p != nil {
			s.Insert(p)
		}
	}
}

func (s *Set[T]) indexFor(ptr *T) int {
	h := hashPointer(ptr)
	return int(h % uint64(len(s.slots)))
}

// hashPointer derives a hash from the pointer's bit pattern. Reading a
// pointer's address as an integer for hashing (not for arithmetic, and
// never retained past this call) does not defeat the garbage collector:
// the *T value itself stays live in s.slots for as long as it is stored.
func hashPointer[T any](ptr *T) uint64 {
	addr := uint64(uintptr(unsafe.Pointer(ptr)))
	// MurmurHash3-style xor-shift-multiply mixing to spread pointer
	// alignment bits across the table.
	addr ^= addr >> 33
	addr *= 0xff51afd7ed558ccd
	addr ^= addr >> 33
	return addr
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
