// Package lflist implements a lock-free, strictly ordered singly linked
// list with hazard-pointer-protected traversal. This is the unified
// sorted-list form: every caller in this module, including hashtable's
// buckets, wants strict key ordering, so the plain unordered variant is
// not implemented separately.
//
// # Mark-bit abstraction
//
// A common C implementation of this structure steals the low bit of a raw
// next-pointer as a logical-deletion mark. Go pointers cannot carry a
// steganographic bit safely, so each Node here instead carries its own
// atomic "marked" boolean, and deletion is still a mark-then-unlink
// two-step, just with the mark living beside the pointer instead of
// inside it.
//
// # Memory safety vs. cleanup sequencing
//
// Go's garbage collector already makes it safe to dereference any pointer
// this package still holds a live reference to; hazard pointers here are
// not needed to prevent use-after-free in the C sense. They exist purely
// to sequence *when* an onNodeFreed callback may run relative to a
// concurrent reader holding that node "in hand" (see package hazard's doc
// comment). Traversal still validates each step by re-reading: after
// publishing a hazard pointer for the next node, it re-reads the
// predecessor's link and restarts from the head if the link changed. Marked
// nodes met along the way are helped out of the list with a CAS on the
// predecessor's link.
//
// Deletion always follows the same mark-then-unlink pattern; there is no
// separate, weaker mark/strip variant kept around for an unordered list.
package lflist
