// Package lfset implements a lock-free set as a CAS-based singly linked
// list, a deliberately simplified alternative to a doubly linked,
// low-bit-marked design that would support O(1) middle removal: this
// version trades that for a plain head-to-tail walk on removal, the same
// shape lflist uses for its own deletion, in exchange for a much smaller
// surface of invariants to maintain.
package lfset
