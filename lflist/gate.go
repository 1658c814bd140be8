package lflist

import "sync"

// Gate implements a reader-preferring coarse exclusion scheme: ordinary
// mutations proceed freely unless a writer has called LockWrites, in which
// case they back off and wait; LockWrites itself waits for every
// already-in-flight mutation to finish.
//
// This is built on sync.Cond rather than a raw futex-style wait/wake
// primitive: Cond is the standard library's purpose-built equivalent, and
// nothing in this module's dependency stack offers a lower-level
// alternative worth reaching for instead.
//
// Gate is exported so that hashtable can share one Gate instance across
// every bucket list of every resize level of a table, so a single
// LockWrites call quiesces all of them at once.
type Gate struct {
	mu              sync.Mutex
	cond            *sync.Cond
	lockedForWrite  int
	pendingWriteOps int
}

// NewGate constructs a ready-to-use write gate.
func NewGate() *Gate {
	g := &Gate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Enter must be called at the start of every mutating operation and
// paired with a deferred Exit.
func (g *Gate) Enter() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		g.pendingWriteOps++
		if g.lockedForWrite == 0 {
			return
		}
		g.pendingWriteOps--
		g.cond.Broadcast()
		for g.lockedForWrite != 0 {
			g.cond.Wait()
		}
	}
}

// Exit matches a prior Enter.
func (g *Gate) Exit() {
	g.mu.Lock()
	g.pendingWriteOps--
	g.cond.Broadcast()
	g.mu.Unlock()
}

// LockWrites blocks until every in-flight mutation has exited, then holds
// off all future mutations until UnlockWrites is called. Safe to nest:
// multiple concurrent LockWrites callers each increment lockedForWrite and
// each must be matched by an UnlockWrites.
func (g *Gate) LockWrites() {
	g.mu.Lock()
	g.lockedForWrite++
	for g.pendingWriteOps != 0 {
		g.cond.Wait()
	}
	g.mu.Unlock()
}

// UnlockWrites releases one LockWrites hold.
func (g *Gate) UnlockWrites() {
	g.mu.Lock()
	g.lockedForWrite--
	g.cond.Broadcast()
	g.mu.Unlock()
}

// IsLocked reports whether any LockWrites hold is currently outstanding.
func (g *Gate) IsLocked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lockedForWrite > 0
}
