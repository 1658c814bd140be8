// Package hashtable implements a lock-free hash table as a chain of
// bucket-array levels, newest first, each bucket holding a lazily created
// *lflist.List. All bucket lists of all levels share one hazard-pointer
// domain and one write-gate, so a single LockWrites call quiesces the
// whole table for a consistent GetCount/Snapshot.
//
// Resize is incremental and additive: when the newest level's
// insert-until-resize counter reaches zero, a fresh level with double the
// bucket count is linked in ahead of it. Older levels are never migrated
// or destroyed; a key found in an older level shadows a miss in the
// newest one until it is deleted or opportunistically superseded by
// SetValue.
package hashtable
