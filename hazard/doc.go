// Package hazard implements a hazard-pointer domain: the shared safe-memory-
// reclamation (SMR) substrate every other package in this module builds on.
//
// # Overview
//
// A Domain is a process-wide (or, in Go terms, a per-use-site) registry of
// participating goroutines. Each participant registers once via
// RegisterThread and receives a ThreadHandle, which it uses to:
//
//   - Acquire a hazard pointer before dereferencing a shared node, publishing
//     "I may be looking at this address; do not free it out from under me."
//   - Retire a node once it has been unlinked from every data structure that
//     could reach it, handing it to the domain for deferred reclamation.
//
// A retired node's cleanup callback fires only once a reclamation scan
// proves no registered, active thread handle still holds a hazard pointer
// to it — the same guarantee the hazard-pointer literature (Michael,
// 2004) describes, expressed here without tagged pointers or
// thread-local storage.
//
// # Concurrency model
//
// Acquire publishes with a release store; RegisterThread/scan traverse with
// acquire loads. Only the owning ThreadHandle ever writes to its own
// threadRecord's hazard slots or retired list — other goroutines only read
// them during a scan. This means no CAS is needed on a thread's own hazard
// slots, only plain atomic store/load for the publication ordering.
//
// # Architecture
//
//	┌───────────────────────────────────────────┐
//	│                  Domain[T]                 │
//	│   head → threadRecord → threadRecord → nil │
//	├───────────────────────────────────────────┤
//	│ threadRecord:                              │
//	│   active   atomic.Bool                     │
//	│   slots    [N]hazardSlot  (published ptrs) │
//	│   retired  *retiredEntry  (owner-only)     │
//	└───────────────────────────────────────────┘
//
// # Cleanup vs. garbage collection
//
// Go already reclaims the memory behind a *T once nothing references it;
// this package's "reclamation" is not about freeing bytes, it is about the
// *timing* of CleanupFunc: it must run exactly once, on a thread that has
// proven the node unreachable from any in-flight hazard-protected read, so
// that a cleanup with caller-owned side effects (closing a file, returning
// a buffer to a pool, decrementing an external accounting counter) cannot
// race a concurrent reader. Letting the final Go reference drop afterwards
// is sufficient for memory; the scan's job is purely to sequence the
// callback.
package hazard
