// Package ptrset implements a single-threaded, open-addressed set of
// pointer values, used by the hazard package to build the "currently
// protected" snapshot during a reclamation scan.
//
// This collaborator is intentionally not exported: it has exactly one
// caller (hazard.scan), is never touched by more than one goroutine at a
// time, and carries no synchronization of its own. Growable, insert/find
// only; hazard.scan allocates a fresh Set for every scan and drops it
// afterwards. Reset clears a Set while keeping its backing array.
package ptrset
