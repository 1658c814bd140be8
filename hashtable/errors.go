package hashtable

import "errors"

// ErrKeyAlreadyExists is returned by Insert when key is already live in
// this table, on any level.
var ErrKeyAlreadyExists = errors.New("hashtable: key already exists")

// ErrNotFound is returned by Delete, DeleteKeyValue, Remove, and Find when
// no level holds a live node for the requested key.
var ErrNotFound = errors.New("hashtable: key not found")

// ErrNotLocked is returned by GetCount and Snapshot when called without
// LockWrites held.
var ErrNotLocked = errors.New("hashtable: operation requires LockWrites to be held")

// ErrWrongSize names the result code for a bucket layout that changed
// during a snapshot. No function in this package currently returns it:
// Snapshot appends into its result instead of filling a pre-sized array,
// and LockWrites blocks every mutation that could resize a level.
var ErrWrongSize = errors.New("hashtable: bucket layout changed during snapshot")

// ErrArgumentInvalid is returned by New for a zero initial bucket count or
// a nil hash function.
var ErrArgumentInvalid = errors.New("hashtable: invalid argument")

// ErrHazardPointersExhausted is returned when a traversal cannot acquire a
// hazard pointer it needs; see hazard.ErrHazardPointersExhausted.
var ErrHazardPointersExhausted = errors.New("hashtable: hazard pointer acquisition failed")
