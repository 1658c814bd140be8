package lflist

import "errors"

// ErrKeyAlreadyExists is returned by Insert and the insert-path of
// SetValue when a node with the given key is already live in the list.
var ErrKeyAlreadyExists = errors.New("lflist: key already exists")

// ErrNotFound is returned by Delete and Find when no live node matches
// the requested key.
var ErrNotFound = errors.New("lflist: key not found")

// ErrNotLocked is returned by GetCount and GetAll when called without the
// list's write-gate held via LockWrites.
var ErrNotLocked = errors.New("lflist: operation requires LockWrites to be held")

// ErrHazardPointersExhausted is returned when a traversal cannot acquire a
// hazard pointer for the node it needs to protect next. It is returned in
// place of hazard.ErrHazardPointersExhausted and does not wrap it.
var ErrHazardPointersExhausted = errors.New("lflist: hazard pointer acquisition failed")
