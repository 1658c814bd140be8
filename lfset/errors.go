package lfset

import "errors"

// ErrNotFound is returned by Remove when the given Node is no longer
// (or was never) part of the set.
var ErrNotFound = errors.New("lfset: item not found")
