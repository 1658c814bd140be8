package hazard

import "errors"

// ErrHazardPointersExhausted is returned by ThreadHandle.Acquire when a
// thread has already published the maximum number of concurrent hazard
// pointers it is allowed. A caller that receives this must release any
// hazard pointers it already holds for the current operation and treat
// the operation as transiently failed (retry later).
var ErrHazardPointersExhausted = errors.New("hazard: no free hazard pointer slots for this thread")

// ErrInvalidReclaimThreshold is returned by Domain.SetReclaimThreshold when
// asked to set a threshold below 1.
var ErrInvalidReclaimThreshold = errors.New("hazard: reclaim threshold must be >= 1")
