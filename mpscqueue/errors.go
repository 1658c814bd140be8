package mpscqueue

import "errors"

// ErrEmpty is returned by Dequeue and Peek when the queue holds no items.
var ErrEmpty = errors.New("mpscqueue: queue is empty")
