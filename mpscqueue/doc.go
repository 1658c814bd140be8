// Package mpscqueue implements a multi-producer, single-consumer queue as
// two lock-free LIFO stacks: producers CAS new items onto an enqueue
// stack, and the single consumer drains it by reversing it in bulk into a
// dequeue stack once the dequeue stack runs dry. This amortizes the
// reversal cost across every item in a batch rather than paying it per
// item, and needs no hazard-pointer domain at all since nodes are only
// ever touched by the thread that pushed them or by the single consumer.
package mpscqueue
