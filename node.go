package rill

// node is a link in the stream's singly linked list.
//
// The stream only retains the tail node,
// and each consumer retains the last node it read.
// Any node behind every consumer cursor is unreachable
// and is garbage collected.
type node[T, R any] struct {
	// Closed when next is assigned.
	ready chan struct{}
	next  *node[T, R]

	res Result[T, R]

	// If targeted is set, only the consumer with the target ID
	// receives res; every other consumer skips the node.
	target   ConsumerID
	targeted bool

	// Position in the stream.
	// The difference between the tail's seq and a consumer cursor's seq
	// is the consumer's backpressure.
	seq uint64
}

func newNode[T, R any]() *node[T, R] {
	return &node[T, R]{
		ready: make(chan struct{}),
	}
}

// link assigns n as the successor of prev,
// then closes prev.ready, waking any consumer waiting on prev.
//
// The caller must hold the stream's lock.
// If link is called twice for the same prev, it panics.
func (prev *node[T, R]) link(n *node[T, R]) {
	n.seq = prev.seq + 1
	prev.next = n
	close(prev.ready)
}
