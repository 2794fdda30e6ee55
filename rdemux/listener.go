package rdemux

import (
	"time"

	"github.com/gordian-engine/rill"
)

// Listener is a view of one stream in a [Demux].
// Its embedded [rill.Consumable] provides Once, Next, and All.
type Listener[E any] struct {
	rill.Consumable[E, E]

	name string

	create       func(time.Duration) *rill.Consumer[E, E]
	count        func() int
	backpressure func() int
}

func newListener[E any](
	name string,
	create func(time.Duration) *rill.Consumer[E, E],
	count func() int,
	backpressure func() int,
) *Listener[E] {
	return &Listener[E]{
		Consumable: rill.NewConsumable(func(timeout time.Duration) rill.Reader[E, E] {
			return create(timeout)
		}),

		name: name,

		create:       create,
		count:        count,
		backpressure: backpressure,
	}
}

// Name returns the stream name.
// It is empty for a listener returned by [*Demux.ListenAll].
func (l *Listener[E]) Name() string { return l.name }

// CreateConsumer returns a new consumer of the listener's stream.
func (l *Listener[E]) CreateConsumer(timeout time.Duration) *rill.Consumer[E, E] {
	return l.create(timeout)
}

// ConsumerCount returns the number of consumers currently registered on the stream.
func (l *Listener[E]) ConsumerCount() int { return l.count() }

// Backpressure returns the highest backpressure among the stream's consumers.
func (l *Listener[E]) Backpressure() int { return l.backpressure() }
