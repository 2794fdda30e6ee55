package rdemux

import "github.com/gordian-engine/rill"

// Wrapper exposes the listening side of a [Demux]
// along with close and kill operations that carry no terminal value.
//
// A Wrapper is intended to be handed to code that must not write to the Demux.
type Wrapper[T any] struct {
	d *Demux[T]
}

// NewWrapper returns a Wrapper around d.
func NewWrapper[T any](d *Demux[T]) Wrapper[T] {
	return Wrapper[T]{d: d}
}

// Listen forwards to [*Demux.Listen].
func (w Wrapper[T]) Listen(name string) *Listener[T] { return w.d.Listen(name) }

// ListenAll forwards to [*Demux.ListenAll].
func (w Wrapper[T]) ListenAll() *Listener[Event[T]] { return w.d.ListenAll() }

// Unlisten forwards to [*Demux.Unlisten].
func (w Wrapper[T]) Unlisten(name string) { w.d.Unlisten(name) }

// Close closes the named stream with a zero terminal value.
func (w Wrapper[T]) Close(name string) {
	var zero T
	w.d.Close(name, zero)
}

// CloseAll closes every stream with a zero terminal value.
func (w Wrapper[T]) CloseAll() {
	var zero T
	w.d.CloseAll(zero)
}

// Kill kills the consumers of the named stream with a zero terminal value.
func (w Wrapper[T]) Kill(name string) {
	var zero T
	w.d.Kill(name, zero)
}

// KillAll kills every consumer with a zero terminal value.
func (w Wrapper[T]) KillAll() {
	var zero T
	w.d.KillAll(zero)
}

// KillConsumer kills the consumer with the given ID with a zero terminal value.
func (w Wrapper[T]) KillConsumer(id rill.ConsumerID) {
	var zero T
	w.d.KillConsumer(id, zero)
}

// ConsumerStats forwards to [*Demux.ConsumerStats].
func (w Wrapper[T]) ConsumerStats(id rill.ConsumerID) (Stats, bool) {
	return w.d.ConsumerStats(id)
}

// NameConsumerStats forwards to [*Demux.NameConsumerStats].
func (w Wrapper[T]) NameConsumerStats(name string) []Stats {
	return w.d.NameConsumerStats(name)
}

// AllConsumerStats forwards to [*Demux.AllConsumerStats].
func (w Wrapper[T]) AllConsumerStats() []Stats { return w.d.AllConsumerStats() }

// Backpressure forwards to [*Demux.Backpressure].
func (w Wrapper[T]) Backpressure(name string) int { return w.d.Backpressure(name) }

// ConsumerBackpressure forwards to [*Demux.ConsumerBackpressure].
func (w Wrapper[T]) ConsumerBackpressure(id rill.ConsumerID) int {
	return w.d.ConsumerBackpressure(id)
}

// MaxBackpressure forwards to [*Demux.MaxBackpressure].
func (w Wrapper[T]) MaxBackpressure() int { return w.d.MaxBackpressure() }

// HasConsumer forwards to [*Demux.HasConsumer].
func (w Wrapper[T]) HasConsumer(name string, id rill.ConsumerID) bool {
	return w.d.HasConsumer(name, id)
}

// HasConsumerID forwards to [*Demux.HasConsumerID].
func (w Wrapper[T]) HasConsumerID(id rill.ConsumerID) bool { return w.d.HasConsumerID(id) }

// ConsumerCount forwards to [*Demux.ConsumerCount].
func (w Wrapper[T]) ConsumerCount(name string) int { return w.d.ConsumerCount(name) }

// TotalConsumerCount forwards to [*Demux.TotalConsumerCount].
func (w Wrapper[T]) TotalConsumerCount() int { return w.d.TotalConsumerCount() }
