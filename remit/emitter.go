package remit

import (
	"log/slog"

	"github.com/gordian-engine/rill"
	"github.com/gordian-engine/rill/rdemux"
)

// StreamEmitter emits values of type T to per-event streams.
// Use [NewStreamEmitter] to create one.
type StreamEmitter[T any] struct {
	d *rdemux.Demux[T]
}

// NewStreamEmitter returns a new StreamEmitter.
func NewStreamEmitter[T any](log *slog.Logger, cfg rdemux.Config) *StreamEmitter[T] {
	return &StreamEmitter[T]{
		d: rdemux.New[T](log, cfg),
	}
}

// Emit writes data to the stream for event.
func (e *StreamEmitter[T]) Emit(event string, data T) {
	e.d.Write(event, data)
}

// Listen returns the stream for event.
func (e *StreamEmitter[T]) Listen(event string) *rdemux.Listener[T] {
	return e.d.Listen(event)
}

// ListenAll returns a stream of every emitted event.
func (e *StreamEmitter[T]) ListenAll() *rdemux.Listener[rdemux.Event[T]] {
	return e.d.ListenAll()
}

// CloseListeners ends the stream for event with a zero terminal value.
func (e *StreamEmitter[T]) CloseListeners(event string) {
	var zero T
	e.d.Close(event, zero)
}

// CloseAllListeners ends every stream with a zero terminal value.
func (e *StreamEmitter[T]) CloseAllListeners() {
	var zero T
	e.d.CloseAll(zero)
}

// KillListeners immediately ends every consumer of event,
// discarding values they have not read.
func (e *StreamEmitter[T]) KillListeners(event string) {
	var zero T
	e.d.Kill(event, zero)
}

// KillAllListeners immediately ends every consumer of every event.
func (e *StreamEmitter[T]) KillAllListeners() {
	var zero T
	e.d.KillAll(zero)
}

// KillListenerConsumer immediately ends the consumer with the given ID.
func (e *StreamEmitter[T]) KillListenerConsumer(id rill.ConsumerID) {
	var zero T
	e.d.KillConsumer(id, zero)
}

// RemoveListener kills the consumers of event and forgets its stream.
func (e *StreamEmitter[T]) RemoveListener(event string) {
	e.d.Unlisten(event)
}

// ListenerConsumerStats returns the statistics for the consumer with the given ID.
func (e *StreamEmitter[T]) ListenerConsumerStats(id rill.ConsumerID) (rdemux.Stats, bool) {
	return e.d.ConsumerStats(id)
}

// EventConsumerStats returns the statistics of every consumer of event, ordered by ID.
func (e *StreamEmitter[T]) EventConsumerStats(event string) []rdemux.Stats {
	return e.d.NameConsumerStats(event)
}

// AllListenerConsumerStats returns the statistics of every consumer,
// ordered by event name and then by ID.
func (e *StreamEmitter[T]) AllListenerConsumerStats() []rdemux.Stats {
	return e.d.AllConsumerStats()
}

// ListenerConsumerCount returns the number of consumers listening to event.
func (e *StreamEmitter[T]) ListenerConsumerCount(event string) int {
	return e.d.ConsumerCount(event)
}

// AllListenerConsumerCount returns the number of consumers across every event.
func (e *StreamEmitter[T]) AllListenerConsumerCount() int {
	return e.d.TotalConsumerCount()
}

// ListenerBackpressure returns the highest backpressure among the consumers of event.
func (e *StreamEmitter[T]) ListenerBackpressure(event string) int {
	return e.d.Backpressure(event)
}

// ListenerConsumerBackpressure returns the backpressure of the consumer with the given ID.
func (e *StreamEmitter[T]) ListenerConsumerBackpressure(id rill.ConsumerID) int {
	return e.d.ConsumerBackpressure(id)
}

// AllListenerBackpressure returns the highest backpressure of any consumer.
func (e *StreamEmitter[T]) AllListenerBackpressure() int {
	return e.d.MaxBackpressure()
}

// HasListenerConsumer reports whether event has a consumer with the given ID.
func (e *StreamEmitter[T]) HasListenerConsumer(event string, id rill.ConsumerID) bool {
	return e.d.HasConsumer(event, id)
}

// HasAnyListenerConsumer reports whether any event has a consumer with the given ID.
func (e *StreamEmitter[T]) HasAnyListenerConsumer(id rill.ConsumerID) bool {
	return e.d.HasConsumerID(id)
}

// Demux returns the underlying demux,
// for instance to register it with a metrics collector.
func (e *StreamEmitter[T]) Demux() *rdemux.Demux[T] {
	return e.d
}
