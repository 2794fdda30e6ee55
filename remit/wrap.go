package remit

import (
	"log/slog"

	"github.com/gordian-engine/rill/rdemux"
)

// Emitter is the capability set of a conventional event emitter
// that [Wrap] decorates.
type Emitter interface {
	// Emit delivers args to the listeners of event,
	// reporting whether any listener was present.
	Emit(event string, args ...any) bool

	// ListenerCount returns the number of listeners registered for event.
	ListenerCount(event string) int
}

// Wrapped is an [Emitter] that forwards to another Emitter
// and mirrors every emitted argument list into a stream named after the event.
type Wrapped struct {
	inner Emitter

	// Streams holds the mirrored events.
	// Each emitted argument list is written as one value.
	Streams *StreamEmitter[[]any]
}

// Wrap returns a Wrapped decorating e.
// The wrapped emitter is not modified;
// callers must emit through the returned value for the mirror to see events.
func Wrap(log *slog.Logger, e Emitter) *Wrapped {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Wrapped{
		inner:   e,
		Streams: NewStreamEmitter[[]any](log, rdemux.Config{}),
	}
}

// Emit forwards to the wrapped emitter,
// then writes args to the stream for event.
// The return value is the wrapped emitter's.
func (w *Wrapped) Emit(event string, args ...any) bool {
	ok := w.inner.Emit(event, args...)
	w.Streams.Emit(event, args)
	return ok
}

// ListenerCount returns the wrapped emitter's listener count for event
// plus the number of stream consumers for event.
func (w *Wrapped) ListenerCount(event string) int {
	return w.inner.ListenerCount(event) + w.Streams.ListenerConsumerCount(event)
}

// Unwrap returns the wrapped emitter.
func (w *Wrapped) Unwrap() Emitter { return w.inner }
