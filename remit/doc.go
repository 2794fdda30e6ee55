// Package remit exposes [rdemux.Demux] streams keyed by event name,
// in the shape of a conventional event emitter.
//
// [StreamEmitter] is a standalone emitter whose listeners are stream consumers.
// [Wrap] decorates an existing [Emitter] so that every emitted event
// is also observable as a stream.
package remit
