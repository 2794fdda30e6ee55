// Package rill contains a broadcast stream with lazily consuming readers.
//
// A [Stream] has a single logical writer and any number of [Consumer] values.
// Every consumer observes the same sequence of values, in write order,
// at its own pace.
// Each consumer tracks its own backpressure (the count of values
// written but not yet read by that consumer),
// may have an idle timeout applied to each read,
// and may be individually addressed by the writer
// with [*Stream.WriteToConsumer], [*Stream.CloseConsumer],
// and [*Stream.KillConsumer].
//
// A consumer only observes values written after it was created.
// Closing or killing a stream only terminates the current consumers;
// the stream may continue to be written to,
// and new consumers observe the new values.
//
// Subpackages build on the stream:
// rdemux multiplexes many named streams,
// remit mirrors a discrete event emitter into named streams,
// rquic relays named streams to remote subscribers over QUIC,
// and rmetrics exports stream statistics to Prometheus.
package rill
