// Package rquic relays named [rdemux.Demux] streams over QUIC.
//
// A [Server] serves the existing names of one Demux to remote subscribers.
// Subscriptions to names the Demux does not have are reset.
// Each subscription is one bidirectional QUIC stream:
// the subscriber writes a header naming the stream it wants,
// and the server writes one frame per value
// followed by a terminal frame when the stream is closed or killed.
//
// A [Client] subscribes to a remote name
// and writes what it receives into a local [rill.Stream].
package rquic
