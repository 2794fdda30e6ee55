// Package rdemux multiplexes many named [rill.Stream] values behind one [Demux].
//
// Each name maps to its own stream, created on the first call to [*Demux.Listen].
// Consumer IDs are unique across every name in a Demux,
// so ID-addressed operations such as [*Demux.KillConsumer]
// do not need the name.
//
// [*Demux.ListenAll] observes the writes of every name as [Event] values.
//
// [Wrapper] narrows a Demux to the operations a consumer-facing API needs,
// hiding the write side.
package rdemux
