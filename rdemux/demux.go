package rdemux

import (
	"cmp"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/gordian-engine/rill"
)

// Event is a value written to a named stream, as observed by [*Demux.ListenAll].
type Event[T any] struct {
	Name string
	Data T
}

// Stats is a snapshot of one consumer in a [Demux].
// Consumers created through [*Demux.ListenAll] report an empty Name.
type Stats struct {
	rill.ConsumerStats

	Name string
}

// Config is the configuration passed to [New].
// The zero value is a valid configuration.
type Config struct {
	// How to assign consumer IDs across all names.
	// If nil, IDs are assigned sequentially starting at 1.
	GenerateConsumerID rill.IDGenerator

	// Called whenever a consumer is removed from any stream in the Demux.
	// For consumers created through [*Demux.ListenAll], name is empty.
	// Called without any Demux lock held.
	OnConsumerRemoved func(name string, id rill.ConsumerID)
}

// Demux maps names to streams.
// Create one with [New].
type Demux[T any] struct {
	log *slog.Logger

	generateID rill.IDGenerator
	onRemoved  func(string, rill.ConsumerID)

	// Receives every write to any name.
	all *rill.Stream[Event[T], Event[T]]

	mu      sync.Mutex
	streams map[string]*rill.Stream[T, T]

	// Index from consumer ID to stream name.
	// Entries are added when an ID is generated,
	// and removed when the consumer is removed from its stream.
	owners map[rill.ConsumerID]string
}

// New returns a new Demux with no named streams.
// If log is nil, log output is discarded.
func New[T any](log *slog.Logger, cfg Config) *Demux[T] {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	genID := cfg.GenerateConsumerID
	if genID == nil {
		genID = rill.SequentialIDs(1)
	}

	d := &Demux[T]{
		log: log,

		generateID: genID,
		onRemoved:  cfg.OnConsumerRemoved,

		streams: make(map[string]*rill.Stream[T, T]),
		owners:  make(map[rill.ConsumerID]string),
	}

	d.all = rill.NewStream[Event[T], Event[T]](
		log.With("stream", "all"),
		rill.StreamConfig{
			GenerateConsumerID: genID,
			OnConsumerRemoved: func(id rill.ConsumerID) {
				if d.onRemoved != nil {
					d.onRemoved("", id)
				}
			},
		},
	)

	return d
}

// stream returns the stream for name.
// If no stream exists yet and create is false, it returns nil.
func (d *Demux[T]) stream(name string, create bool) *rill.Stream[T, T] {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.streams[name]
	if ok || !create {
		return s
	}

	s = rill.NewStream[T, T](d.log.With("name", name), rill.StreamConfig{
		GenerateConsumerID: func() rill.ConsumerID {
			id := d.generateID()

			d.mu.Lock()
			d.owners[id] = name
			d.mu.Unlock()

			return id
		},
		OnConsumerRemoved: func(id rill.ConsumerID) {
			d.mu.Lock()
			if d.owners[id] == name {
				delete(d.owners, id)
			}
			d.mu.Unlock()

			if d.onRemoved != nil {
				d.onRemoved(name, id)
			}
		},
	})
	d.streams[name] = s

	return s
}

// streamForID returns the named stream that currently has a consumer with the given ID,
// or nil if no named stream has one.
func (d *Demux[T]) streamForID(id rill.ConsumerID) *rill.Stream[T, T] {
	d.mu.Lock()
	var indexed *rill.Stream[T, T]
	if name, ok := d.owners[id]; ok {
		indexed = d.streams[name]
	}
	streams := slices.Collect(maps.Values(d.streams))
	d.mu.Unlock()

	if indexed != nil && indexed.HasConsumer(id) {
		return indexed
	}

	// A consumer that was removed and then read again
	// is registered once more, but is no longer indexed.
	for _, s := range streams {
		if s.HasConsumer(id) {
			return s
		}
	}
	return nil
}

// snapshot returns the current names and streams, ordered by name.
func (d *Demux[T]) snapshot() ([]string, []*rill.Stream[T, T]) {
	d.mu.Lock()
	defer d.mu.Unlock()

	names := slices.Sorted(maps.Keys(d.streams))
	streams := make([]*rill.Stream[T, T], len(names))
	for i, n := range names {
		streams[i] = d.streams[n]
	}
	return names, streams
}

// Write writes val to the stream with the given name,
// and to every consumer created through [*Demux.ListenAll].
//
// If nobody has listened to name yet, there is nobody to observe val
// on the named stream, so only ListenAll consumers receive it.
func (d *Demux[T]) Write(name string, val T) {
	if s := d.stream(name, false); s != nil {
		s.Write(val)
	}
	d.all.Write(Event[T]{Name: name, Data: val})
}

// Close closes the stream with the given name, with val as the terminal value.
func (d *Demux[T]) Close(name string, val T) {
	if s := d.stream(name, false); s != nil {
		s.Close(val)
	}
}

// CloseAll closes every named stream and the ListenAll stream.
func (d *Demux[T]) CloseAll(val T) {
	_, streams := d.snapshot()
	for _, s := range streams {
		s.Close(val)
	}
	d.all.Close(Event[T]{Data: val})
}

// WriteToConsumer writes val to the single consumer with the given ID.
// If no consumer with that ID is registered, WriteToConsumer does nothing.
func (d *Demux[T]) WriteToConsumer(id rill.ConsumerID, val T) {
	if s := d.streamForID(id); s != nil {
		s.WriteToConsumer(id, val)
		return
	}
	if d.all.HasConsumer(id) {
		d.all.WriteToConsumer(id, Event[T]{Data: val})
	}
}

// CloseConsumer closes the single consumer with the given ID.
// If no consumer with that ID is registered, CloseConsumer does nothing.
func (d *Demux[T]) CloseConsumer(id rill.ConsumerID, val T) {
	if s := d.streamForID(id); s != nil {
		s.CloseConsumer(id, val)
		return
	}
	if d.all.HasConsumer(id) {
		d.all.CloseConsumer(id, Event[T]{Data: val})
	}
}

// Kill kills every consumer of the stream with the given name.
func (d *Demux[T]) Kill(name string, val T) {
	if s := d.stream(name, false); s != nil {
		s.Kill(val)
	}
}

// KillAll kills every consumer of every named stream and of the ListenAll stream.
func (d *Demux[T]) KillAll(val T) {
	_, streams := d.snapshot()
	for _, s := range streams {
		s.Kill(val)
	}
	d.all.Kill(Event[T]{Data: val})
}

// KillConsumer kills the single consumer with the given ID.
// If no consumer with that ID is registered, KillConsumer does nothing.
func (d *Demux[T]) KillConsumer(id rill.ConsumerID, val T) {
	if s := d.streamForID(id); s != nil {
		s.KillConsumer(id, val)
		return
	}
	d.all.KillConsumer(id, Event[T]{Data: val})
}

// Unlisten kills every consumer of the named stream with a zero terminal value
// and forgets the stream.
// A later [*Demux.Listen] with the same name starts a new stream.
func (d *Demux[T]) Unlisten(name string) {
	d.mu.Lock()
	s, ok := d.streams[name]
	delete(d.streams, name)
	d.mu.Unlock()

	if !ok {
		return
	}

	var zero T
	s.Kill(zero)
	d.log.Debug("Unlistened", "name", name)
}

// Listen returns the [Listener] for the given name.
// The underlying stream is created if it does not yet exist.
func (d *Demux[T]) Listen(name string) *Listener[T] {
	// Create eagerly so that writes are retained
	// for consumers created from the listener.
	_ = d.stream(name, true)

	return newListener(
		name,
		func(timeout time.Duration) *rill.Consumer[T, T] {
			// Look up on every call, in case of Unlisten.
			return d.stream(name, true).CreateConsumer(timeout)
		},
		func() int { return d.ConsumerCount(name) },
		func() int { return d.Backpressure(name) },
	)
}

// CreateConsumer creates a consumer of the named stream
// only if the stream already exists,
// that is, if [*Demux.Listen] was called for name and name was not unlistened since.
// The boolean result is false when no stream exists.
func (d *Demux[T]) CreateConsumer(name string, timeout time.Duration) (*rill.Consumer[T, T], bool) {
	s := d.stream(name, false)
	if s == nil {
		return nil, false
	}
	return s.CreateConsumer(timeout), true
}

// ListenAll returns a [Listener] whose consumers observe
// the writes to every name, as [Event] values.
// Terminal results come only from [*Demux.CloseAll], [*Demux.KillAll],
// and ID-addressed operations.
func (d *Demux[T]) ListenAll() *Listener[Event[T]] {
	return newListener(
		"",
		d.all.CreateConsumer,
		d.all.ConsumerCount,
		d.all.Backpressure,
	)
}

// ConsumerStats returns the statistics for the consumer with the given ID.
func (d *Demux[T]) ConsumerStats(id rill.ConsumerID) (Stats, bool) {
	if s := d.streamForID(id); s != nil {
		d.mu.Lock()
		name := d.owners[id]
		d.mu.Unlock()

		cs, ok := s.ConsumerStats(id)
		if !ok {
			return Stats{}, false
		}
		if name == "" {
			name = d.nameOf(s)
		}
		return Stats{ConsumerStats: cs, Name: name}, true
	}

	cs, ok := d.all.ConsumerStats(id)
	return Stats{ConsumerStats: cs}, ok
}

func (d *Demux[T]) nameOf(s *rill.Stream[T, T]) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	for n, ds := range d.streams {
		if ds == s {
			return n
		}
	}
	return ""
}

// NameConsumerStats returns the statistics of every consumer
// of the named stream, ordered by ID.
func (d *Demux[T]) NameConsumerStats(name string) []Stats {
	s := d.stream(name, false)
	if s == nil {
		return nil
	}

	css := s.AllConsumerStats()
	out := make([]Stats, len(css))
	for i, cs := range css {
		out[i] = Stats{ConsumerStats: cs, Name: name}
	}
	return out
}

// AllConsumerStats returns the statistics of every consumer in d,
// ordered by name and then by ID.
// ListenAll consumers come first, with an empty name.
func (d *Demux[T]) AllConsumerStats() []Stats {
	var out []Stats
	for _, cs := range d.all.AllConsumerStats() {
		out = append(out, Stats{ConsumerStats: cs})
	}

	names, streams := d.snapshot()
	for i, s := range streams {
		for _, cs := range s.AllConsumerStats() {
			out = append(out, Stats{ConsumerStats: cs, Name: names[i]})
		}
	}

	slices.SortStableFunc(out, func(a, b Stats) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Backpressure returns the highest consumer backpressure of the named stream.
func (d *Demux[T]) Backpressure(name string) int {
	if s := d.stream(name, false); s != nil {
		return s.Backpressure()
	}
	return 0
}

// ConsumerBackpressure returns the backpressure of the consumer with the given ID,
// or zero if no such consumer is registered.
func (d *Demux[T]) ConsumerBackpressure(id rill.ConsumerID) int {
	if s := d.streamForID(id); s != nil {
		return s.ConsumerBackpressure(id)
	}
	return d.all.ConsumerBackpressure(id)
}

// MaxBackpressure returns the highest backpressure of any consumer in d.
func (d *Demux[T]) MaxBackpressure() int {
	bp := d.all.Backpressure()
	_, streams := d.snapshot()
	for _, s := range streams {
		bp = max(bp, s.Backpressure())
	}
	return bp
}

// HasConsumer reports whether the named stream has a consumer with the given ID.
func (d *Demux[T]) HasConsumer(name string, id rill.ConsumerID) bool {
	s := d.stream(name, false)
	return s != nil && s.HasConsumer(id)
}

// HasConsumerID reports whether any stream in d has a consumer with the given ID.
func (d *Demux[T]) HasConsumerID(id rill.ConsumerID) bool {
	return d.streamForID(id) != nil || d.all.HasConsumer(id)
}

// ConsumerCount returns the number of consumers of the named stream.
func (d *Demux[T]) ConsumerCount(name string) int {
	if s := d.stream(name, false); s != nil {
		return s.ConsumerCount()
	}
	return 0
}

// TotalConsumerCount returns the number of consumers across d,
// including ListenAll consumers.
func (d *Demux[T]) TotalConsumerCount() int {
	n := d.all.ConsumerCount()
	_, streams := d.snapshot()
	for _, s := range streams {
		n += s.ConsumerCount()
	}
	return n
}

// Names returns the names of the streams in d, in sorted order.
func (d *Demux[T]) Names() []string {
	names, _ := d.snapshot()
	return names
}
