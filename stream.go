package rill

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Stream is a broadcast stream with a single logical writer
// and any number of independent consumers.
//
// Writes never block.
// Every write is appended to a shared linked list,
// and each [Consumer] walks that list from its own cursor.
// A consumer starts at the tail of the list at the moment it is created,
// so it never observes values written before its creation.
//
// Closing or killing a stream terminates the current consumers only.
// The stream remains usable afterwards:
// new writes are observed by new consumers,
// and by existing consumers that read again.
//
// Use [NewStream] to create an instance.
type Stream[T, R any] struct {
	log *slog.Logger

	// Iteration helpers: Next, Once, and All.
	Consumable[T, R]

	generateID IDGenerator
	onRemoved  func(ConsumerID)

	mu        sync.Mutex
	tail      *node[T, R]
	consumers map[ConsumerID]*Consumer[T, R]
}

// StreamConfig is the configuration passed to [NewStream].
// The zero value is a valid configuration.
type StreamConfig struct {
	// How to assign IDs to new consumers.
	// If nil, IDs are assigned sequentially starting at 1.
	GenerateConsumerID IDGenerator

	// Called whenever a consumer is removed from the stream,
	// whether it read a terminal value, was killed,
	// timed out, had its read canceled, or was closed.
	//
	// The callback is invoked without any stream lock held,
	// so it may call methods on the stream.
	// It may be called concurrently.
	OnConsumerRemoved func(ConsumerID)
}

// NewStream returns a new, empty Stream.
// If log is nil, log output is discarded.
func NewStream[T, R any](log *slog.Logger, cfg StreamConfig) *Stream[T, R] {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	genID := cfg.GenerateConsumerID
	if genID == nil {
		genID = SequentialIDs(1)
	}

	s := &Stream[T, R]{
		log: log,

		generateID: genID,
		onRemoved:  cfg.OnConsumerRemoved,

		tail:      newNode[T, R](),
		consumers: make(map[ConsumerID]*Consumer[T, R]),
	}

	s.Consumable = NewConsumable(func(timeout time.Duration) Reader[T, R] {
		return s.CreateConsumer(timeout)
	})

	return s
}

// Write appends a value that every current consumer will receive.
func (s *Stream[T, R]) Write(val T) {
	s.append(Result[T, R]{Value: val}, 0, false)
}

// Close appends a terminal result that every current consumer will receive
// after reading any values written before it.
// Each consumer that reads the terminal result is removed from the stream.
func (s *Stream[T, R]) Close(ret R) {
	s.append(Result[T, R]{Return: ret, Done: true}, 0, false)
}

// WriteToConsumer appends a value that only the consumer with the given ID receives.
// All other consumers skip over it.
//
// The value still occupies a position in the stream,
// so it counts towards every consumer's backpressure until they pass it.
// If no consumer has the given ID, no consumer receives the value.
func (s *Stream[T, R]) WriteToConsumer(id ConsumerID, val T) {
	s.append(Result[T, R]{Value: val}, id, true)
}

// CloseConsumer appends a terminal result that only the consumer with the given ID receives.
// All other consumers skip over it, as with [*Stream.WriteToConsumer].
func (s *Stream[T, R]) CloseConsumer(id ConsumerID, ret R) {
	s.append(Result[T, R]{Return: ret, Done: true}, id, true)
}

func (s *Stream[T, R]) append(res Result[T, R], target ConsumerID, targeted bool) {
	n := newNode[T, R]()
	n.res = res
	n.target = target
	n.targeted = targeted

	s.mu.Lock()
	defer s.mu.Unlock()

	// Linking closes the old tail's ready channel,
	// which wakes every consumer waiting on it.
	s.tail.link(n)
	s.tail = n
}

// Kill immediately removes every current consumer from the stream.
// Each consumer's next read returns a terminal result holding ret,
// without delivering any values that were still unread.
// A consumer currently waiting for a value is woken immediately
// and receives the terminal result from that pending read.
func (s *Stream[T, R]) Kill(ret R) {
	s.mu.Lock()
	killed := make([]ConsumerID, 0, len(s.consumers))
	for id, c := range s.consumers {
		c.killLocked(ret)
		delete(s.consumers, id)
		killed = append(killed, id)
	}
	s.mu.Unlock()

	for _, id := range killed {
		s.log.Debug("Removed consumer", "id", id, "reason", "killed")
		s.notifyRemoved(id)
	}
}

// KillConsumer is like [*Stream.Kill] but only affects the consumer with the given ID.
// If no such consumer is registered, KillConsumer does nothing.
func (s *Stream[T, R]) KillConsumer(id ConsumerID, ret R) {
	s.mu.Lock()
	c, ok := s.consumers[id]
	if ok {
		c.killLocked(ret)
		delete(s.consumers, id)
	}
	s.mu.Unlock()

	if ok {
		s.log.Debug("Removed consumer", "id", id, "reason", "killed")
		s.notifyRemoved(id)
	}
}

// CreateConsumer returns a new consumer positioned at the current tail of the stream.
// The consumer is registered immediately,
// so writes after CreateConsumer returns count towards its backpressure.
//
// If timeout is positive, any single read on the consumer
// that waits longer than timeout for a new value
// fails with a [TimeoutError] and removes the consumer from the stream.
func (s *Stream[T, R]) CreateConsumer(timeout time.Duration) *Consumer[T, R] {
	// Generate outside the lock, in case the generator
	// has its own synchronization that calls back into the stream.
	id := s.generateID()

	c := &Consumer[T, R]{
		s:       s,
		id:      id,
		timeout: max(timeout, 0),
		wake:    make(chan struct{}, 1),
	}

	s.mu.Lock()
	c.cursor = s.tail
	s.registerLocked(c)
	s.mu.Unlock()

	s.log.Debug("Created consumer", "id", id, "timeout", c.timeout)

	return c
}

// Backpressure returns the highest backpressure among the current consumers,
// or zero if there are no consumers.
func (s *Stream[T, R]) Backpressure() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bp int
	for _, c := range s.consumers {
		bp = max(bp, c.backpressureLocked())
	}
	return bp
}

// ConsumerBackpressure returns the backpressure of the consumer with the given ID,
// or zero if no such consumer is registered.
func (s *Stream[T, R]) ConsumerBackpressure(id ConsumerID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.consumers[id]
	if !ok {
		return 0
	}
	return c.backpressureLocked()
}

// ConsumerStats returns the statistics for the consumer with the given ID.
// The boolean result is false if no such consumer is registered.
func (s *Stream[T, R]) ConsumerStats(id ConsumerID) (ConsumerStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.consumers[id]
	if !ok {
		return ConsumerStats{}, false
	}
	return c.statsLocked(), true
}

// AllConsumerStats returns the statistics of every current consumer, ordered by ID.
func (s *Stream[T, R]) AllConsumerStats() []ConsumerStats {
	s.mu.Lock()
	out := make([]ConsumerStats, 0, len(s.consumers))
	for _, c := range s.consumers {
		out = append(out, c.statsLocked())
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b ConsumerStats) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// HasConsumer reports whether a consumer with the given ID is currently registered.
func (s *Stream[T, R]) HasConsumer(id ConsumerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.consumers[id]
	return ok
}

// ConsumerCount returns the number of currently registered consumers.
func (s *Stream[T, R]) ConsumerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.consumers)
}

// ConsumerList returns the currently registered consumers, ordered by ID.
func (s *Stream[T, R]) ConsumerList() []*Consumer[T, R] {
	s.mu.Lock()
	out := make([]*Consumer[T, R], 0, len(s.consumers))
	for _, c := range s.consumers {
		out = append(out, c)
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b *Consumer[T, R]) int {
		return cmp.Compare(a.id, b.id)
	})
	return out
}

func (s *Stream[T, R]) registerLocked(c *Consumer[T, R]) {
	s.consumers[c.id] = c
	c.registered = true
}

// removeLocked unregisters c,
// reporting whether c was registered before the call.
// The caller must call notifyRemoved after releasing the lock
// if removeLocked returns true.
func (s *Stream[T, R]) removeLocked(c *Consumer[T, R]) bool {
	if !c.registered {
		return false
	}
	c.registered = false

	// Only delete the map entry if it still belongs to c.
	// A custom ID generator could have reused the ID.
	if s.consumers[c.id] == c {
		delete(s.consumers, c.id)
	}
	return true
}

func (s *Stream[T, R]) notifyRemoved(id ConsumerID) {
	if s.onRemoved != nil {
		s.onRemoved(id)
	}
}
