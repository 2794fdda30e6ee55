package rill

import (
	"context"
	"fmt"
	"iter"
	"time"
)

// Consumer is a cursor into a [Stream].
// Create one with [*Stream.CreateConsumer].
//
// A Consumer supports one reader at a time:
// calls to [*Consumer.Next] must not overlap.
// All other methods are safe to call concurrently with Next.
type Consumer[T, R any] struct {
	s *Stream[T, R]

	id      ConsumerID
	timeout time.Duration

	// Buffered with capacity 1.
	// Signaled on kill and close, to interrupt a waiting read.
	// A stale signal only causes one extra pass through the read loop.
	wake chan struct{}

	// The remaining fields are guarded by s.mu.

	// Last node read; nil once the consumer is closed.
	cursor *node[T, R]

	// Whether the consumer is present in s.consumers.
	registered bool

	// Armed by kill, consumed by the next read.
	killRes *Result[T, R]

	closed bool
}

// ConsumerStats is a snapshot of a consumer's state.
type ConsumerStats struct {
	ID           ConsumerID
	Backpressure int

	// Zero if the consumer has no idle timeout.
	Timeout time.Duration
}

// ID returns the consumer's ID.
func (c *Consumer[T, R]) ID() ConsumerID { return c.id }

// Timeout returns the idle timeout applied to each read,
// or zero if reads may wait indefinitely.
func (c *Consumer[T, R]) Timeout() time.Duration { return c.timeout }

// IsAlive reports whether the consumer is currently registered with its stream.
// A consumer is not alive after it reads a terminal result,
// is killed, times out, or is closed.
// Reading again from a consumer that is not closed makes it alive again.
func (c *Consumer[T, R]) IsAlive() bool {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	return c.registered
}

// Backpressure returns the number of nodes written to the stream
// that the consumer has not yet passed.
// It is zero whenever the consumer is not alive.
func (c *Consumer[T, R]) Backpressure() int {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	return c.backpressureLocked()
}

// Stats returns a snapshot of the consumer's statistics.
func (c *Consumer[T, R]) Stats() ConsumerStats {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	return c.statsLocked()
}

func (c *Consumer[T, R]) backpressureLocked() int {
	if !c.registered || c.cursor == nil {
		return 0
	}
	return int(c.s.tail.seq - c.cursor.seq)
}

func (c *Consumer[T, R]) statsLocked() ConsumerStats {
	return ConsumerStats{
		ID:           c.id,
		Backpressure: c.backpressureLocked(),
		Timeout:      c.timeout,
	}
}

// Next returns the next result addressed to c.
//
// If no unread value exists, Next blocks until one is written,
// until the consumer is killed or closed,
// until the consumer's idle timeout elapses,
// or until ctx is canceled.
//
// A terminal result (from close or kill) is returned with a nil error,
// and the consumer is removed from the stream.
// Calling Next again after a terminal result re-registers the consumer,
// and it continues with any values written after the terminal result.
//
// On timeout, Next returns a [TimeoutError].
// On context cancellation, it returns an error wrapping the context's cause.
// In both cases the consumer is removed from the stream,
// and a later call to Next resumes reading.
//
// After [*Consumer.Close], Next returns [ErrConsumerClosed].
func (c *Consumer[T, R]) Next(ctx context.Context) (Result[T, R], error) {
	s := c.s

	s.mu.Lock()
	if !c.closed && c.killRes == nil && !c.registered {
		s.registerLocked(c)
	}

	for {
		// s.mu is held at the top of every iteration.

		if c.closed {
			s.mu.Unlock()
			return Result[T, R]{}, ErrConsumerClosed
		}

		if kr := c.killRes; kr != nil {
			c.killRes = nil
			removed := s.removeLocked(c)
			s.mu.Unlock()

			// Discard the kill signal if the read never waited for it.
			select {
			case <-c.wake:
			default:
			}

			if removed {
				s.notifyRemoved(c.id)
			}
			return *kr, nil
		}

		next := c.cursor.next
		if next == nil {
			ready := c.cursor.ready
			s.mu.Unlock()

			if err := c.wait(ctx, ready); err != nil {
				return Result[T, R]{}, err
			}

			s.mu.Lock()
			continue
		}

		c.cursor = next

		if next.targeted && next.target != c.id {
			// Addressed to a different consumer.
			continue
		}

		res := next.res
		var removed bool
		if res.Done {
			removed = s.removeLocked(c)
		}
		s.mu.Unlock()

		if removed {
			s.log.Debug("Removed consumer", "id", c.id, "reason", "terminal")
			s.notifyRemoved(c.id)
		}
		return res, nil
	}
}

// wait blocks until ready is closed, c is woken,
// c's idle timeout elapses, or ctx is canceled.
// It must be called without s.mu held.
//
// A nil return means the caller should inspect the stream again.
// On timeout or cancellation, c has already been removed from the stream.
func (c *Consumer[T, R]) wait(ctx context.Context, ready <-chan struct{}) error {
	var timeoutCh <-chan time.Time
	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case <-ready:
		return nil

	case <-c.wake:
		return nil

	case <-timeoutCh:
		if !c.abandonRead("timeout") {
			return nil
		}
		return TimeoutError{ID: c.id, After: c.timeout}

	case <-ctx.Done():
		if !c.abandonRead("canceled") {
			return nil
		}
		return fmt.Errorf(
			"context canceled while consumer %d waited for next value: %w",
			c.id, context.Cause(ctx),
		)
	}
}

// abandonRead removes c from its stream following a failed wait,
// unless something arrived for c in the meantime.
// It reports whether the read should fail.
func (c *Consumer[T, R]) abandonRead(reason string) bool {
	s := c.s

	s.mu.Lock()
	if c.closed || c.killRes != nil || c.cursor.next != nil {
		// A value, kill, or close raced with the timer or context.
		// Let the read loop deliver it.
		s.mu.Unlock()
		return false
	}

	removed := s.removeLocked(c)
	s.mu.Unlock()

	if removed {
		s.log.Debug("Removed consumer", "id", c.id, "reason", reason)
		s.notifyRemoved(c.id)
	}
	return true
}

// killLocked arms the kill result and wakes a waiting read.
// The caller must hold s.mu and must delete c from s.consumers.
func (c *Consumer[T, R]) killLocked(ret R) {
	c.killRes = &Result[T, R]{Return: ret, Done: true}
	c.registered = false
	c.signal()
}

func (c *Consumer[T, R]) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
		// Already signaled.
	}
}

// Close permanently stops the consumer.
// It is removed from its stream, its backpressure drops to zero,
// and any pending or future call to [*Consumer.Next] returns [ErrConsumerClosed].
// No terminal result is produced.
//
// Close is idempotent.
func (c *Consumer[T, R]) Close() {
	s := c.s

	s.mu.Lock()
	if c.closed {
		s.mu.Unlock()
		return
	}
	c.closed = true
	c.cursor = nil
	c.killRes = nil
	removed := s.removeLocked(c)
	c.signal()
	s.mu.Unlock()

	if removed {
		s.log.Debug("Removed consumer", "id", c.id, "reason", "returned")
		s.notifyRemoved(c.id)
	}
}

// All returns an iterator over the values read from c.
//
// Iteration ends without error when a terminal result is read;
// c may be iterated again afterwards to continue with later values.
// If a read fails, the error is yielded once with a zero value
// and iteration ends.
// If the caller stops iterating early, c is closed.
func (c *Consumer[T, R]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			res, err := c.Next(ctx)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if res.Done {
				return
			}
			if !yield(res.Value, nil) {
				c.Close()
				return
			}
		}
	}
}
