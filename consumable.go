package rill

import (
	"context"
	"fmt"
	"iter"
	"time"
)

// Reader is the minimal consumer contract:
// a sequence of results that can be abandoned early.
// [*Consumer] satisfies Reader.
type Reader[T, R any] interface {
	Next(context.Context) (Result[T, R], error)
	Close()
}

// Consumable provides one-shot reads and iteration
// on top of a function that creates a [Reader].
//
// [Stream] embeds a Consumable,
// and other packages embed one in their own stream views.
type Consumable[T, R any] struct {
	create func(timeout time.Duration) Reader[T, R]
}

// NewConsumable returns a Consumable that uses create
// to obtain a fresh Reader for each read cycle.
// The timeout argument to create is zero when no idle timeout is requested.
func NewConsumable[T, R any](create func(timeout time.Duration) Reader[T, R]) Consumable[T, R] {
	return Consumable[T, R]{create: create}
}

// CreateReader returns a fresh Reader, as the start of a new read cycle.
func (c Consumable[T, R]) CreateReader(timeout time.Duration) Reader[T, R] {
	return c.create(timeout)
}

// Next creates a single-use reader, reads one result from it,
// and closes the reader.
// Only values written after Next is called are observed.
func (c Consumable[T, R]) Next(ctx context.Context, timeout time.Duration) (Result[T, R], error) {
	r := c.create(timeout)
	defer r.Close()

	return r.Next(ctx)
}

// Once returns the next value written after Once is called.
//
// A terminal result is not a value.
// If the read observes a terminal result and timeout is zero,
// Once keeps blocking until ctx is canceled,
// and returns an error wrapping the context's cause.
// If timeout is positive, Once instead returns a [TimeoutError]
// with StreamEnded set, without waiting out the timeout.
func (c Consumable[T, R]) Once(ctx context.Context, timeout time.Duration) (T, error) {
	res, err := c.Next(ctx, timeout)
	if err != nil {
		var zero T
		return zero, err
	}

	if !res.Done {
		return res.Value, nil
	}

	var zero T
	if timeout > 0 {
		return zero, TimeoutError{After: timeout, StreamEnded: true}
	}

	<-ctx.Done()
	return zero, fmt.Errorf(
		"context canceled while waiting for value after stream ended: %w",
		context.Cause(ctx),
	)
}

// All returns an iterator over the values of a new read cycle,
// following the semantics of [*Consumer.All].
// The reader is always closed when iteration finishes.
func (c Consumable[T, R]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		r := c.create(0)
		defer r.Close()

		for {
			res, err := r.Next(ctx)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if res.Done {
				return
			}
			if !yield(res.Value, nil) {
				return
			}
		}
	}
}
