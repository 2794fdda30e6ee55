package rill_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gordian-engine/rill"
	"github.com/gordian-engine/rill/internal/rtest"
	"github.com/stretchr/testify/require"
)

type onceResult struct {
	Val string
	Err error
}

// startOnce calls s.Once in a background goroutine,
// and returns after the goroutine's consumer is registered.
func startOnce(
	t *testing.T, ctx context.Context, s *rill.Stream[string, string], timeout time.Duration,
) <-chan onceResult {
	t.Helper()

	before := s.ConsumerCount()

	ch := make(chan onceResult, 1)
	go func() {
		v, err := s.Once(ctx, timeout)
		ch <- onceResult{Val: v, Err: err}
	}()

	require.Eventually(t, func() bool {
		return s.ConsumerCount() > before
	}, time.Second, time.Millisecond)

	return ch
}

func TestConsumable_Once(t *testing.T) {
	t.Run("receives next value", func(t *testing.T) {
		t.Parallel()

		ctx := t.Context()
		s := newStream(t)

		for i := range 3 {
			ch := startOnce(t, ctx, s, 0)
			s.Write(fmt.Sprintf("a%d", i))

			res := rtest.ReceiveSoon(t, ch)
			require.NoError(t, res.Err)
			require.Equal(t, fmt.Sprintf("a%d", i), res.Val)
		}

		require.Zero(t, s.ConsumerCount())
	})

	t.Run("idle timeout", func(t *testing.T) {
		t.Parallel()

		ctx := t.Context()
		s := newStream(t)

		_, err := s.Once(ctx, 10*time.Millisecond)
		require.True(t, rill.IsTimeout(err))

		var te rill.TimeoutError
		require.ErrorAs(t, err, &te)
		require.False(t, te.StreamEnded)

		require.Zero(t, s.ConsumerCount())
	})

	t.Run("close with timeout fails early", func(t *testing.T) {
		t.Parallel()

		ctx := t.Context()
		s := newStream(t)

		ch := startOnce(t, ctx, s, time.Minute)
		s.Close("")

		res := rtest.ReceiveSoon(t, ch)
		var te rill.TimeoutError
		require.ErrorAs(t, res.Err, &te)
		require.True(t, te.StreamEnded)
		require.Equal(t, time.Minute, te.After)
		require.Equal(t, "timed out early because stream ended (timeout 1m0s)", te.Error())

		require.Zero(t, s.ConsumerCount())
	})

	t.Run("kill with timeout fails early", func(t *testing.T) {
		t.Parallel()

		ctx := t.Context()
		s := newStream(t)

		ch := startOnce(t, ctx, s, time.Minute)
		s.Kill("")

		res := rtest.ReceiveSoon(t, ch)
		require.True(t, rill.IsTimeout(res.Err))
		require.Zero(t, s.ConsumerCount())
	})

	t.Run("close without timeout never resolves", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		s := newStream(t)

		ch := startOnce(t, ctx, s, 0)
		s.Close("")

		rtest.NotSending(t, ch)
		require.Eventually(t, func() bool {
			return s.ConsumerCount() == 0
		}, time.Second, time.Millisecond)

		// A later write does not satisfy the earlier call either.
		s.Write("too late")
		rtest.NotSending(t, ch)

		cancel()
		res := rtest.ReceiveSoon(t, ch)
		require.ErrorIs(t, res.Err, context.Canceled)
	})

	t.Run("new call after close observes new write", func(t *testing.T) {
		t.Parallel()

		ctx := t.Context()
		s := newStream(t)

		s.Close("")

		ch := startOnce(t, ctx, s, 0)
		s.Write("bar")

		res := rtest.ReceiveSoon(t, ch)
		require.NoError(t, res.Err)
		require.Equal(t, "bar", res.Val)
		require.Zero(t, s.ConsumerCount())
	})
}

func TestConsumable_Next(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	s := newStream(t)

	resCh := make(chan rill.Result[string, string], 1)
	go func() {
		res, err := s.Next(ctx, 0)
		if err != nil {
			t.Error(err)
			return
		}
		resCh <- res
	}()

	require.Eventually(t, func() bool {
		return s.ConsumerCount() == 1
	}, time.Second, time.Millisecond)

	s.Close("done123")

	res := rtest.ReceiveSoon(t, resCh)
	require.True(t, res.Done)
	require.Equal(t, "done123", res.Return)
	require.Zero(t, s.ConsumerCount())
}

func TestConsumable_All_concurrentLoops(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	s := newStream(t)

	var wg sync.WaitGroup
	results := make([][]string, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v, err := range s.All(ctx) {
				if err != nil {
					t.Error(err)
					return
				}
				results[i] = append(results[i], v)
			}
		}()
	}

	require.Eventually(t, func() bool {
		return s.ConsumerCount() == 2
	}, time.Second, time.Millisecond)

	for i := range 10 {
		s.Write(fmt.Sprintf("a%d", i))
	}
	s.Close("")

	wg.Wait()

	for _, r := range results {
		require.Len(t, r, 10)
		require.Equal(t, "a0", r[0])
		require.Equal(t, "a9", r[9])
	}
	require.Zero(t, s.ConsumerCount())
}

func TestNewConsumable_customReader(t *testing.T) {
	t.Parallel()

	ctx := t.Context()

	// A reader over a fixed slice, to show Consumable
	// does not depend on Stream.
	vals := []int{1, 2, 3}
	c := rill.NewConsumable(func(time.Duration) rill.Reader[int, string] {
		return &sliceReader{vals: vals}
	})

	var got []int
	for v, err := range c.All(ctx) {
		require.NoError(t, err)
		got = append(got, v)
	}
	require.Equal(t, vals, got)

	v, err := c.Once(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

type sliceReader struct {
	vals []int
	pos  int
}

func (r *sliceReader) Next(context.Context) (rill.Result[int, string], error) {
	if r.pos >= len(r.vals) {
		return rill.Result[int, string]{Done: true, Return: "end"}, nil
	}
	v := r.vals[r.pos]
	r.pos++
	return rill.Result[int, string]{Value: v}, nil
}

func (r *sliceReader) Close() {}
