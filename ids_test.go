package rill_test

import (
	"testing"

	"github.com/gordian-engine/rill"
	"github.com/gordian-engine/rill/internal/rtest"
	"github.com/stretchr/testify/require"
)

func TestSequentialIDs(t *testing.T) {
	t.Parallel()

	gen := rill.SequentialIDs(10)
	require.Equal(t, rill.ConsumerID(10), gen())
	require.Equal(t, rill.ConsumerID(11), gen())
	require.Equal(t, rill.ConsumerID(12), gen())
}

func TestIDPool(t *testing.T) {
	t.Parallel()

	p := rill.NewIDPool()

	for i := 1; i <= 100; i++ {
		require.Equal(t, rill.ConsumerID(i), p.Acquire())
	}
	require.Equal(t, 100, p.InUse())

	p.Release(7)
	p.Release(3)
	require.Equal(t, 98, p.InUse())

	require.Equal(t, rill.ConsumerID(3), p.Acquire())
	require.Equal(t, rill.ConsumerID(7), p.Acquire())
	require.Equal(t, rill.ConsumerID(101), p.Acquire())

	// Releasing an unused ID is harmless.
	p.Release(5000)
	require.Equal(t, 101, p.InUse())
}

func TestIDPool_withStream(t *testing.T) {
	t.Parallel()

	ctx := t.Context()

	p := rill.NewIDPool()
	s := rill.NewStream[string, string](rtest.NewLogger(t), rill.StreamConfig{
		GenerateConsumerID: p.Acquire,
		OnConsumerRemoved:  p.Release,
	})

	a := s.CreateConsumer(0)
	b := s.CreateConsumer(0)
	require.Equal(t, rill.ConsumerID(1), a.ID())
	require.Equal(t, rill.ConsumerID(2), b.ID())

	s.CloseConsumer(a.ID(), "bye")
	res, err := a.Next(ctx)
	require.NoError(t, err)
	require.True(t, res.Done)
	require.Equal(t, 1, p.InUse())

	c := s.CreateConsumer(0)
	require.Equal(t, rill.ConsumerID(1), c.ID(), "released ID is reused")

	s.Kill("")
	require.Zero(t, p.InUse())
}
