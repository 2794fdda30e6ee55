package remit_test

import (
	"testing"

	"github.com/gordian-engine/rill/internal/rtest"
	"github.com/gordian-engine/rill/rdemux"
	"github.com/gordian-engine/rill/remit"
	"github.com/stretchr/testify/require"
)

func TestStreamEmitter(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	e := remit.NewStreamEmitter[int](rtest.NewLogger(t), rdemux.Config{})

	foo := e.Listen("foo").CreateConsumer(0)
	all := e.ListenAll().CreateConsumer(0)
	require.Equal(t, 1, e.ListenerConsumerCount("foo"))
	require.Equal(t, 2, e.AllListenerConsumerCount())

	e.Emit("foo", 1)
	e.Emit("bar", 2)
	require.Equal(t, 1, e.ListenerBackpressure("foo"))
	require.Equal(t, 2, e.ListenerConsumerBackpressure(all.ID()))
	require.Equal(t, 2, e.AllListenerBackpressure())

	e.CloseListeners("foo")

	res, err := foo.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Value)

	res, err = foo.Next(ctx)
	require.NoError(t, err)
	require.True(t, res.Done)
	require.False(t, e.HasListenerConsumer("foo", foo.ID()))

	ev, err := all.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, rdemux.Event[int]{Name: "foo", Data: 1}, ev.Value)

	require.True(t, e.HasAnyListenerConsumer(all.ID()))
	e.KillListenerConsumer(all.ID())
	require.False(t, e.HasAnyListenerConsumer(all.ID()))
}

func TestStreamEmitter_RemoveListener(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	e := remit.NewStreamEmitter[string](rtest.NewLogger(t), rdemux.Config{})

	c := e.Listen("x").CreateConsumer(0)
	st, ok := e.ListenerConsumerStats(c.ID())
	require.True(t, ok)
	require.Equal(t, "x", st.Name)
	require.Len(t, e.EventConsumerStats("x"), 1)
	require.Len(t, e.AllListenerConsumerStats(), 1)

	e.RemoveListener("x")
	res, err := c.Next(ctx)
	require.NoError(t, err)
	require.True(t, res.Done)
	require.Empty(t, e.Demux().Names())
}

func TestStreamEmitter_KillListeners(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	e := remit.NewStreamEmitter[string](rtest.NewLogger(t), rdemux.Config{})

	a := e.Listen("a").CreateConsumer(0)
	b := e.Listen("b").CreateConsumer(0)

	e.Emit("a", "unread")
	e.KillListeners("a")

	res, err := a.Next(ctx)
	require.NoError(t, err)
	require.True(t, res.Done)
	require.True(t, e.HasListenerConsumer("b", b.ID()))

	e.KillAllListeners()
	require.Zero(t, e.AllListenerConsumerCount())

	c := e.Listen("b").CreateConsumer(0)
	e.CloseAllListeners()
	res, err = c.Next(ctx)
	require.NoError(t, err)
	require.True(t, res.Done)
}
