package remit_test

import (
	"sync"
	"testing"

	"github.com/gordian-engine/rill/internal/rtest"
	"github.com/gordian-engine/rill/remit"
	"github.com/stretchr/testify/require"
)

// fakeEmitter records emitted events and reports a fixed listener count per event.
type fakeEmitter struct {
	mu      sync.Mutex
	emitted map[string][][]any
	counts  map[string]int
}

func newFakeEmitter() *fakeEmitter {
	return &fakeEmitter{
		emitted: make(map[string][][]any),
		counts:  make(map[string]int),
	}
}

func (e *fakeEmitter) Emit(event string, args ...any) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emitted[event] = append(e.emitted[event], args)
	return e.counts[event] > 0
}

func (e *fakeEmitter) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts[event]
}

func TestWrap(t *testing.T) {
	t.Parallel()

	ctx := t.Context()

	fe := newFakeEmitter()
	fe.counts["ping"] = 2

	w := remit.Wrap(rtest.NewLogger(t), fe)
	var _ remit.Emitter = w
	require.Same(t, fe, w.Unwrap())

	require.Equal(t, 2, w.ListenerCount("ping"))

	c := w.Streams.Listen("ping").CreateConsumer(0)
	require.Equal(t, 3, w.ListenerCount("ping"))
	require.Zero(t, w.ListenerCount("pong"))

	require.True(t, w.Emit("ping", "a", 1))
	require.False(t, w.Emit("pong"))

	require.Equal(t, [][]any{{"a", 1}}, fe.emitted["ping"])
	require.Len(t, fe.emitted["pong"], 1)

	res, err := c.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, []any{"a", 1}, res.Value)

	c.Close()
	require.Equal(t, 2, w.ListenerCount("ping"))
}
