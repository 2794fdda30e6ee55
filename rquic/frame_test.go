package rquic

import (
	"bytes"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeader(t *testing.T) {
	t.Parallel()

	b, err := appendHeader(nil, 0x52, "blocks")
	require.NoError(t, err)
	require.Equal(t, []byte{0x52, 0, 6, 'b', 'l', 'o', 'c', 'k', 's'}, b)

	name, err := readHeader(bytes.NewReader(b), 0x52)
	require.NoError(t, err)
	require.Equal(t, "blocks", name)

	_, err = readHeader(bytes.NewReader(b), 0x53)
	require.ErrorAs(t, err, new(ProtocolMismatchError))

	_, err = readHeader(bytes.NewReader(b[:4]), 0x52)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = appendHeader(nil, 0x52, strings.Repeat("x", math.MaxUint16+1))
	require.Error(t, err)
}

func TestFrame(t *testing.T) {
	t.Parallel()

	var b []byte
	b = appendFrame(b, frameValue, []byte("hello"))
	b = appendFrame(b, frameTerminal, nil)
	require.Equal(t, []byte{0x01, 0, 0, 0, 5, 'h', 'e', 'l', 'l', 'o', 0x02, 0, 0, 0, 0}, b)

	r := bytes.NewReader(b)

	kind, payload, err := readFrame(r)
	require.NoError(t, err)
	require.Equal(t, frameValue, kind)
	require.Equal(t, []byte("hello"), payload)

	kind, payload, err = readFrame(r)
	require.NoError(t, err)
	require.Equal(t, frameTerminal, kind)
	require.Empty(t, payload)

	_, _, err = readFrame(r)
	require.ErrorIs(t, err, io.EOF)
}

func TestFrame_invalid(t *testing.T) {
	t.Parallel()

	t.Run("unknown kind", func(t *testing.T) {
		t.Parallel()
		_, _, err := readFrame(bytes.NewReader([]byte{0x07, 0, 0, 0, 0}))
		require.ErrorContains(t, err, "unknown frame kind")
	})

	t.Run("oversized payload", func(t *testing.T) {
		t.Parallel()
		_, _, err := readFrame(bytes.NewReader([]byte{0x01, 0xff, 0xff, 0xff, 0xff}))
		require.ErrorContains(t, err, "exceeds maximum")
	})

	t.Run("truncated payload", func(t *testing.T) {
		t.Parallel()
		_, _, err := readFrame(bytes.NewReader([]byte{0x01, 0, 0, 0, 3, 'a'}))
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("truncated header", func(t *testing.T) {
		t.Parallel()
		_, _, err := readFrame(bytes.NewReader([]byte{0x01, 0}))
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}
