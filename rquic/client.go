package rquic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gordian-engine/rill"
)

// Client subscribes to names served by a remote [Server].
type Client struct {
	log *slog.Logger

	protocolID       byte
	handshakeTimeout time.Duration
}

// ClientConfig is the configuration passed to [NewClient].
type ClientConfig struct {
	// Must match the server's ProtocolID.
	ProtocolID byte

	// Bound on opening the stream and writing the subscription header.
	// Zero means the caller's context is the only bound.
	HandshakeTimeout time.Duration
}

// NewClient returns a new Client.
// It panics if cfg is invalid.
func NewClient(log *slog.Logger, cfg ClientConfig) *Client {
	if cfg.HandshakeTimeout < 0 {
		panic(fmt.Errorf(
			"ClientConfig.HandshakeTimeout must not be negative (got %s)", cfg.HandshakeTimeout,
		))
	}

	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Client{
		log: log,

		protocolID:       cfg.ProtocolID,
		handshakeTimeout: cfg.HandshakeTimeout,
	}
}

// Subscribe subscribes to name on the server at the other end of conn.
//
// Every value the server sends is written to dst.
// When the server ends the subscription, dst is closed with the terminal payload.
// If the subscription fails or ctx is canceled first,
// the consumers of dst are killed with a nil payload.
//
// The returned channel is closed once the subscription has ended
// and dst has been closed or killed.
func (c *Client) Subscribe(
	ctx context.Context,
	conn Conn,
	name string,
	dst *rill.Stream[[]byte, []byte],
) (<-chan struct{}, error) {
	header, err := appendHeader(nil, c.protocolID, name)
	if err != nil {
		return nil, err
	}

	openCtx := ctx
	if c.handshakeTimeout > 0 {
		var cancel context.CancelFunc
		openCtx, cancel = context.WithTimeout(ctx, c.handshakeTimeout)
		defer cancel()
	}

	st, err := conn.OpenStreamSync(openCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to open subscription stream: %w", err)
	}

	// The open deadline also bounds the header write.
	if deadline, ok := openCtx.Deadline(); ok {
		if err := st.SetWriteDeadline(deadline); err != nil {
			st.CancelWrite(StreamErrorCanceled)
			st.CancelRead(StreamErrorCanceled)
			return nil, fmt.Errorf("failed to set header write deadline: %w", err)
		}
	}

	if _, err := st.Write(header); err != nil {
		st.CancelWrite(StreamErrorCanceled)
		st.CancelRead(StreamErrorCanceled)
		return nil, fmt.Errorf("failed to write subscription header: %w", err)
	}

	if err := st.SetWriteDeadline(time.Time{}); err != nil {
		st.CancelWrite(StreamErrorCanceled)
		st.CancelRead(StreamErrorCanceled)
		return nil, fmt.Errorf("failed to clear write deadline: %w", err)
	}

	done := make(chan struct{})
	go c.receive(ctx, c.log.With("name", name), st, dst, done)
	return done, nil
}

func (c *Client) receive(
	ctx context.Context,
	log *slog.Logger,
	st Stream,
	dst *rill.Stream[[]byte, []byte],
	done chan<- struct{},
) {
	defer close(done)

	stop := context.AfterFunc(ctx, func() {
		st.CancelRead(StreamErrorCanceled)
		st.CancelWrite(StreamErrorCanceled)
	})
	defer stop()

	for {
		kind, payload, err := readFrame(st)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = errors.New("subscription stream ended without terminal frame")
			}
			if ctx.Err() != nil {
				err = fmt.Errorf("subscription canceled: %w", context.Cause(ctx))
			}
			log.Debug("Subscription failed", "err", err)

			// Reset both directions; a no-op if already canceled.
			st.CancelRead(StreamErrorCanceled)
			st.CancelWrite(StreamErrorCanceled)

			dst.Kill(nil)
			return
		}

		if kind == frameTerminal {
			// Signals the server that we are done reading.
			_ = st.Close()
			dst.Close(payload)
			return
		}

		dst.Write(payload)
	}
}
