package rquic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gordian-engine/rill"
	"github.com/gordian-engine/rill/rdemux"
)

// Server serves the streams of a [rdemux.Demux] to remote subscribers.
// Only names that already exist in the Demux are served,
// so the local application decides which names are published
// by calling [*rdemux.Demux.Listen].
// Create one with [NewServer].
type Server struct {
	log *slog.Logger

	demux      *rdemux.Demux[[]byte]
	protocolID byte

	consumerTimeout time.Duration
	writeTimeout    time.Duration
	headerTimeout   time.Duration

	// Tracks every Serve call and every subscription goroutine.
	wg sync.WaitGroup
}

// ServerConfig is the configuration passed to [NewServer].
type ServerConfig struct {
	// The demux whose names are served. Required.
	Demux *rdemux.Demux[[]byte]

	// The first byte a subscriber must send on each stream.
	ProtocolID byte

	// Idle timeout for the consumer backing each subscription.
	// When it elapses, the subscription stream is reset.
	// Zero means no timeout.
	ConsumerTimeout time.Duration

	// Deadline for writing a single frame to a subscriber.
	// Zero means no deadline.
	WriteTimeout time.Duration

	// Deadline for reading the subscription header after a stream is accepted.
	// Zero means no deadline.
	HeaderTimeout time.Duration
}

// validate panics if there are any illegal settings in the configuration.
func (c ServerConfig) validate() {
	var panicErrs error

	if c.Demux == nil {
		panicErrs = errors.Join(panicErrs, errors.New("ServerConfig.Demux must not be nil"))
	}
	if c.ConsumerTimeout < 0 {
		panicErrs = errors.Join(panicErrs, fmt.Errorf(
			"ServerConfig.ConsumerTimeout must not be negative (got %s)", c.ConsumerTimeout,
		))
	}
	if c.WriteTimeout < 0 {
		panicErrs = errors.Join(panicErrs, fmt.Errorf(
			"ServerConfig.WriteTimeout must not be negative (got %s)", c.WriteTimeout,
		))
	}
	if c.HeaderTimeout < 0 {
		panicErrs = errors.Join(panicErrs, fmt.Errorf(
			"ServerConfig.HeaderTimeout must not be negative (got %s)", c.HeaderTimeout,
		))
	}

	if panicErrs != nil {
		panic(panicErrs)
	}
}

// NewServer returns a new Server.
// It panics if cfg is invalid.
func NewServer(log *slog.Logger, cfg ServerConfig) *Server {
	cfg.validate()

	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Server{
		log: log,

		demux:      cfg.Demux,
		protocolID: cfg.ProtocolID,

		consumerTimeout: cfg.ConsumerTimeout,
		writeTimeout:    cfg.WriteTimeout,
		headerTimeout:   cfg.HeaderTimeout,
	}
}

// Serve accepts subscription streams on conn
// until ctx is canceled or the connection fails.
// Each subscription is served on its own goroutine,
// and is stopped when ctx is canceled.
func (s *Server) Serve(ctx context.Context, conn Conn) error {
	s.wg.Add(1)
	defer s.wg.Done()

	log := s.log.With("remote", conn.RemoteAddr().String())

	for {
		st, err := conn.AcceptStream(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("stopped accepting streams: %w", context.Cause(ctx))
			}
			return fmt.Errorf("failed to accept stream: %w", err)
		}

		s.wg.Add(1)
		go s.serveSubscription(ctx, log, st)
	}
}

// Wait blocks until every Serve call and every subscription has returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) serveSubscription(ctx context.Context, log *slog.Logger, st Stream) {
	defer s.wg.Done()

	if s.headerTimeout > 0 {
		if err := st.SetReadDeadline(time.Now().Add(s.headerTimeout)); err != nil {
			log.Debug("Failed to set header read deadline", "err", err)
		}
	}

	name, err := readHeader(st, s.protocolID)
	if err != nil {
		log.Warn("Rejecting subscription", "err", err)
		st.CancelRead(StreamErrorProtocol)
		st.CancelWrite(StreamErrorProtocol)
		return
	}

	if err := st.SetReadDeadline(time.Time{}); err != nil {
		log.Debug("Failed to clear read deadline", "err", err)
	}

	log = log.With("name", name)

	c, ok := s.demux.CreateConsumer(name, s.consumerTimeout)
	if !ok {
		log.Warn("Rejecting subscription to unknown name")
		st.CancelRead(StreamErrorUnknownName)
		st.CancelWrite(StreamErrorUnknownName)
		return
	}
	defer c.Close()

	log = log.With("consumer", c.ID())
	log.Info("Subscription started")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The subscriber sends nothing after the header.
	// Any end to its send direction means it is gone.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer cancel()
		_, _ = io.Copy(io.Discard, st)
	}()
	defer func() {
		st.CancelRead(StreamErrorCanceled)
		<-readDone
	}()

	var buf []byte
	for {
		res, err := c.Next(ctx)
		if err != nil {
			code := StreamErrorCanceled
			if rill.IsTimeout(err) {
				code = StreamErrorTimeout
			}
			log.Debug("Subscription interrupted", "err", err)
			st.CancelWrite(code)
			return
		}

		kind, payload := frameValue, res.Value
		if res.Done {
			kind, payload = frameTerminal, res.Return
		}

		if len(payload) > MaxPayloadSize {
			log.Warn(
				"Refusing to send oversized payload",
				"size", len(payload), "max", MaxPayloadSize, "terminal", res.Done,
			)
			st.CancelWrite(StreamErrorTooLarge)
			return
		}

		buf = appendFrame(buf[:0], kind, payload)

		if err := s.writeFrame(st, buf); err != nil {
			log.Warn("Failed to write frame", "err", err)
			st.CancelWrite(StreamErrorCanceled)
			return
		}

		if res.Done {
			if err := st.Close(); err != nil {
				log.Debug("Failed to close subscription stream", "err", err)
			}
			log.Info("Subscription finished")
			return
		}
	}
}

func (s *Server) writeFrame(st Stream, frame []byte) error {
	if s.writeTimeout > 0 {
		if err := st.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}

	if _, err := st.Write(frame); err != nil {
		return err
	}
	return nil
}
