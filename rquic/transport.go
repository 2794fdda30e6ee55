package rquic

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/quic-go/quic-go"
)

// ALPN is the application protocol negotiated on relay connections.
const ALPN = "rill"

// MakeTransport returns a QUIC transport over pc.
// The transport is closed when ctx is canceled.
func MakeTransport(ctx context.Context, pc net.PacketConn) *quic.Transport {
	t := &quic.Transport{Conn: pc}
	context.AfterFunc(ctx, func() {
		_ = t.Close()
	})
	return t
}

// DefaultConfig returns the QUIC configuration used for relay connections
// when the caller has no specific requirements.
func DefaultConfig() *quic.Config {
	return &quic.Config{
		HandshakeIdleTimeout: 5 * time.Second,
		MaxIdleTimeout:       30 * time.Second,
		KeepAlivePeriod:      10 * time.Second,

		// Each subscription uses one bidirectional stream.
		MaxIncomingStreams: 1 << 10,
	}
}

// StartListener starts listening for relay connections on t.
// The TLS configuration is cloned and restricted to TLS 1.3 with the relay ALPN.
func StartListener(tlsConf *tls.Config, qConf *quic.Config, t *quic.Transport) (*quic.Listener, error) {
	ql, err := t.Listen(relayTLSConfig(tlsConf), qConf)
	if err != nil {
		return nil, fmt.Errorf("failed to start QUIC listener: %w", err)
	}
	return ql, nil
}

// Dial opens a relay connection to addr over t.
func Dial(
	ctx context.Context,
	t *quic.Transport,
	addr net.Addr,
	tlsConf *tls.Config,
	qConf *quic.Config,
) (Conn, error) {
	qc, err := t.Dial(ctx, addr, relayTLSConfig(tlsConf), qConf)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return WrapConn(qc), nil
}

func relayTLSConfig(base *tls.Config) *tls.Config {
	c := base.Clone()
	c.NextProtos = []string{ALPN}
	c.MinVersion = tls.VersionTLS13
	return c
}
