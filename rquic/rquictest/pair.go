// Package rquictest provides in-process QUIC fixtures for relay tests.
package rquictest

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"testing"
	"time"

	"github.com/gordian-engine/rill/rquic"
	"github.com/quic-go/quic-go"
	"github.com/stretchr/testify/require"
)

// serverName is the DNS name on every generated leaf.
const serverName = "rill.test"

// Pair is two QUIC endpoints on the loopback interface
// that trust one CA and are connected to each other.
type Pair struct {
	CA *CA

	// ServerConn is the connection accepted by the listening side.
	// ClientConn is the connection dialed by the other side.
	ServerConn, ClientConn rquic.Conn
}

// NewPair creates a connected Pair.
// Both transports are closed when ctx is canceled,
// and the UDP sockets are closed as part of [*testing.T.Cleanup].
func NewPair(t *testing.T, ctx context.Context) *Pair {
	t.Helper()

	ca, err := GenerateCA(time.Hour)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(ca.Cert)

	serverCert, err := ca.CreateLeaf(serverName)
	require.NoError(t, err)
	clientCert, err := ca.CreateLeaf(serverName)
	require.NoError(t, err)

	serverUDP := listenLoopback(t)
	clientUDP := listenLoopback(t)

	ql, err := rquic.StartListener(&tls.Config{
		Certificates: []tls.Certificate{serverCert},
		ClientCAs:    pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
	}, rquic.DefaultConfig(), rquic.MakeTransport(ctx, serverUDP))
	require.NoError(t, err)

	acceptCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	accepted := make(chan *quic.Conn, 1)
	go func() {
		qc, err := ql.Accept(acceptCtx)
		if err != nil {
			t.Error(err)
			accepted <- nil
			return
		}
		accepted <- qc
	}()

	clientConn, err := rquic.Dial(acceptCtx, rquic.MakeTransport(ctx, clientUDP), serverUDP.LocalAddr(), &tls.Config{
		Certificates: []tls.Certificate{clientCert},
		RootCAs:      pool,
		ServerName:   serverName,
	}, rquic.DefaultConfig())
	require.NoError(t, err)

	var serverConn *quic.Conn
	select {
	case serverConn = <-accepted:
	case <-acceptCtx.Done():
		t.Fatal("listener did not accept connection in time")
	}
	require.NotNil(t, serverConn)

	t.Cleanup(func() {
		_ = clientConn.CloseWithError(0, "")
		_ = serverConn.CloseWithError(0, "")
	})

	return &Pair{
		CA: ca,

		ServerConn: rquic.WrapConn(serverConn),
		ClientConn: clientConn,
	}
}

func listenLoopback(t *testing.T) *net.UDPConn {
	t.Helper()

	uc, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = uc.Close() })
	return uc
}
