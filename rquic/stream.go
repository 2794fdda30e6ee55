package rquic

import (
	"time"

	"github.com/quic-go/quic-go"
)

// Stream error codes sent with CancelRead and CancelWrite on a subscription stream.
const (
	// The header was malformed or carried the wrong protocol ID.
	StreamErrorProtocol quic.StreamErrorCode = 0x01

	// The server-side consumer exceeded its idle timeout.
	StreamErrorTimeout quic.StreamErrorCode = 0x02

	// The subscription was abandoned by either side.
	StreamErrorCanceled quic.StreamErrorCode = 0x03

	// The requested name is not served.
	StreamErrorUnknownName quic.StreamErrorCode = 0x04

	// A value or terminal payload exceeded [MaxPayloadSize].
	StreamErrorTooLarge quic.StreamErrorCode = 0x05
)

// Stream is a readable and writable QUIC stream,
// matching the methods of the quic-go stream type.
type Stream interface {
	Read([]byte) (int, error)
	CancelRead(quic.StreamErrorCode)
	SetReadDeadline(time.Time) error

	Write([]byte) (int, error)
	CancelWrite(quic.StreamErrorCode)
	SetWriteDeadline(time.Time) error

	// Close closes the send direction only.
	Close() error
}
