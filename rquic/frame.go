package rquic

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	frameValue    byte = 0x01
	frameTerminal byte = 0x02
)

// MaxPayloadSize is the largest frame payload a [Client] accepts.
const MaxPayloadSize = 16 << 20

const frameHeaderSize = 1 + 4

// ProtocolMismatchError is returned when a subscription header
// carries a different protocol ID from the one configured.
type ProtocolMismatchError struct {
	Want, Got byte
}

func (e ProtocolMismatchError) Error() string {
	return fmt.Sprintf("protocol ID mismatch: want 0x%02x, got 0x%02x", e.Want, e.Got)
}

// appendHeader appends the subscription header for name to dst.
func appendHeader(dst []byte, protocolID byte, name string) ([]byte, error) {
	if len(name) > math.MaxUint16 {
		return nil, fmt.Errorf("stream name too long (%d bytes, max %d)", len(name), math.MaxUint16)
	}

	dst = append(dst, protocolID)
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(name)))
	return append(dst, name...), nil
}

// readHeader reads a subscription header from r and returns the stream name.
func readHeader(r io.Reader, protocolID byte) (string, error) {
	var buf [3]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return "", fmt.Errorf("failed to read subscription header: %w", err)
	}

	if buf[0] != protocolID {
		return "", ProtocolMismatchError{Want: protocolID, Got: buf[0]}
	}

	name := make([]byte, binary.BigEndian.Uint16(buf[1:]))
	if _, err := io.ReadFull(r, name); err != nil {
		return "", fmt.Errorf("failed to read stream name: %w", err)
	}
	return string(name), nil
}

// appendFrame appends a frame of the given kind to dst.
func appendFrame(dst []byte, kind byte, payload []byte) []byte {
	if uint64(len(payload)) > math.MaxUint32 {
		panic(fmt.Errorf("BUG: frame payload too large (%d bytes)", len(payload)))
	}

	dst = append(dst, kind)
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...)
}

// readFrame reads one frame from r.
// At a clean end of stream before any frame byte, it returns [io.EOF].
func readFrame(r io.Reader) (kind byte, payload []byte, err error) {
	var hdr [frameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil, fmt.Errorf("truncated frame header: %w", err)
		}
		return 0, nil, err
	}

	kind = hdr[0]
	if kind != frameValue && kind != frameTerminal {
		return 0, nil, fmt.Errorf("unknown frame kind 0x%02x", kind)
	}

	n := binary.BigEndian.Uint32(hdr[1:])
	if n > MaxPayloadSize {
		return 0, nil, fmt.Errorf("frame payload of %d bytes exceeds maximum %d", n, MaxPayloadSize)
	}

	payload = make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("failed to read frame payload: %w", err)
	}
	return kind, payload, nil
}
