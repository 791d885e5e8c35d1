// Package frame implements the length-prefixed wire transport used between
// the bridge client and the remote shell server.
//
// Every message on the wire is a 4-byte big-endian payload length followed
// by the payload bytes. The protocol never sends a zero-length payload, so
// a peer that goes away before a full frame arrives is always reported as
// ErrClosed, never as an empty message.
package frame

import (
	"encoding/binary"
	"errors"
	"io"
)

// HeaderLen is the size of the length prefix in bytes.
const HeaderLen = 4

// DefaultMaxPayload bounds how large a single frame may be before the
// reader refuses it. Commands and acknowledgments are short text; anything
// near this limit indicates a corrupt stream or a misbehaving peer.
const DefaultMaxPayload = 1 << 20

var (
	ErrClosed          = errors.New("frame: connection closed by peer")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrEmptyPayload    = errors.New("frame: refusing to send empty payload")
)

// Write sends one frame: the big-endian length prefix followed by payload,
// issued as a single Write call on w so frames from distinct callers do not
// interleave prefix and body.
func Write(w io.Writer, payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyPayload
	}
	buf := make([]byte, HeaderLen+len(payload))
	binary.BigEndian.PutUint32(buf[:HeaderLen], uint32(len(payload)))
	copy(buf[HeaderLen:], payload)
	_, err := w.Write(buf)
	return err
}

// WriteString is Write for textual payloads.
func WriteString(w io.Writer, s string) error {
	return Write(w, []byte(s))
}

// Read blocks until one complete frame has been read from r and returns its
// payload. A connection that closes before the length prefix completes, or
// mid-payload, yields ErrClosed: the logical message is simply absent.
// Reads tolerate partial TCP segments by looping until satisfied.
func Read(r io.Reader) ([]byte, error) {
	return ReadLimit(r, DefaultMaxPayload)
}

// ReadLimit is Read with an explicit payload size bound.
func ReadLimit(r io.Reader, maxPayload uint32) ([]byte, error) {
	var prefix [HeaderLen]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrClosed
		}
		return nil, err
	}
	n := binary.BigEndian.Uint32(prefix[:])
	if n > maxPayload {
		return nil, ErrPayloadTooLarge
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			// Truncated mid-payload: treated identically to a clean close.
			return nil, ErrClosed
		}
		return nil, err
	}
	return payload, nil
}

// ReadString is Read for textual payloads.
func ReadString(r io.Reader) (string, error) {
	b, err := Read(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
