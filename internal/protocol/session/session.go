// Package session defines the one-time handshake that binds a connection to
// a pipeline program, plus the acknowledgment vocabulary used afterwards.
//
// The handshake is the first frame on every connection. It is fire-and-forget
// from the client: no acknowledgment is expected for it regardless of the
// acknowledgment mode it negotiates.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pipectl/p4bridge/internal/protocol/frame"
)

// AckOK is the literal success token. Any other acknowledgment payload is a
// failure description.
const AckOK = "OK"

var (
	ErrInvalidHello = errors.New("session: invalid hello")
)

// Hello is the session configuration payload, immutable for the life of the
// connection.
type Hello struct {
	ProgramName string `json:"program_name"`
	EnableAcks  bool   `json:"enable_acknowledgments"`
}

// Validate enforces required handshake fields.
func (h Hello) Validate() error {
	if strings.TrimSpace(h.ProgramName) == "" {
		return fmt.Errorf("%w: missing program_name", ErrInvalidHello)
	}
	return nil
}

// WriteHello sends the handshake as one frame.
func WriteHello(w io.Writer, h Hello) error {
	if err := h.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return frame.Write(w, payload)
}

// ReadHello reads and validates the handshake frame. A peer that closes
// before the frame completes surfaces frame.ErrClosed.
func ReadHello(r io.Reader) (Hello, error) {
	payload, err := frame.Read(r)
	if err != nil {
		return Hello{}, err
	}
	var h Hello
	if err := json.Unmarshal(payload, &h); err != nil {
		return Hello{}, fmt.Errorf("%w: %v", ErrInvalidHello, err)
	}
	if err := h.Validate(); err != nil {
		return Hello{}, err
	}
	return h, nil
}
