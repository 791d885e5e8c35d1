package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	payloads := []string{
		"x",
		"OK",
		`p4.MyIngress.fwd.add_with_set_egress("1", "2")`,
		strings.Repeat("a", 64*1024),
	}
	for _, p := range payloads {
		var buf bytes.Buffer
		if err := WriteString(&buf, p); err != nil {
			t.Fatalf("write %d bytes: %v", len(p), err)
		}
		got, err := ReadString(&buf)
		if err != nil {
			t.Fatalf("read %d bytes: %v", len(p), err)
		}
		if got != p {
			t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(p))
		}
	}
}

func TestWriteRefusesEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil); !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("expected ErrEmptyPayload, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("empty payload still wrote %d bytes", buf.Len())
	}
}

func TestReadClosedBeforePrefix(t *testing.T) {
	_, err := Read(bytes.NewReader(nil))
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed on empty stream, got %v", err)
	}
}

func TestReadClosedMidPrefix(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte{0, 0, 1}))
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed on short prefix, got %v", err)
	}
}

func TestReadClosedMidPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteString(&buf, "hello world"); err != nil {
		t.Fatalf("write: %v", err)
	}
	truncated := buf.Bytes()[:buf.Len()-3]
	_, err := Read(bytes.NewReader(truncated))
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed on truncated payload, got %v", err)
	}
}

func TestReadRejectsOversizedPayload(t *testing.T) {
	var prefix [HeaderLen]byte
	binary.BigEndian.PutUint32(prefix[:], DefaultMaxPayload+1)
	_, err := Read(bytes.NewReader(prefix[:]))
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

// chunkReader returns at most one byte per Read call, exercising the
// partial-segment loop in ReadLimit.
type chunkReader struct {
	data []byte
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, errors.New("unexpected extra read")
	}
	p[0] = c.data[0]
	c.data = c.data[1:]
	return 1, nil
}

func TestReadToleratesPartialSegments(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteString(&buf, "bfrt.batch_begin()"); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadString(&chunkReader{data: buf.Bytes()})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "bfrt.batch_begin()" {
		t.Fatalf("payload mismatch: %q", got)
	}
}
