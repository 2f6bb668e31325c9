package net

import (
	"encoding/binary"
	"fmt"
	"io"
)

// DefaultMaxFrameBytes bounds a single frame payload. The largest message
// the protocol carries is a full kingdom list, far under this; anything
// bigger is a malformed or hostile peer.
const DefaultMaxFrameBytes = 8 << 10

// FrameCodec reads and writes length-delimited frames:
// [2 bytes LE: payload length][payload]. The prefix counts payload bytes
// only, and the same MaxPayload bound is enforced on both directions so a
// frame this server writes is always one it would accept back.
type FrameCodec struct {
	MaxPayload int
}

func (c FrameCodec) max() int {
	if c.MaxPayload <= 0 {
		return DefaultMaxFrameBytes
	}
	return c.MaxPayload
}

// ReadFrame reads one frame from r and returns its payload. The payload is
// validated against the size bound before any of it is read, so an
// oversized prefix costs nothing but the two header bytes.
func (c FrameCodec) ReadFrame(r io.Reader) ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	payloadLen := int(binary.LittleEndian.Uint16(header[:]))
	if payloadLen == 0 {
		return nil, fmt.Errorf("empty frame")
	}
	if payloadLen > c.max() {
		return nil, fmt.Errorf("frame payload %d exceeds limit %d", payloadLen, c.max())
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload (%d bytes): %w", payloadLen, err)
	}
	return payload, nil
}

// WriteFrame writes one frame to w.
func (c FrameCodec) WriteFrame(w io.Writer, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("refusing to write an empty frame")
	}
	if len(data) > c.max() {
		return fmt.Errorf("frame payload %d exceeds limit %d", len(data), c.max())
	}

	var header [2]byte
	binary.LittleEndian.PutUint16(header[:], uint16(len(data)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}
