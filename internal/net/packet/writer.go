package packet

import (
	"encoding/binary"
	"math"
)

// Writer builds a payload body. All multi-byte writes are little-endian.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

func (w *Writer) WriteU8(v byte) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteI32(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteI64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteF32(v float32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	w.buf = append(w.buf, b[:]...)
}

// WriteString writes a u16 length prefix followed by the UTF-8 bytes.
// Oversized strings are truncated at the wire limit.
func (w *Writer) WriteString(s string) {
	if len(s) > maxStringLen {
		s = s[:maxStringLen]
	}
	w.WriteU16(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Len() int {
	return len(w.buf)
}

// Envelope prepends the opcode to a payload body, producing the bytes that
// go on the wire inside one transport frame.
func Envelope(op Opcode, body []byte) []byte {
	out := make([]byte, 2+len(body))
	binary.LittleEndian.PutUint16(out[0:2], uint16(op))
	copy(out[2:], body)
	return out
}

// Build encodes a message and wraps it in an envelope.
func Build(op Opcode, msg interface{ Encode(*Writer) }) []byte {
	w := NewWriter()
	msg.Encode(w)
	return Envelope(op, w.Bytes())
}
