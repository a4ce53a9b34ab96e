package mcu

import (
	"bufio"
	"io"
)

// Request is a request frame: the opcode followed by its parameters.
type Request struct {
	Op     Opcode
	Params []byte
}

// NewRequest creates a Request.
func NewRequest(op Opcode, params ...byte) *Request {
	return &Request{Op: op, Params: params}
}

// Bytes returns encoded bytes for sending.
func (r *Request) Bytes() []byte {
	b := make([]byte, len(r.Params)+1)
	b[0] = byte(r.Op)
	copy(b[1:], r.Params)
	return b
}

// WriteTo writes encoded bytes.
func (r *Request) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Bytes())
	return int64(n), err
}

// AppendUint16 appends v high byte first. Values are truncated to 16 bits
// by the caller's conversion, same as the firmware expects.
func AppendUint16(b []byte, v uint16) []byte {
	return append(b, byte(v>>8), byte(v))
}

// Uint16 decodes a big-endian value.
func Uint16(hi, lo byte) uint16 {
	return uint16(hi)<<8 | uint16(lo)
}

// Bool decodes a boolean reply byte: zero is false, anything else is true.
func Bool(b byte) bool {
	return b != 0
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// byteConn provides the byte level primitives over a stream.
type byteConn struct {
	r *bufio.Reader
	w *bufio.Writer
}

func newByteConn(rw io.ReadWriter) byteConn {
	return byteConn{r: bufio.NewReader(rw), w: bufio.NewWriterSize(rw, 16)}
}

// writeByte sends exactly one byte and flushes it to the wire.
func (c byteConn) writeByte(b byte) error {
	if err := c.w.WriteByte(b); err != nil {
		return err
	}
	return c.w.Flush()
}

// readByte blocks until one byte is received.
func (c byteConn) readByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return b, err
}
