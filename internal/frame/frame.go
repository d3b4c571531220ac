// Package frame implements the fixed-header datastream frame exchanged
// with the host servers. Every frame starts with a 4-byte total length
// equal to its own byte length, followed by a 16-byte header and a
// variable payload. All integers are big-endian.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Header byte offsets.
const (
	OffLength        = 0  // 4 bytes, total frame length
	OffHeaderID      = 4  // 2 bytes
	OffServiceID     = 6  // 2 bytes
	OffInstance      = 8  // 4 bytes
	OffCorrelationID = 12 // 4 bytes
	OffTemplateLen   = 16 // 2 bytes
	OffReqRepID      = 18 // 2 bytes
	OffReturnCode    = 20 // 4 bytes, replies only

	HeaderLen   = 20
	MinReplyLen = HeaderLen + 4
)

var (
	ErrShortHeader    = errors.New("frame: short header")
	ErrFrameTooLarge  = errors.New("frame: frame too large")
	ErrLengthMismatch = errors.New("frame: length field does not match frame size")
)

// Frame is one complete wire message. The length field and the buffer
// length are kept equal for the lifetime of the frame.
type Frame struct {
	data []byte
}

// Limits constrains frame decode memory use.
type Limits struct {
	MaxFrameBytes uint32
}

func DefaultLimits() Limits {
	return Limits{MaxFrameBytes: 1024 * 1024}
}

// New allocates a zeroed frame of size bytes and writes the length
// field. Panics if size cannot hold the header; sizing a frame is a
// compile-time property of each request builder.
func New(size int) *Frame {
	if size < HeaderLen {
		panic(fmt.Sprintf("frame: size %d smaller than %d-byte header", size, HeaderLen))
	}
	f := &Frame{data: make([]byte, size)}
	binary.BigEndian.PutUint32(f.data[OffLength:], uint32(size))
	return f
}

// Parse wraps an inbound buffer without copying. The length field must
// match the buffer length.
func Parse(b []byte) (*Frame, error) {
	if len(b) < HeaderLen {
		return nil, ErrShortHeader
	}
	if binary.BigEndian.Uint32(b[OffLength:]) != uint32(len(b)) {
		return nil, ErrLengthMismatch
	}
	return &Frame{data: b}, nil
}

func (f *Frame) Len() int      { return len(f.data) }
func (f *Frame) Bytes() []byte { return f.data }

func (f *Frame) check(off, n int) {
	if off < 0 || off+n > len(f.data) {
		panic(fmt.Sprintf("frame: access [%d:%d) outside %d-byte frame", off, off+n, len(f.data)))
	}
}

func (f *Frame) Uint8(off int) uint8 {
	f.check(off, 1)
	return f.data[off]
}

func (f *Frame) SetUint8(off int, v uint8) {
	f.check(off, 1)
	f.data[off] = v
}

func (f *Frame) Uint16(off int) uint16 {
	f.check(off, 2)
	return binary.BigEndian.Uint16(f.data[off:])
}

func (f *Frame) SetUint16(off int, v uint16) {
	f.check(off, 2)
	binary.BigEndian.PutUint16(f.data[off:], v)
}

func (f *Frame) Uint32(off int) uint32 {
	f.check(off, 4)
	return binary.BigEndian.Uint32(f.data[off:])
}

func (f *Frame) SetUint32(off int, v uint32) {
	f.check(off, 4)
	binary.BigEndian.PutUint32(f.data[off:], v)
}

// BytesAt returns a copy of n bytes starting at off.
func (f *Frame) BytesAt(off, n int) []byte {
	f.check(off, n)
	out := make([]byte, n)
	copy(out, f.data[off:])
	return out
}

func (f *Frame) SetBytes(off int, b []byte) {
	f.check(off, len(b))
	copy(f.data[off:], b)
}

// Header field accessors.

func (f *Frame) ServiceID() uint16         { return f.Uint16(OffServiceID) }
func (f *Frame) SetServiceID(v uint16)     { f.SetUint16(OffServiceID, v) }
func (f *Frame) CorrelationID() uint32     { return f.Uint32(OffCorrelationID) }
func (f *Frame) SetCorrelationID(v uint32) { f.SetUint32(OffCorrelationID, v) }
func (f *Frame) TemplateLen() uint16       { return f.Uint16(OffTemplateLen) }
func (f *Frame) SetTemplateLen(v uint16)   { f.SetUint16(OffTemplateLen, v) }
func (f *Frame) ReqRepID() uint16          { return f.Uint16(OffReqRepID) }
func (f *Frame) SetReqRepID(v uint16)      { f.SetUint16(OffReqRepID, v) }

// ReturnCode reads the 4-byte result field replies carry after the
// header. Callers must have checked Len() >= MinReplyLen.
func (f *Frame) ReturnCode() uint32 { return f.Uint32(OffReturnCode) }

// Write sends one complete frame.
func Write(w io.Writer, f *Frame) error {
	_, err := w.Write(f.data)
	return err
}

// Read consumes exactly one frame. A declared length smaller than the
// fixed header is a framing error; a declared length above
// limits.MaxFrameBytes is rejected before any allocation.
func Read(r io.Reader, limits Limits) (*Frame, error) {
	var lenField [4]byte
	if _, err := io.ReadFull(r, lenField[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}
	total := binary.BigEndian.Uint32(lenField[:])
	if total < HeaderLen {
		return nil, ErrShortHeader
	}
	if total > limits.MaxFrameBytes {
		return nil, ErrFrameTooLarge
	}
	data := make([]byte, total)
	copy(data, lenField[:])
	if _, err := io.ReadFull(r, data[4:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: declared %d bytes", ErrLengthMismatch, total)
		}
		return nil, err
	}
	return &Frame{data: data}, nil
}
