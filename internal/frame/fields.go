package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Optional parameters follow the frame template as LL/CP fields: a
// 4-byte length covering the whole field, a 2-byte code point, then
// the value.
const FieldHeaderLen = 6

var (
	ErrShortField       = errors.New("frame: short parameter field")
	ErrFieldLength      = errors.New("frame: parameter length out of range")
	ErrFieldValueLength = errors.New("frame: unexpected parameter value length")
)

// Field is one decoded LL/CP parameter.
type Field struct {
	CodePoint uint16
	Value     []byte
}

// FieldLen returns the encoded size of a field carrying n value bytes.
func FieldLen(n int) int { return FieldHeaderLen + n }

// AppendField writes one LL/CP field into f at off and returns the
// offset just past it.
func AppendField(f *Frame, off int, cp uint16, value []byte) int {
	f.SetUint32(off, uint32(FieldHeaderLen+len(value)))
	f.SetUint16(off+4, cp)
	f.SetBytes(off+FieldHeaderLen, value)
	return off + FieldHeaderLen + len(value)
}

// ScanFields decodes every LL/CP field from off to the end of the
// frame. Truncated or overlapping fields are rejected.
func ScanFields(f *Frame, off int) ([]Field, error) {
	fields := make([]Field, 0, 4)
	end := f.Len()
	for off < end {
		if end-off < FieldHeaderLen {
			return nil, ErrShortField
		}
		ll := int(f.Uint32(off))
		if ll < FieldHeaderLen || off+ll > end {
			return nil, fmt.Errorf("%w: ll=%d at offset %d", ErrFieldLength, ll, off)
		}
		fields = append(fields, Field{
			CodePoint: f.Uint16(off + 4),
			Value:     f.BytesAt(off+FieldHeaderLen, ll-FieldHeaderLen),
		})
		off += ll
	}
	return fields, nil
}

// FindField returns the first field with the given code point.
func FindField(fields []Field, cp uint16) (Field, bool) {
	for _, fl := range fields {
		if fl.CodePoint == cp {
			return fl, true
		}
	}
	return Field{}, false
}

func (fl Field) Uint16() (uint16, error) {
	if len(fl.Value) != 2 {
		return 0, fmt.Errorf("%w: cp=0x%04X len=%d", ErrFieldValueLength, fl.CodePoint, len(fl.Value))
	}
	return binary.BigEndian.Uint16(fl.Value), nil
}

func (fl Field) Uint32() (uint32, error) {
	if len(fl.Value) != 4 {
		return 0, fmt.Errorf("%w: cp=0x%04X len=%d", ErrFieldValueLength, fl.CodePoint, len(fl.Value))
	}
	return binary.BigEndian.Uint32(fl.Value), nil
}
