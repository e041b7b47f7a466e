package bcs

import (
	"encoding/binary"
	"fmt"
)

// Reader decodes a buffer written by Writer. It is used only by the
// TemplateBuilder's self-check (spec section 4.2 edge cases): round
// trip a freshly built template and confirm the sentinel nonce surfaces at
// the field we claimed was gas.budget. It is not a general-purpose Move
// value decoder.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential decoding starting at offset 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the current read position.
func (r *Reader) Offset() int { return r.pos }

// Remaining reports how many bytes are left to read.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return fmt.Errorf("bcs: truncated buffer: need %d bytes at offset %d, have %d", n, r.pos, r.Remaining())
	}
	return nil
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// ReadU16 reads 2 little-endian bytes.
func (r *Reader) ReadU16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadU32 reads 4 little-endian bytes.
func (r *Reader) ReadU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadU64 reads 8 little-endian bytes, returning the value and the offset
// it was read from.
func (r *Reader) ReadU64() (uint64, int, error) {
	if err := r.need(8); err != nil {
		return 0, 0, err
	}
	offset := r.pos
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, offset, nil
}

// ReadULEB128 reads an unsigned LEB128 varint (sequence/string length).
func (r *Reader) ReadULEB128() (uint64, error) {
	var result uint64
	var shift uint
	for {
		if err := r.need(1); err != nil {
			return 0, err
		}
		b := r.buf[r.pos]
		r.pos++
		result |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift > 63 {
			return 0, fmt.Errorf("bcs: ULEB128 varint too long")
		}
	}
	return result, nil
}

// ReadBytes reads exactly n raw bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

// ReadByteVector reads a ULEB128 length prefix followed by that many raw
// bytes.
func (r *Reader) ReadByteVector() ([]byte, error) {
	n, err := r.ReadULEB128()
	if err != nil {
		return nil, err
	}
	return r.ReadBytes(int(n))
}

// ReadString reads a UTF-8 string the same way as ReadByteVector.
func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadByteVector()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// SkipVector reads a ULEB128 length prefix and calls skipElem once per
// element, letting the caller advance the reader however that element is
// shaped.
func (r *Reader) SkipVector(skipElem func() error) error {
	n, err := r.ReadULEB128()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		if err := skipElem(); err != nil {
			return err
		}
	}
	return nil
}
